package channels

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/erwiqair/skydesk/internal/bus"
	"github.com/erwiqair/skydesk/internal/config"
)

// SlackChannel serves a Slack workspace via Socket Mode, so no public
// inbound URL is required. Direct messages always reach the agent; channel
// traffic only does when the bot is mentioned.
type SlackChannel struct {
	Base
	cfg       *config.SlackConfig
	webClient *slackgo.Client
	smClient  *socketmode.Client
	botUserID string
}

// NewSlackChannel creates a SlackChannel.
func NewSlackChannel(cfg *config.SlackConfig, b bus.Bus) *SlackChannel {
	return &SlackChannel{
		Base: NewBase("slack", b, cfg.AllowFrom),
		cfg:  cfg,
	}
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Start(ctx context.Context) error {
	if s.cfg.BotToken == "" || s.cfg.AppToken == "" {
		return fmt.Errorf("slack: bot/app token not configured")
	}

	s.webClient = slackgo.New(s.cfg.BotToken,
		slackgo.OptionAppLevelToken(s.cfg.AppToken))

	// Resolve the bot's own user ID so we can ignore our own messages and
	// strip mentions.
	if resp, err := s.webClient.AuthTestContext(ctx); err == nil {
		s.botUserID = resp.UserID
		slog.Info("slack: connected", "bot_user_id", s.botUserID)
	}

	s.smClient = socketmode.New(s.webClient)

	go s.smClient.RunContext(ctx) //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-s.smClient.Events:
			if !ok {
				return nil
			}
			s.handleEvent(evt)
		}
	}
}

func (s *SlackChannel) handleEvent(evt socketmode.Event) {
	if evt.Type != socketmode.EventTypeEventsAPI {
		return
	}
	if evt.Request != nil {
		s.smClient.Ack(*evt.Request)
	}
	cb, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}

	switch ev := cb.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// Direct messages only; channel traffic arrives as app_mention.
		if ev.ChannelType != "im" || ev.SubType != "" || ev.BotID != "" {
			return
		}
		if ev.User == "" || ev.User == s.botUserID {
			return
		}
		s.dispatch(ev.User, ev.Channel, ev.Text, ev.ThreadTimeStamp)
	case *slackevents.AppMentionEvent:
		if ev.User == "" || ev.User == s.botUserID {
			return
		}
		s.dispatch(ev.User, ev.Channel, s.stripMention(ev.Text), ev.ThreadTimeStamp)
	}
}

// dispatch pushes one Slack message onto the bus. A message already inside a
// thread carries its thread_ts so the reply lands in the same thread.
func (s *SlackChannel) dispatch(user, channel, text, threadTS string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	var metadata map[string]any
	if threadTS != "" {
		metadata = map[string]any{"thread_ts": threadTS}
	}
	s.HandleMessage(user, channel, text, "", metadata)
}

func (s *SlackChannel) stripMention(text string) string {
	if s.botUserID == "" {
		return text
	}
	re := regexp.MustCompile(`<@` + regexp.QuoteMeta(s.botUserID) + `>\s*`)
	return strings.TrimSpace(re.ReplaceAllString(text, ""))
}

func (s *SlackChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if s.webClient == nil {
		return fmt.Errorf("slack: client not running")
	}

	options := []slackgo.MsgOption{slackgo.MsgOptionText(msg.Content(), false)}
	if threadTS, ok := msg.Metadata()["thread_ts"].(string); ok && threadTS != "" {
		options = append(options, slackgo.MsgOptionTS(threadTS))
	}

	_, _, err := s.webClient.PostMessageContext(ctx, msg.ChatId(), options...)
	return err
}

package channels

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/erwiqair/skydesk/internal/bus"
	"github.com/erwiqair/skydesk/internal/config"
)

// TelegramChannel serves passengers on Telegram via long polling.
type TelegramChannel struct {
	Base
	cfg *config.TelegramConfig
	bot *tgbotapi.BotAPI
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(cfg *config.TelegramConfig, b bus.Bus) *TelegramChannel {
	return &TelegramChannel{
		Base: NewBase("telegram", b, cfg.AllowFrom),
		cfg:  cfg,
	}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPI(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("telegram: connected", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(update)
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (t *TelegramChannel) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.UserName != "" {
		senderID = senderID + "|" + msg.From.UserName
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	// Show "typing…" while the agent works on the reply.
	action := tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(action)

	metadata := map[string]any{
		"message_id": msg.MessageID,
		"user_id":    msg.From.ID,
		"username":   msg.From.UserName,
		"first_name": msg.From.FirstName,
		"is_group":   msg.Chat.Type != "private",
	}

	t.HandleMessage(senderID, chatID, msg.Text, "", metadata)
}

// Send delivers a reply, chunked to Telegram's message size limit. Each chunk
// goes out as HTML; if Telegram rejects the conversion the chunk is resent as
// plain text.
func (t *TelegramChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	if t.bot == nil {
		return fmt.Errorf("telegram: bot not running")
	}
	chatID, err := parseChatID(msg.ChatId())
	if err != nil {
		return err
	}
	if msg.Content() == "" {
		return nil
	}

	for _, chunk := range splitMessage(msg.Content(), 4000) {
		m := tgbotapi.NewMessage(chatID, markdownToTelegramHTML(chunk))
		m.ParseMode = "HTML"
		if _, err := t.bot.Send(m); err != nil {
			plain := tgbotapi.NewMessage(chatID, chunk)
			_, _ = t.bot.Send(plain)
		}
	}
	return nil
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat_id: %s", s)
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Markdown → Telegram HTML
// ---------------------------------------------------------------------------

var (
	reTGCodeBlock  = regexp.MustCompile("(?s)```\\w*\\n?(.*?)```")
	reTGInlineCode = regexp.MustCompile("`([^`\n]+)`")
	reTGQuote      = regexp.MustCompile(`(?m)^>\s?`)
)

// tgStyleRules run in order on escaped text, so replacements may emit tags.
var tgStyleRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`), "<b>$1</b>"},
	{regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`), `<a href="$2">$1</a>`},
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "<b>$1</b>"},
	{regexp.MustCompile(`__(.+?)__`), "<b>$1</b>"},
	{regexp.MustCompile(`(?m)^(\s*)[-*]\s+`), "$1• "},
}

// markdownToTelegramHTML converts the Markdown subset the assistant produces
// into Telegram-safe HTML. Code spans are lifted out before escaping so the
// style rules never rewrite their contents.
func markdownToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	var blocks, spans []string
	text = reTGCodeBlock.ReplaceAllStringFunc(text, func(m string) string {
		blocks = append(blocks, reTGCodeBlock.FindStringSubmatch(m)[1])
		return fmt.Sprintf("\x00B%d\x00", len(blocks)-1)
	})
	text = reTGInlineCode.ReplaceAllStringFunc(text, func(m string) string {
		spans = append(spans, reTGInlineCode.FindStringSubmatch(m)[1])
		return fmt.Sprintf("\x00S%d\x00", len(spans)-1)
	})

	text = reTGQuote.ReplaceAllString(text, "")
	text = htmlEscape(text)

	for _, rule := range tgStyleRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}

	for i, code := range spans {
		text = strings.Replace(text, fmt.Sprintf("\x00S%d\x00", i),
			"<code>"+htmlEscape(code)+"</code>", 1)
	}
	for i, code := range blocks {
		text = strings.Replace(text, fmt.Sprintf("\x00B%d\x00", i),
			"<pre>"+htmlEscape(code)+"</pre>", 1)
	}
	return text
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

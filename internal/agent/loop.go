package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/erwiqair/skydesk/internal/bus"
	"github.com/erwiqair/skydesk/internal/session"
)

// helpText is the reply to the /help command.
const helpText = `ERWIQ Airlines support commands:
/new  - Start a new conversation
/help - Show this message

Things you can ask:
- Prices: "How much is a business class ticket to Mumbai?"
- Bookings: "Look up booking ABC123"
- Flight status: "Is flight EQ101 on time?"
- Policies: "What's the baggage allowance?"
- Refunds: "Process refund for XYZ789, plans changed"
- Images: "Show me what Goa looks like"

For anything unresolved, call 1800-ERWIQ-AIR (toll-free).`

// Loop is the processing engine between the channels and the orchestrator.
//
// It reads InboundMessages from the bus, runs each exchange with the
// session's history, and publishes the reply as an OutboundMessage. Each
// inbound message is handled in its own goroutine.
type Loop struct {
	bus        bus.Bus
	orch       *Orchestrator
	sessions   *session.Manager
	maxHistory int
}

// NewLoop creates a Loop. maxHistory caps the number of session messages
// sent to the backends per exchange; <= 0 sends the whole history.
func NewLoop(b bus.Bus, orch *Orchestrator, sessions *session.Manager, maxHistory int) *Loop {
	return &Loop{
		bus:        b,
		orch:       orch,
		sessions:   sessions,
		maxHistory: maxHistory,
	}
}

// Run reads from the inbound bus and processes each message in a goroutine.
// Blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("Agent loop started")

	for {
		select {
		case msg := <-l.bus.InboundChan():
			go l.handleMessage(ctx, msg)
		case <-ctx.Done():
			slog.Info("Agent loop stopping")
			return ctx.Err()
		}
	}
}

// ProcessDirect handles one exchange outside the bus (one-shot CLI use).
func (l *Loop) ProcessDirect(ctx context.Context, content, sessionKey, preferred string) Outcome {
	sess := l.sessions.GetOrCreate(sessionKey)
	return l.exchange(ctx, sess, content, preferred)
}

func (l *Loop) handleMessage(ctx context.Context, msg bus.InboundMessage) {
	if strings.TrimSpace(msg.Content()) == "" {
		return
	}

	slog.Info("Processing message",
		"channel", msg.Channel(),
		"sender", msg.SenderId(),
		"content", msg.Preview(),
	)

	key := msg.SessionKey()
	sess := l.sessions.GetOrCreate(key)

	if resp := l.handleSlashCommand(msg, sess, key); resp != nil {
		l.bus.PublishOutbound(*resp)
		return
	}

	out := l.exchange(ctx, sess, msg.Content(), msg.Backend())

	slog.Info("Response",
		"channel", msg.Channel(),
		"backend", out.Backend,
		"length", len(out.Reply),
	)

	reply := bus.NewOutboundMessage(msg.Channel(), msg.ChatId(), out.Reply)
	reply.Attribute(out.Backend, out.ToolsUsed)
	reply.SetMetadata(msg.Metadata())
	l.bus.PublishOutbound(reply)
}

// exchange runs one orchestrated exchange and appends both turns to the
// session. The history handed to the backends never includes the message
// being answered.
func (l *Loop) exchange(ctx context.Context, sess *session.Session, content, preferred string) Outcome {
	history := sess.GetHistory(l.maxHistory)
	out := l.orch.Handle(ctx, content, history, preferred)

	sess.AddUser(content)
	sess.AddAssistant(out.Reply, out.ToolsUsed)
	if err := l.sessions.Save(sess); err != nil {
		slog.Error("Failed to save session", "key", sess.Key, "err", err)
	}

	return out
}

// handleSlashCommand checks msg for a known slash command and handles it.
// Returns non-nil if the command was handled.
func (l *Loop) handleSlashCommand(msg bus.InboundMessage, sess *session.Session, key string) *bus.OutboundMessage {
	cmd := strings.TrimSpace(strings.ToLower(msg.Content()))
	switch cmd {
	case "/new":
		return l.handleCmdNew(msg, sess, key)
	case "/help":
		return l.handleCmdHelp(msg)
	}
	return nil
}

// handleCmdNew clears the session and confirms.
func (l *Loop) handleCmdNew(msg bus.InboundMessage, sess *session.Session, key string) *bus.OutboundMessage {
	sess.Clear()
	if err := l.sessions.Save(sess); err != nil {
		slog.Error("Failed to save session", "key", key, "err", err)
	}
	l.sessions.Invalidate(key)

	out := bus.NewOutboundMessage(msg.Channel(), msg.ChatId(),
		"Started a new conversation. How can I help you with ERWIQ Airlines today?")
	out.SetMetadata(msg.Metadata())
	return &out
}

// handleCmdHelp returns the command and capability overview.
func (l *Loop) handleCmdHelp(msg bus.InboundMessage) *bus.OutboundMessage {
	out := bus.NewOutboundMessage(msg.Channel(), msg.ChatId(), helpText)
	out.SetMetadata(msg.Metadata())
	return &out
}

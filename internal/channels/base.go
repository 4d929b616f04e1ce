// Package channels wires chat surfaces into the message bus: the terminal,
// Telegram, Slack, and the web widget served by the gateway.
package channels

import (
	"context"
	"log/slog"
	"strings"

	"github.com/erwiqair/skydesk/internal/bus"
)

// Channel is one chat surface the gateway can serve.
type Channel interface {
	Name() string
	// Start runs the channel's receive loop until ctx is cancelled.
	Start(ctx context.Context) error
	// Send delivers an agent reply to the channel.
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// Base holds common state and helper methods shared by all channels.
type Base struct {
	channelName string
	b           bus.Bus
	allowFrom   []string // empty = allow all
}

// NewBase creates a Base with the given channel name, bus, and allowlist.
func NewBase(name string, b bus.Bus, allowFrom []string) Base {
	return Base{channelName: name, b: b, allowFrom: allowFrom}
}

// IsAllowed checks whether senderID is on the allowlist. Telegram senders
// arrive as "id|username", so either part may match.
func (b *Base) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}

	candidates := []string{senderID}
	if strings.Contains(senderID, "|") {
		for _, part := range strings.Split(senderID, "|") {
			if part != "" {
				candidates = append(candidates, part)
			}
		}
	}

	for _, allowed := range b.allowFrom {
		for _, c := range candidates {
			if allowed == c {
				return true
			}
		}
	}
	return false
}

// HandleMessage verifies the sender is allowed, then pushes an InboundMessage
// onto the bus. backend optionally names the model backend the sender wants
// this exchange answered by ("" = configured default).
func (b *Base) HandleMessage(senderId, chatId, content, backend string, metadata map[string]any) {
	if !b.IsAllowed(senderId) {
		slog.Warn("access denied", "channel", b.channelName, "sender", senderId)
		return
	}

	msg := bus.NewInboundMessage(b.channelName, senderId, chatId, content)
	msg.SetBackend(backend)
	msg.SetMetadata(metadata)
	b.b.PublishInbound(msg)
}

// splitMessage splits content into chunks that fit within maxLen,
// preferring newline breaks, then space breaks, then a hard cut.
func splitMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		cut := content[:maxLen]
		pos := strings.LastIndex(cut, "\n")
		if pos <= 0 {
			pos = strings.LastIndex(cut, " ")
		}
		if pos <= 0 {
			pos = maxLen
		}
		chunks = append(chunks, content[:pos])
		content = strings.TrimLeft(content[pos:], " \t")
	}
	return chunks
}

package bus

// OutboundMessage is a reply on its way back to a chat surface. Besides the
// text it carries which backend produced the reply and the tools that ran,
// so channels can attribute answers the same way the HTTP API does.
type OutboundMessage struct {
	channel   string         // destination channel name
	chatId    string         // destination chat / channel / DM identifier
	content   string         // text to send
	backend   string         // backend that produced the reply ("" for canned text)
	toolsUsed []string       // tools that ran while producing the reply
	metadata  map[string]any // channel-specific hints (thread_ts, parse_mode, …)
}

// NewOutboundMessage creates a reply frame for channel/chatId. Replies that
// came from a backend get their attribution attached with Attribute; canned
// replies (slash commands, error texts) go out without one.
func NewOutboundMessage(channel, chatId, content string) OutboundMessage {
	return OutboundMessage{channel: channel, chatId: chatId, content: content}
}

// Attribute records which backend answered and which tools ran.
func (m *OutboundMessage) Attribute(backend string, toolsUsed []string) {
	m.backend = backend
	m.toolsUsed = toolsUsed
}

func (m OutboundMessage) Channel() string                { return m.channel }
func (m OutboundMessage) ChatId() string                 { return m.chatId }
func (m OutboundMessage) Content() string                { return m.content }
func (m OutboundMessage) Backend() string                { return m.backend }
func (m OutboundMessage) ToolsUsed() []string            { return m.toolsUsed }
func (m OutboundMessage) Metadata() map[string]any       { return m.metadata }
func (m *OutboundMessage) SetMetadata(md map[string]any) { m.metadata = md }

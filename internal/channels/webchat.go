package channels

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/erwiqair/skydesk/internal/bus"
)

// webChatRequest is one frame sent by the web widget.
type webChatRequest struct {
	Message string `json:"message"`
	Backend string `json:"backend,omitempty"`
}

// webChatReply is one frame pushed back to the widget.
type webChatReply struct {
	Reply     string   `json:"reply,omitempty"`
	Backend   string   `json:"backend,omitempty"`
	ToolsUsed []string `json:"tools_used,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// WebChatChannel serves the embedded support widget over the websocket the
// gateway mounts at /ws. Each connection gets a fresh chat ID, so two
// browser tabs never share a conversation.
type WebChatChannel struct {
	Base
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*webChatConn
}

// webChatConn serializes writes; the websocket allows one concurrent writer.
type webChatConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *webChatConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// NewWebChatChannel creates a WebChatChannel.
func NewWebChatChannel(b bus.Bus) *WebChatChannel {
	return &WebChatChannel{
		Base: NewBase("webchat", b, nil),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The widget is embedded on pages served behind the same
			// gateway; origin policy is enforced there.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string]*webChatConn),
	}
}

func (w *WebChatChannel) Name() string { return "webchat" }

// Start blocks until ctx is cancelled, then closes every open connection.
// Connections arrive through ServeWS.
func (w *WebChatChannel) Start(ctx context.Context) error {
	<-ctx.Done()

	w.mu.Lock()
	for _, conn := range w.conns {
		_ = conn.ws.Close()
	}
	w.conns = make(map[string]*webChatConn)
	w.mu.Unlock()

	return ctx.Err()
}

// ServeWS upgrades an HTTP request to a websocket and pumps widget messages
// onto the bus until the visitor disconnects.
func (w *WebChatChannel) ServeWS(rw http.ResponseWriter, req *http.Request) {
	ws, err := w.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		slog.Warn("webchat: upgrade failed", "err", err)
		return
	}

	chatID := uuid.NewString()
	conn := &webChatConn{ws: ws}

	w.mu.Lock()
	w.conns[chatID] = conn
	w.mu.Unlock()

	slog.Info("webchat: visitor connected", "chat_id", chatID)

	defer func() {
		w.mu.Lock()
		delete(w.conns, chatID)
		w.mu.Unlock()
		_ = ws.Close()
		slog.Info("webchat: visitor disconnected", "chat_id", chatID)
	}()

	for {
		var frame webChatRequest
		if err := ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("webchat: read failed", "chat_id", chatID, "err", err)
			}
			return
		}
		if strings.TrimSpace(frame.Message) == "" {
			_ = conn.writeJSON(webChatReply{Error: "empty message"})
			continue
		}
		w.HandleMessage(chatID, chatID, frame.Message, frame.Backend, nil)
	}
}

// Send pushes an agent reply down the websocket owning the chat ID.
func (w *WebChatChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	w.mu.Lock()
	conn, ok := w.conns[msg.ChatId()]
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("webchat: no open connection for chat %s", msg.ChatId())
	}
	return conn.writeJSON(webChatReply{
		Reply:     msg.Content(),
		Backend:   msg.Backend(),
		ToolsUsed: msg.ToolsUsed(),
	})
}

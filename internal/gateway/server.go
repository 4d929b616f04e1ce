// Package gateway exposes SkyDesk over HTTP: the web-widget websocket, a
// single-shot chat API, the analytics summary, health, and Prometheus
// metrics.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erwiqair/skydesk/internal/agent"
	"github.com/erwiqair/skydesk/internal/analytics"
	"github.com/erwiqair/skydesk/internal/channels"
	"github.com/erwiqair/skydesk/internal/config"
)

// Server is the HTTP face of the gateway. The websocket endpoint is only
// mounted when the webchat channel is enabled.
type Server struct {
	cfg      config.GatewayConfig
	loop     *agent.Loop
	recorder *analytics.Recorder
	metrics  *analytics.Metrics
	webchat  *channels.WebChatChannel // nil when the widget channel is disabled
	started  time.Time
}

// NewServer creates a Server. webchat may be nil.
func NewServer(
	cfg config.GatewayConfig,
	loop *agent.Loop,
	recorder *analytics.Recorder,
	metrics *analytics.Metrics,
	webchat *channels.WebChatChannel,
) *Server {
	return &Server{
		cfg:      cfg,
		loop:     loop,
		recorder: recorder,
		metrics:  metrics,
		webchat:  webchat,
		started:  time.Now(),
	}
}

// Handler builds the gateway's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	mux.HandleFunc("DELETE /api/analytics", s.handleAnalyticsReset)
	mux.HandleFunc("GET /api/analytics/recent", s.handleRecent)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	if s.webchat != nil {
		mux.HandleFunc("GET /ws", s.webchat.ServeWS)
	}

	return mux
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.Info("gateway: listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("gateway: %w", err)
	}
}

// chatRequest is the POST /api/chat body. Session lets a caller continue a
// conversation across requests; without one each request stands alone.
type chatRequest struct {
	Message string `json:"message"`
	Session string `json:"session,omitempty"`
	Backend string `json:"backend,omitempty"`
}

type chatResponse struct {
	Reply          string   `json:"reply"`
	Backend        string   `json:"backend"`
	ToolsUsed      []string `json:"tools_used"`
	ResponseTimeMS float64  `json:"response_time_ms"`
	Error          string   `json:"error,omitempty"` // set when backend is "none"
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	session := req.Session
	if session == "" {
		session = uuid.NewString()
	}

	out := s.loop.ProcessDirect(r.Context(), req.Message, "api:"+session, req.Backend)

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:          out.Reply,
		Backend:        out.Backend,
		ToolsUsed:      out.ToolsUsed,
		ResponseTimeMS: float64(out.Elapsed.Microseconds()) / 1000,
		Error:          out.Error,
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.recorder.Summary())
}

func (s *Server) handleAnalyticsReset(w http.ResponseWriter, _ *http.Request) {
	s.recorder.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleRecent returns the last n recorded exchanges, oldest first.
// n defaults to 20; asking for more than is stored returns everything.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	n := 20
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, s.recorder.Recent(n))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("gateway: encode response", "err", err)
	}
}

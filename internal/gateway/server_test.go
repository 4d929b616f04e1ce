package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/erwiqair/skydesk/internal/agent"
	"github.com/erwiqair/skydesk/internal/analytics"
	"github.com/erwiqair/skydesk/internal/bus"
	"github.com/erwiqair/skydesk/internal/channels"
	"github.com/erwiqair/skydesk/internal/config"
	"github.com/erwiqair/skydesk/internal/notify"
	"github.com/erwiqair/skydesk/internal/providers"
	"github.com/erwiqair/skydesk/internal/schema"
	"github.com/erwiqair/skydesk/internal/session"
	"github.com/erwiqair/skydesk/internal/tools"
)

// stubBackend answers every completion with a fixed reply and records how
// long each conversation it saw was.
type stubBackend struct {
	name     string
	reply    string
	err      error
	convLens []int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Complete(_ context.Context, _ string, conv schema.Messages, _ schema.ChatOptions) (string, error) {
	s.convLens = append(s.convLens, conv.Len())
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestServer(t *testing.T, backend providers.Backend) *Server {
	t.Helper()

	registry, err := tools.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	metrics := analytics.NewMetrics()
	recorder := analytics.NewRecorder(metrics)

	orch := agent.NewOrchestrator(
		[]providers.Backend{backend},
		agent.NewToolLoop(registry),
		recorder,
		notify.NewDispatcher(),
		config.AgentConfig{MaxTokens: 256, Temperature: 0.2, BackendTimeout: 5},
	)

	sessions, err := session.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	b := bus.NewMessageBus(4)
	loop := agent.NewLoop(b, orch, sessions, 20)

	return NewServer(config.GatewayConfig{Host: "127.0.0.1", Port: 8790},
		loop, recorder, metrics, channels.NewWebChatChannel(b))
}

func postChat(t *testing.T, baseURL, body string) (int, []byte) {
	t.Helper()

	resp, err := http.Post(baseURL+"/api/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/chat: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

// ─── /api/chat ───────────────────────────────────────────────────────────────

func TestChat_RoundTrip(t *testing.T) {
	backend := &stubBackend{name: "openai", reply: "Namaste! How can I help you today?"}
	ts := httptest.NewServer(newTestServer(t, backend).Handler())
	defer ts.Close()

	status, body := postChat(t, ts.URL, `{"message": "hello"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", status, body)
	}

	var got chatResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Reply != "Namaste! How can I help you today?" {
		t.Errorf("reply = %q", got.Reply)
	}
	if got.Backend != "openai" {
		t.Errorf("backend = %q, want openai", got.Backend)
	}
	if got.ToolsUsed == nil || len(got.ToolsUsed) != 0 {
		t.Errorf("tools_used = %v, want empty list", got.ToolsUsed)
	}
	if got.ResponseTimeMS < 0 {
		t.Errorf("response_time_ms = %v", got.ResponseTimeMS)
	}
}

func TestChat_SessionContinuity(t *testing.T) {
	backend := &stubBackend{name: "openai", reply: "noted"}
	ts := httptest.NewServer(newTestServer(t, backend).Handler())
	defer ts.Close()

	if status, _ := postChat(t, ts.URL, `{"message": "first", "session": "web-visitor-9"}`); status != http.StatusOK {
		t.Fatalf("first request: status %d", status)
	}
	if status, _ := postChat(t, ts.URL, `{"message": "second", "session": "web-visitor-9"}`); status != http.StatusOK {
		t.Fatalf("second request: status %d", status)
	}

	// First exchange sees only the new user message; the second sees the
	// prior user/assistant pair plus the new message.
	want := []int{1, 3}
	if len(backend.convLens) != len(want) {
		t.Fatalf("backend saw %d completions, want %d", len(backend.convLens), len(want))
	}
	for i := range want {
		if backend.convLens[i] != want[i] {
			t.Errorf("conversation %d had %d messages, want %d", i, backend.convLens[i], want[i])
		}
	}
}

func TestChat_EmptyMessageRejected(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubBackend{name: "openai", reply: "x"}).Handler())
	defer ts.Close()

	status, body := postChat(t, ts.URL, `{"message": "   "}`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if !strings.Contains(string(body), "message is required") {
		t.Errorf("body = %s", body)
	}
}

func TestChat_InvalidJSONRejected(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubBackend{name: "openai", reply: "x"}).Handler())
	defer ts.Close()

	status, _ := postChat(t, ts.URL, `{"message": `)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestChat_GetNotAllowed(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubBackend{name: "openai", reply: "x"}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/chat")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestChat_DegradedWhenAllBackendsFail(t *testing.T) {
	backend := &stubBackend{name: "openai", err: providers.Unavailablef("openai", "api down")}
	ts := httptest.NewServer(newTestServer(t, backend).Handler())
	defer ts.Close()

	status, body := postChat(t, ts.URL, `{"message": "anyone there?"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200 with degraded reply", status)
	}

	var got chatResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Backend != "none" {
		t.Errorf("backend = %q, want none", got.Backend)
	}
	if !strings.Contains(got.Reply, "technical difficulties") {
		t.Errorf("reply = %q, want the degraded message", got.Reply)
	}
	if got.ToolsUsed == nil || len(got.ToolsUsed) != 0 {
		t.Errorf("tools_used = %v, want empty list", got.ToolsUsed)
	}
}

// ─── Other endpoints ─────────────────────────────────────────────────────────

func TestAnalyticsEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubBackend{name: "openai", reply: "done"}).Handler())
	defer ts.Close()

	postChat(t, ts.URL, `{"message": "hi"}`)

	resp, err := http.Get(ts.URL + "/api/analytics")
	if err != nil {
		t.Fatalf("GET /api/analytics: %v", err)
	}
	defer resp.Body.Close()

	var sum analytics.Summary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalQueries != 1 {
		t.Errorf("total_queries = %d, want 1", sum.TotalQueries)
	}
	if sum.BackendUsage["openai"] != 1 {
		t.Errorf("backend_usage = %v", sum.BackendUsage)
	}
}

func TestAnalyticsRecentEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubBackend{name: "openai", reply: "done"}).Handler())
	defer ts.Close()

	postChat(t, ts.URL, `{"message": "first"}`)
	postChat(t, ts.URL, `{"message": "second"}`)

	resp, err := http.Get(ts.URL + "/api/analytics/recent?n=1")
	if err != nil {
		t.Fatalf("GET /api/analytics/recent: %v", err)
	}
	defer resp.Body.Close()

	var logs []analytics.Interaction
	if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d interactions, want 1", len(logs))
	}
	if logs[0].UserMessage != "second" {
		t.Errorf("user_message = %q, want the newest exchange", logs[0].UserMessage)
	}

	bad, err := http.Get(ts.URL + "/api/analytics/recent?n=zero")
	if err != nil {
		t.Fatalf("GET with bad n: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("bad n status = %d, want 400", bad.StatusCode)
	}
}

func TestAnalyticsResetEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubBackend{name: "openai", reply: "done"}).Handler())
	defer ts.Close()

	postChat(t, ts.URL, `{"message": "hello"}`)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/analytics", nil)
	if err != nil {
		t.Fatalf("build DELETE: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /api/analytics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", resp.StatusCode)
	}

	sumResp, err := http.Get(ts.URL + "/api/analytics")
	if err != nil {
		t.Fatalf("GET /api/analytics: %v", err)
	}
	defer sumResp.Body.Close()
	var sum analytics.Summary
	if err := json.NewDecoder(sumResp.Body).Decode(&sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalQueries != 0 {
		t.Errorf("TotalQueries after reset = %d, want 0", sum.TotalQueries)
	}
}

func TestHealthz(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubBackend{name: "openai", reply: "x"}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("status = %v", got["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubBackend{name: "openai", reply: "x"}).Handler())
	defer ts.Close()

	postChat(t, ts.URL, `{"message": "hi"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "skydesk_exchanges_total") {
		t.Errorf("metrics output missing exchange counter:\n%s", body)
	}
}

func TestWebsocketMount(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubBackend{name: "openai", reply: "x"}).Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial /ws: %v", err)
	}
	conn.Close()
}

func TestWebsocketAbsentWhenDisabled(t *testing.T) {
	registry, _ := tools.NewRegistry()
	metrics := analytics.NewMetrics()
	recorder := analytics.NewRecorder(metrics)
	orch := agent.NewOrchestrator(nil, agent.NewToolLoop(registry), recorder,
		notify.NewDispatcher(), config.AgentConfig{BackendTimeout: 5})
	sessions, err := session.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	loop := agent.NewLoop(bus.NewMessageBus(1), orch, sessions, 20)

	srv := NewServer(config.GatewayConfig{}, loop, recorder, metrics, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when webchat is disabled", resp.StatusCode)
	}
}

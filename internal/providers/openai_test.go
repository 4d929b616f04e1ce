package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erwiqair/skydesk/internal/schema"
)

// newTestOpenAI points a client at a stub server.
func newTestOpenAI(t *testing.T, handler http.HandlerFunc) (*OpenAIClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini", "text-embedding-3-small", "dall-e-3")
	return c, srv
}

func chatCompletionJSON(content string) string {
	return `{"choices":[{"message":{"content":` + mustJSON(content) + `},"finish_reason":"stop"}],
		"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// ─── FallbackOrder ─────────────────────────────────────────────────────────

func TestFallbackOrder_Canonical(t *testing.T) {
	got := FallbackOrder()
	want := []string{BackendOpenAI, BackendClaude, BackendGemini}
	if len(got) != len(want) {
		t.Fatalf("expected %d backends, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestFallbackOrder_ReturnsFreshSlice(t *testing.T) {
	first := FallbackOrder()
	first[0] = "mutated"
	second := FallbackOrder()
	if second[0] != BackendOpenAI {
		t.Errorf("mutating the returned slice leaked into later calls: %q", second[0])
	}
}

// ─── Complete ──────────────────────────────────────────────────────────────

func TestOpenAIComplete_ReturnsText(t *testing.T) {
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatCompletionJSON("Hello from the assistant."))
	})

	conv := schema.NewMessages(schema.NewUserMessage("hi"))
	got, err := c.Complete(context.Background(), "You are helpful.", conv, schema.NewChatOptions("", 0, 0.7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello from the assistant." {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestOpenAIComplete_SendsSystemFirst(t *testing.T) {
	var captured map[string]any
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		io.WriteString(w, chatCompletionJSON("ok"))
	})

	conv := schema.NewMessages(schema.NewUserMessage("question"))
	if _, err := c.Complete(context.Background(), "system prompt", conv, schema.ChatOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs, ok := captured["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected 2 wire messages, got %v", captured["messages"])
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "system prompt" {
		t.Errorf("first wire message should be the system prompt, got %v", first)
	}
}

func TestOpenAIComplete_Unconfigured(t *testing.T) {
	c := NewOpenAIClient("", "", "gpt-4o-mini", "", "")
	conv := schema.NewMessages(schema.NewUserMessage("hi"))
	_, err := c.Complete(context.Background(), "", conv, schema.ChatOptions{})
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %T", err)
	}
	if be.Backend != BackendOpenAI {
		t.Errorf("expected backend %q, got %q", BackendOpenAI, be.Backend)
	}
}

func TestOpenAIComplete_HTTPErrorIsBackendError(t *testing.T) {
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key"}}`)
	})

	conv := schema.NewMessages(schema.NewUserMessage("hi"))
	_, err := c.Complete(context.Background(), "", conv, schema.ChatOptions{})
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.Backend != BackendOpenAI {
		t.Errorf("expected backend %q, got %q", BackendOpenAI, be.Backend)
	}
}

// ─── CompleteWithTools ─────────────────────────────────────────────────────

func TestOpenAICompleteWithTools_AdvertisesTools(t *testing.T) {
	var captured map[string]any
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		io.WriteString(w, chatCompletionJSON("no tools needed"))
	})

	tools := []map[string]any{{
		"type": "function",
		"function": map[string]any{
			"name":        "get_flight_status",
			"description": "Look up a flight",
			"parameters":  map[string]any{"type": "object"},
		},
	}}
	conv := schema.NewMessages(schema.NewUserMessage("status of EQ101?"))
	_, err := c.CompleteWithTools(context.Background(), "sys", conv, tools, schema.ChatOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["tool_choice"] != "auto" {
		t.Errorf("expected tool_choice=auto, got %v", captured["tool_choice"])
	}
	sent, ok := captured["tools"].([]any)
	if !ok || len(sent) != 1 {
		t.Fatalf("expected 1 tool definition on the wire, got %v", captured["tools"])
	}
}

func TestOpenAICompleteWithTools_ParsesToolCalls(t *testing.T) {
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[{"message":{"content":null,"tool_calls":[
			{"id":"call_1","function":{"name":"get_ticket_price","arguments":"{\"destination_city\":\"goa\"}"}}
		]},"finish_reason":"tool_calls"}],"usage":{}}`)
	})

	conv := schema.NewMessages(schema.NewUserMessage("price to goa?"))
	resp, err := c.CompleteWithTools(context.Background(), "", conv, nil, schema.ChatOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.HasToolCalls() {
		t.Fatal("expected tool calls in response")
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "get_ticket_price" {
		t.Errorf("unexpected tool call: %+v", tc)
	}
	if tc.Arguments["destination_city"] != "goa" {
		t.Errorf("unexpected arguments: %v", tc.Arguments)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("unexpected finish reason: %q", resp.FinishReason)
	}
}

// ─── Embeddings ────────────────────────────────────────────────────────────

func TestOpenAIEmbed_PreservesInputOrder(t *testing.T) {
	// Vectors arrive out of order; the index field restores input order.
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[
			{"index":1,"embedding":[0.0,1.0]},
			{"index":0,"embedding":[1.0,0.0]}
		]}`)
	})

	vecs, err := c.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 1.0 || vecs[1][1] != 1.0 {
		t.Errorf("vectors not reordered by index: %v", vecs)
	}
}

func TestOpenAIEmbed_CountMismatch(t *testing.T) {
	c, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"index":0,"embedding":[1.0]}]}`)
	})

	if _, err := c.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestOpenAIEmbed_EmptyInput(t *testing.T) {
	c := NewOpenAIClient("key", "http://unused", "m", "e", "i")
	vecs, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil for empty input, got %v", vecs)
	}
}

// ─── Wire conversion ───────────────────────────────────────────────────────

func TestMessageToWireMap_ToolResult(t *testing.T) {
	m := schema.NewToolResultMessage("call_9", "lookup_booking", "Booking found")
	wire := messageToWireMap(m)
	if wire["role"] != "tool" || wire["tool_call_id"] != "call_9" || wire["name"] != "lookup_booking" {
		t.Errorf("unexpected wire map: %v", wire)
	}
}

func TestMessageToWireMap_AssistantToolCalls(t *testing.T) {
	m := schema.NewAssistantMessage(nil, []schema.ToolCall{
		{ID: "call_2", Name: "process_refund", Arguments: map[string]any{"pnr": "DEF456"}},
	})
	wire := messageToWireMap(m)
	calls, ok := wire["tool_calls"].([]map[string]any)
	if !ok || len(calls) != 1 {
		t.Fatalf("expected 1 wire tool call, got %v", wire["tool_calls"])
	}
	fn := calls[0]["function"].(map[string]any)
	if fn["name"] != "process_refund" {
		t.Errorf("unexpected function name: %v", fn["name"])
	}
	if _, isString := fn["arguments"].(string); !isString {
		t.Error("arguments must be JSON-encoded string on the wire")
	}
}

// ─── Response parsing ──────────────────────────────────────────────────────

func TestParseOpenAIResponse_EmptyChoices(t *testing.T) {
	if _, err := parseOpenAIResponse([]byte(`{"choices":[]}`)); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestRepairJSON_Truncated(t *testing.T) {
	got, err := repairJSON(`{"city":"goa"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["city"] != "goa" {
		t.Errorf("unexpected repaired value: %v", got)
	}
}

func TestRepairJSON_Empty(t *testing.T) {
	got, err := repairJSON("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

// ─── Retry ─────────────────────────────────────────────────────────────────

func TestDoWithRetry_RecoversFromRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	resp, err := doWithRetry(context.Background(), srv.Client(), func() (*http.Request, error) {
		return http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := doWithRetry(context.Background(), srv.Client(), func() (*http.Request, error) {
		return http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != retryAttempts {
		t.Errorf("expected %d attempts, got %d", retryAttempts, attempts)
	}
}

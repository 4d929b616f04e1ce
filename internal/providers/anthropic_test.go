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

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAnthropicClient("test-key", srv.URL, "claude-sonnet-4-20250514", 1024)
}

// ─── Complete ──────────────────────────────────────────────────────────────

func TestAnthropicComplete_ReturnsText(t *testing.T) {
	var gotPath string
	var gotVersion, gotKey string
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		io.WriteString(w, `{"content":[{"type":"text","text":"Namaste from Claude."}],"stop_reason":"end_turn",
			"usage":{"input_tokens":12,"output_tokens":6}}`)
	})

	conv := schema.NewMessages(schema.NewUserMessage("hello"))
	got, err := c.Complete(context.Background(), "be brief", conv, schema.ChatOptions{Temperature: 0.7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Namaste from Claude." {
		t.Errorf("unexpected reply: %q", got)
	}
	if gotPath != "/messages" {
		t.Errorf("unexpected path: %q", gotPath)
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("unexpected anthropic-version: %q", gotVersion)
	}
	if gotKey != "test-key" {
		t.Errorf("unexpected x-api-key: %q", gotKey)
	}
}

func TestAnthropicComplete_SystemIsTopLevel(t *testing.T) {
	var captured map[string]any
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		io.WriteString(w, `{"content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn","usage":{}}`)
	})

	conv := schema.NewMessages(schema.NewUserMessage("hi"))
	if _, err := c.Complete(context.Background(), "system text", conv, schema.ChatOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["system"] != "system text" {
		t.Errorf("expected top-level system param, got %v", captured["system"])
	}
	msgs := captured["messages"].([]any)
	for _, m := range msgs {
		if m.(map[string]any)["role"] == "system" {
			t.Error("system must not appear as a conversation turn")
		}
	}
	if captured["max_tokens"] != float64(1024) {
		t.Errorf("expected default max_tokens 1024, got %v", captured["max_tokens"])
	}
}

func TestAnthropicComplete_Unconfigured(t *testing.T) {
	c := NewAnthropicClient("", "", "claude-sonnet-4-20250514", 0)
	conv := schema.NewMessages(schema.NewUserMessage("hi"))
	_, err := c.Complete(context.Background(), "", conv, schema.ChatOptions{})
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.Backend != BackendClaude {
		t.Errorf("expected backend %q, got %q", BackendClaude, be.Backend)
	}
}

func TestAnthropicComplete_HTTPErrorIsBackendError(t *testing.T) {
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"type":"rate_limit_error"}}`)
	})

	conv := schema.NewMessages(schema.NewUserMessage("hi"))
	_, err := c.Complete(context.Background(), "", conv, schema.ChatOptions{})
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.Backend != BackendClaude {
		t.Errorf("expected backend %q, got %q", BackendClaude, be.Backend)
	}
}

// ─── Wire conversion ───────────────────────────────────────────────────────

func TestAnthropicMessages_MergesToolResultIntoUserTurn(t *testing.T) {
	conv := schema.NewMessages()
	conv.AddUser("refund my booking")
	conv.AddAssistant(nil, []schema.ToolCall{{ID: "tu_1", Name: "process_refund", Arguments: map[string]any{"pnr": "DEF456"}}})
	conv.AddToolResult("tu_1", "process_refund", "Refund initiated")

	wire := anthropicMessages(conv)
	if len(wire) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(wire))
	}
	last := wire[2]
	if last["role"] != "user" {
		t.Fatalf("tool result must ride in a user turn, got role %v", last["role"])
	}
	blocks := last["content"].([]any)
	block := blocks[0].(map[string]any)
	if block["type"] != "tool_result" || block["tool_use_id"] != "tu_1" {
		t.Errorf("unexpected tool_result block: %v", block)
	}
}

func TestAnthropicMessages_AssistantToolUseBlocks(t *testing.T) {
	text := "Let me check."
	conv := schema.NewMessages()
	conv.AddUser("status?")
	conv.AddAssistant(&text, []schema.ToolCall{{ID: "tu_2", Name: "get_flight_status", Arguments: map[string]any{"flight_number": "EQ101"}}})

	wire := anthropicMessages(conv)
	blocks := wire[1]["content"].([]any)
	if len(blocks) != 2 {
		t.Fatalf("expected text + tool_use blocks, got %d", len(blocks))
	}
	if blocks[0].(map[string]any)["type"] != "text" {
		t.Error("first block should be text")
	}
	use := blocks[1].(map[string]any)
	if use["type"] != "tool_use" || use["name"] != "get_flight_status" {
		t.Errorf("unexpected tool_use block: %v", use)
	}
}

// ─── Response parsing ──────────────────────────────────────────────────────

func TestParseAnthropicResponse_ToolUse(t *testing.T) {
	raw := []byte(`{"content":[
		{"type":"text","text":"Checking now."},
		{"type":"tool_use","id":"tu_3","name":"lookup_booking","input":{"pnr":"ABC123"}}
	],"stop_reason":"tool_use","usage":{"input_tokens":4,"output_tokens":2}}`)

	resp, err := parseAnthropicResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Checking now." {
		t.Errorf("unexpected text: %q", resp.Text())
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "lookup_booking" {
		t.Errorf("unexpected tool calls: %+v", resp.ToolCalls)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("stop_reason=tool_use should map to tool_calls, got %q", resp.FinishReason)
	}
	if resp.Usage["total_tokens"] != 6 {
		t.Errorf("unexpected usage: %v", resp.Usage)
	}
}

func TestParseAnthropicResponse_MultipleTextBlocks(t *testing.T) {
	raw := []byte(`{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}],
		"stop_reason":"end_turn","usage":{}}`)
	resp, err := parseAnthropicResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "part one part two" {
		t.Errorf("text blocks should concatenate, got %q", resp.Text())
	}
}

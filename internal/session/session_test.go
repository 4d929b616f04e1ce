package session

import (
	"testing"

	"github.com/erwiqair/skydesk/internal/schema"
)

// ─── Session ─────────────────────────────────────────────────────────────────

func TestSession_HistoryWindow(t *testing.T) {
	s := &Session{Key: "cli:local", Messages: schema.NewMessages()}

	s.AddUser("first")
	s.AddAssistant("reply one", nil)
	s.AddUser("second")
	s.AddAssistant("reply two", nil)

	if got := s.Len(); got != 4 {
		t.Fatalf("Len() = %d, want 4", got)
	}

	all := s.GetHistory(0)
	if all.Len() != 4 {
		t.Errorf("GetHistory(0) returned %d messages, want 4", all.Len())
	}

	tail := s.GetHistory(2)
	if tail.Len() != 2 {
		t.Fatalf("GetHistory(2) returned %d messages, want 2", tail.Len())
	}
	if got := tail.Messages[0].Text(); got != "second" {
		t.Errorf("window starts at %q, want %q", got, "second")
	}
	if got := tail.Messages[1].Text(); got != "reply two" {
		t.Errorf("window ends at %q, want %q", got, "reply two")
	}
}

func TestSession_HistoryIsACopy(t *testing.T) {
	s := &Session{Key: "cli:local", Messages: schema.NewMessages()}
	s.AddUser("hello")

	h := s.GetHistory(0)
	h.AddUser("mutated")

	if got := s.Len(); got != 1 {
		t.Errorf("session grew to %d messages after mutating a history copy", got)
	}
}

func TestSession_AddAssistantRecordsTools(t *testing.T) {
	s := &Session{Key: "cli:local", Messages: schema.NewMessages()}
	s.AddAssistant("Your flight departs at 08:30.", []string{"get_flight_status"})

	msg := s.Messages.Messages[0]
	if len(msg.ToolsUsed) != 1 || msg.ToolsUsed[0] != "get_flight_status" {
		t.Errorf("ToolsUsed = %v, want [get_flight_status]", msg.ToolsUsed)
	}
	if got := msg.Text(); got != "Your flight departs at 08:30." {
		t.Errorf("Text() = %q", got)
	}
}

func TestSession_Clear(t *testing.T) {
	s := &Session{Key: "cli:local", Messages: schema.NewMessages()}
	s.AddUser("hello")
	s.AddAssistant("hi", nil)

	s.Clear()

	if got := s.Len(); got != 0 {
		t.Errorf("Len() after Clear = %d, want 0", got)
	}
	if s.Key != "cli:local" {
		t.Errorf("Clear dropped the session key")
	}
}

// ─── Manager persistence ─────────────────────────────────────────────────────

func TestManager_SaveAndReload(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	s := m.GetOrCreate("telegram:12345")
	s.AddUser("what is the baggage allowance?")

	content := "Checking our policies."
	s.Messages.Add(schema.Message{
		Role:    "assistant",
		Content: &content,
		ToolCalls: []schema.ToolCall{{
			ID:        "call_1",
			Name:      "search_airline_policies",
			Arguments: map[string]any{"query": "baggage allowance"},
		}},
	})
	s.Messages.AddToolResult("call_1", "search_airline_policies", "Economy: 15kg checked baggage.")
	s.AddAssistant("Economy class includes 15kg of checked baggage.", []string{"search_airline_policies"})

	if err := m.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh manager over the same directory must reconstruct the session.
	m2, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	got := m2.GetOrCreate("telegram:12345")

	if got.Len() != 4 {
		t.Fatalf("reloaded session has %d messages, want 4", got.Len())
	}

	msgs := got.Messages.Messages
	if msgs[0].Role != "user" || msgs[0].Text() != "what is the baggage allowance?" {
		t.Errorf("message 0 = %+v", msgs[0])
	}
	if len(msgs[1].ToolCalls) != 1 {
		t.Fatalf("message 1 has %d tool calls, want 1", len(msgs[1].ToolCalls))
	}
	tc := msgs[1].ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "search_airline_policies" {
		t.Errorf("tool call = %+v", tc)
	}
	if q, _ := tc.Arguments["query"].(string); q != "baggage allowance" {
		t.Errorf("tool call arguments = %v", tc.Arguments)
	}
	if msgs[2].Role != "tool" || msgs[2].ToolCallID != "call_1" || msgs[2].ToolName != "search_airline_policies" {
		t.Errorf("message 2 = %+v", msgs[2])
	}
	if msgs[3].Text() != "Economy class includes 15kg of checked baggage." {
		t.Errorf("message 3 text = %q", msgs[3].Text())
	}
	if len(msgs[3].ToolsUsed) != 1 || msgs[3].ToolsUsed[0] != "search_airline_policies" {
		t.Errorf("message 3 tools used = %v", msgs[3].ToolsUsed)
	}
}

func TestManager_GetOrCreateCaches(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	a := m.GetOrCreate("cli:local")
	b := m.GetOrCreate("cli:local")
	if a != b {
		t.Errorf("GetOrCreate returned distinct sessions for the same key")
	}
}

func TestManager_InvalidateForcesReload(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	s := m.GetOrCreate("slack:C1:U1")
	s.AddUser("hello")
	if err := m.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m.Invalidate("slack:C1:U1")

	reloaded := m.GetOrCreate("slack:C1:U1")
	if reloaded == s {
		t.Errorf("Invalidate did not evict the cached session")
	}
	if reloaded.Len() != 1 {
		t.Errorf("reloaded session has %d messages, want 1", reloaded.Len())
	}
}

func TestManager_ListSessions(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	first := m.GetOrCreate("cli:local")
	first.AddUser("hi")
	if err := m.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := m.GetOrCreate("telegram:99")
	second.AddUser("hello")
	if err := m.Save(second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list := m.ListSessions()
	if len(list) != 2 {
		t.Fatalf("ListSessions returned %d entries, want 2", len(list))
	}
	keys := map[string]bool{}
	for _, entry := range list {
		keys[entry.Key] = true
		if entry.Path == "" {
			t.Errorf("entry %q has no path", entry.Key)
		}
		if entry.UpdatedAt.IsZero() {
			t.Errorf("entry %q has no update time", entry.Key)
		}
	}
	if !keys["cli:local"] || !keys["telegram:99"] {
		t.Errorf("ListSessions keys = %v", keys)
	}
}

// ─── Filenames ───────────────────────────────────────────────────────────────

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"cli:local", "cli_local"},
		{"telegram:-100555", "telegram_-100555"},
		{`web/chat?id=1`, "web_chat_id=1"},
		{"  padded  ", "padded"},
	}
	for _, tc := range cases {
		if got := sanitizeKey(tc.in); got != tc.want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

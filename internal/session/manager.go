// Package session manages per-conversation history stored as JSONL files.
//
// Each transcript starts with a metadata header line followed by one JSON
// message object per line. Messages are append-only; /new starts over by
// clearing the session.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/erwiqair/skydesk/internal/schema"
)

const lineTypeMeta = "metadata"

// header is the first line of every transcript file.
type header struct {
	Type      string `json:"_type"`
	Key       string `json:"key"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// record is one persisted message line. Type is empty on message lines and
// lineTypeMeta on the header, which lets load route each line by decoding
// into this one struct.
type record struct {
	Type       string         `json:"_type,omitempty"`
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []toolCallJSON `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolsUsed  []string       `json:"tools_used,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// toolCallJSON mirrors the OpenAI function-call shape so transcripts stay
// readable by the same tooling that reads request logs.
type toolCallJSON struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

func encodeToolCall(tc schema.ToolCall) toolCallJSON {
	out := toolCallJSON{ID: tc.ID, Type: "function"}
	out.Function.Name = tc.Name
	args, err := json.Marshal(tc.Arguments)
	if err != nil {
		args = []byte("{}")
	}
	out.Function.Arguments = string(args)
	return out
}

func (c toolCallJSON) toolCall() schema.ToolCall {
	var args map[string]any
	_ = json.Unmarshal([]byte(c.Function.Arguments), &args)
	return schema.ToolCall{ID: c.ID, Name: c.Function.Name, Arguments: args}
}

func encodeMessage(msg schema.Message) record {
	text := msg.Text()
	rec := record{
		Role:       msg.Role,
		Content:    &text,
		ToolCallID: msg.ToolCallID,
		Name:       msg.ToolName,
		ToolsUsed:  msg.ToolsUsed,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, tc := range msg.ToolCalls {
		rec.ToolCalls = append(rec.ToolCalls, encodeToolCall(tc))
	}
	return rec
}

func (r record) message() schema.Message {
	msg := schema.Message{Role: r.Role, Content: ""}
	if r.Content != nil {
		msg.Content = *r.Content
	}
	for _, tc := range r.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, tc.toolCall())
	}
	msg.ToolCallID = r.ToolCallID
	msg.ToolName = r.Name
	msg.ToolsUsed = r.ToolsUsed
	return msg
}

// Manager loads and persists sessions as JSONL transcripts under one
// directory, with an in-memory cache so concurrent exchanges on the same
// key share a session.
type Manager struct {
	dir   string
	cache sync.Map // key → *Session
}

// NewManager creates a Manager rooted at dir, creating it if necessary.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// GetOrCreate returns the cached session for key, loading from disk if
// needed, or creating an empty new one.
func (m *Manager) GetOrCreate(key string) *Session {
	if v, ok := m.cache.Load(key); ok {
		return v.(*Session)
	}

	s := m.load(key)
	if s == nil {
		now := time.Now()
		s = &Session{Key: key, Messages: schema.NewMessages(), CreatedAt: now, UpdatedAt: now}
	}

	actual, _ := m.cache.LoadOrStore(key, s)
	return actual.(*Session)
}

// Save writes the session transcript to disk and refreshes the cache entry.
func (m *Manager) Save(s *Session) error {
	s.mu.Lock()
	msgs := s.Messages.Clone()
	hdr := header{
		Type:      lineTypeMeta,
		Key:       s.Key,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // transcripts hold ₹ and other non-ASCII text

	if err := enc.Encode(hdr); err != nil {
		return fmt.Errorf("encode transcript header: %w", err)
	}
	for _, msg := range msgs.Messages {
		if err := enc.Encode(encodeMessage(msg)); err != nil {
			return fmt.Errorf("encode transcript message: %w", err)
		}
	}

	if err := os.WriteFile(m.transcriptPath(s.Key), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", s.Key, err)
	}

	m.cache.Store(s.Key, s)
	return nil
}

// Invalidate removes a session from the in-memory cache (used after /new).
func (m *Manager) Invalidate(key string) {
	m.cache.Delete(key)
}

// load reads a transcript from disk, returning nil when none exists or the
// file is unreadable. Individually malformed lines are skipped so one bad
// write does not discard a whole conversation.
func (m *Manager) load(key string) *Session {
	f, err := os.Open(m.transcriptPath(key))
	if err != nil {
		return nil
	}
	defer f.Close()

	var hdr header
	msgs := schema.NewMessages()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1<<20), 1<<20) // 1 MB per line
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			slog.Warn("skipping unreadable transcript line", "key", key, "err", err)
			continue
		}
		if rec.Type == lineTypeMeta {
			_ = json.Unmarshal(line, &hdr)
			continue
		}
		msgs.Add(rec.message())
	}
	if err := sc.Err(); err != nil {
		slog.Warn("reading transcript failed", "key", key, "err", err)
		return nil
	}

	createdAt, err := time.Parse(time.RFC3339, hdr.CreatedAt)
	if err != nil {
		createdAt = time.Now()
	}
	return newSession(key, msgs, createdAt, time.Now())
}

// Info describes one stored transcript, read from its header line.
type Info struct {
	Key       string
	CreatedAt time.Time
	UpdatedAt time.Time
	Path      string
}

// ListSessions returns every stored transcript, newest-first.
func (m *Manager) ListSessions() []Info {
	paths, _ := filepath.Glob(filepath.Join(m.dir, "*.jsonl"))

	out := make([]Info, 0, len(paths))
	for _, p := range paths {
		if info, ok := readHeader(p); ok {
			out = append(out, info)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// readHeader reads just the first line of a transcript file.
func readHeader(path string) (Info, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return Info{}, false
	}
	var hdr header
	if json.Unmarshal(sc.Bytes(), &hdr) != nil || hdr.Type != lineTypeMeta {
		return Info{}, false
	}

	info := Info{Key: hdr.Key, Path: path}
	if info.Key == "" {
		info.Key = keyFromFilename(path)
	}
	info.CreatedAt, _ = time.Parse(time.RFC3339, hdr.CreatedAt)
	info.UpdatedAt, _ = time.Parse(time.RFC3339, hdr.UpdatedAt)
	return info, true
}

// keyFromFilename recovers a session key from a transcript filename written
// before header keys were recorded. Only the channel separator comes back;
// underscores inside chat ids are left alone.
func keyFromFilename(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	return strings.Replace(base, "_", ":", 1)
}

// transcriptPath maps a session key to its file under the sessions dir.
func (m *Manager) transcriptPath(key string) string {
	return filepath.Join(m.dir, sanitizeKey(key)+".jsonl")
}

// sanitizeKey turns a session key into a filesystem-safe file stem.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

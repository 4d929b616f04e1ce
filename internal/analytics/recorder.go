// Package analytics records per-exchange outcomes and aggregates them into
// usage counters. The recorder is the logging sink the orchestrator writes
// to; the gateway and CLI read summaries back out.
package analytics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erwiqair/skydesk/internal/shared/stringutils"
)

// replyKeepLen caps the stored assistant reply so the audit log stays small.
const replyKeepLen = 500

// Interaction is one recorded exchange.
type Interaction struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	UserMessage    string    `json:"user_message"`
	Reply          string    `json:"assistant_response"`
	ToolsUsed      []string  `json:"tools_used"`
	Backend        string    `json:"backend"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	Error          string    `json:"error,omitempty"`
}

// Summary is the aggregated view over all recorded exchanges.
type Summary struct {
	TotalQueries      int            `json:"total_queries"`
	TotalErrors       int            `json:"total_errors"`
	AvgResponseTimeMS float64        `json:"avg_response_time_ms"`
	ToolUsage         map[string]int `json:"tool_usage"`
	BackendUsage      map[string]int `json:"backend_usage"`
}

// Recorder accumulates interactions. Safe for concurrent use; the gateway
// records from many exchanges at once.
type Recorder struct {
	mu           sync.Mutex
	logs         []Interaction
	errors       int
	totalLatency time.Duration
	tools        map[string]int
	backends     map[string]int
	metrics      *Metrics
}

// NewRecorder creates an empty recorder. metrics may be nil; recording then
// skips the Prometheus observation.
func NewRecorder(metrics *Metrics) *Recorder {
	return &Recorder{
		tools:    make(map[string]int),
		backends: make(map[string]int),
		metrics:  metrics,
	}
}

// Record stores one exchange and updates the aggregates. Missing ID and
// timestamp are filled in; the reply is truncated for storage.
func (r *Recorder) Record(in Interaction) Interaction {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}
	in.Reply = stringutils.Truncate(in.Reply, replyKeepLen)
	if in.ToolsUsed == nil {
		in.ToolsUsed = []string{}
	}

	latency := time.Duration(in.ResponseTimeMS * float64(time.Millisecond))

	r.mu.Lock()
	r.logs = append(r.logs, in)
	r.totalLatency += latency
	r.backends[in.Backend]++
	for _, tool := range in.ToolsUsed {
		r.tools[tool]++
	}
	if in.Error != "" {
		r.errors++
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.observe(in)
	}
	return in
}

// Recent returns the n most recent interactions, oldest first.
func (r *Recorder) Recent(n int) []Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.logs) {
		n = len(r.logs)
	}
	out := make([]Interaction, n)
	copy(out, r.logs[len(r.logs)-n:])
	return out
}

// Summary returns the aggregated counters. Maps are copies.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		TotalQueries: len(r.logs),
		TotalErrors:  r.errors,
		ToolUsage:    make(map[string]int, len(r.tools)),
		BackendUsage: make(map[string]int, len(r.backends)),
	}
	if len(r.logs) > 0 {
		avg := r.totalLatency / time.Duration(len(r.logs))
		s.AvgResponseTimeMS = float64(avg.Microseconds()) / 1000
	}
	for k, v := range r.tools {
		s.ToolUsage[k] = v
	}
	for k, v := range r.backends {
		s.BackendUsage[k] = v
	}
	return s
}

// Reset clears all recorded interactions and counters.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = nil
	r.errors = 0
	r.totalLatency = 0
	r.tools = make(map[string]int)
	r.backends = make(map[string]int)
}

// ExportLogs writes the full audit log to path as indented JSON.
func (r *Recorder) ExportLogs(path string) error {
	r.mu.Lock()
	logs := make([]Interaction, len(r.logs))
	copy(logs, r.logs)
	r.mu.Unlock()

	data, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal audit logs: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write audit logs: %w", err)
	}
	return nil
}

// ExportSummary writes the aggregated summary to path as indented JSON.
func (r *Recorder) ExportSummary(path string) error {
	data, err := json.MarshalIndent(r.Summary(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

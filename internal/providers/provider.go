// Package providers implements the three LLM backends skydesk can route an
// exchange through: OpenAI (primary, tool-capable), Anthropic Claude
// (secondary), and Google Gemini (tertiary). OpenAI and Claude are direct
// HTTP clients; Gemini goes through the official genai SDK. The OpenAI
// client additionally serves embeddings and destination images.
package providers

import (
	"context"
	"fmt"

	"github.com/erwiqair/skydesk/internal/schema"
)

// Canonical backend names. FallbackOrder is the fixed order backends are
// tried in when no preference reorders them.
const (
	BackendOpenAI = "openai"
	BackendClaude = "claude"
	BackendGemini = "gemini"
)

// FallbackOrder returns the canonical backend order as a fresh slice.
func FallbackOrder() []string {
	return []string{BackendOpenAI, BackendClaude, BackendGemini}
}

// Backend is a single LLM service able to produce a conversational
// completion. Implementations translate the uniform conversation into their
// own wire shape and back.
type Backend interface {
	Name() string
	// Complete returns the model's plain-text reply to the conversation.
	Complete(ctx context.Context, system string, conv schema.Messages, opts schema.ChatOptions) (string, error)
}

// ToolCapable is a Backend that can additionally advertise tools and return
// pending tool calls. Only the OpenAI backend implements it.
type ToolCapable interface {
	Backend
	CompleteWithTools(ctx context.Context, system string, conv schema.Messages, tools []map[string]any, opts schema.ChatOptions) (schema.LLMResponse, error)
}

// BackendError marks any transport, auth, rate-limit, or API-level failure
// from a specific backend. The fallback orchestrator is the only place that
// handles it; backends never swallow their own failures.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Unavailable wraps err as a BackendError for the named backend.
func Unavailable(backend string, err error) *BackendError {
	return &BackendError{Backend: backend, Err: err}
}

// Unavailablef formats a new BackendError for the named backend.
func Unavailablef(backend, format string, args ...any) *BackendError {
	return &BackendError{Backend: backend, Err: fmt.Errorf(format, args...)}
}

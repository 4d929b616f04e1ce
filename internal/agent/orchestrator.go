// Package agent is the conversational core: it assembles the conversation
// for each exchange, drives the one-round tool-calling loop on the primary
// backend, and falls back across backends until one produces a reply.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/erwiqair/skydesk/internal/analytics"
	"github.com/erwiqair/skydesk/internal/config"
	"github.com/erwiqair/skydesk/internal/notify"
	"github.com/erwiqair/skydesk/internal/providers"
	"github.com/erwiqair/skydesk/internal/schema"
)

// DegradedMessage is the reply returned verbatim when every backend fails.
const DegradedMessage = "I apologize, but I'm experiencing technical difficulties. Please try again later or contact ERWIQ Airlines support at 1800-ERWIQ-AIR."

// BackendNone is the backend sentinel recorded when no backend produced a
// reply.
const BackendNone = "none"

// defaultAttemptTimeout bounds one backend attempt when the config carries
// no value.
const defaultAttemptTimeout = 60 * time.Second

// Outcome is the result of one handled exchange.
type Outcome struct {
	Reply     string
	Backend   string        // backend that replied, or BackendNone
	ToolsUsed []string      // never nil
	Elapsed   time.Duration // time spent producing the reply
	Error     string        // last backend error when Backend is BackendNone
}

// Orchestrator routes each exchange through the configured backends in
// fallback order: the preferred backend first, then the remaining ones in
// canonical order, each tried at most once. The first success wins.
type Orchestrator struct {
	backends map[string]providers.Backend
	loop     *ToolLoop
	recorder *analytics.Recorder
	notifier *notify.Dispatcher

	preferred string
	timeout   time.Duration
	opts      schema.ChatOptions
}

// NewOrchestrator creates an Orchestrator over the given backends. Backends
// are addressed by their Name(); unknown names in the fallback sequence are
// treated as failed attempts.
func NewOrchestrator(
	backends []providers.Backend,
	loop *ToolLoop,
	recorder *analytics.Recorder,
	notifier *notify.Dispatcher,
	cfg config.AgentConfig,
) *Orchestrator {
	byName := make(map[string]providers.Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}

	timeout := time.Duration(cfg.BackendTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}

	return &Orchestrator{
		backends:  byName,
		loop:      loop,
		recorder:  recorder,
		notifier:  notifier,
		preferred: cfg.PreferredBackend,
		timeout:   timeout,
		opts:      schema.NewChatOptions("", cfg.MaxTokens, cfg.Temperature),
	}
}

// Handle answers userMessage against the conversation history, trying
// backends in fallback order until one succeeds. Every attempt is recorded;
// when all backends fail the reply is DegradedMessage, the backend is
// BackendNone, and a single error notification is raised.
func (o *Orchestrator) Handle(ctx context.Context, userMessage string, history schema.Messages, preferred string) Outcome {
	start := time.Now()

	var lastErr error
	for _, name := range o.sequence(preferred) {
		slog.Info("Trying backend", "backend", name)

		attemptStart := time.Now()
		reply, toolsUsed, err := o.attempt(ctx, name, userMessage, history)
		elapsed := time.Since(attemptStart)

		if err != nil {
			lastErr = err
			slog.Warn("Backend failed", "backend", name, "err", err)
			o.recorder.Record(analytics.Interaction{
				UserMessage:    userMessage,
				Backend:        name,
				ResponseTimeMS: float64(elapsed.Microseconds()) / 1000,
				Error:          err.Error(),
			})
			continue
		}

		slog.Info("Backend responded", "backend", name, "elapsed", elapsed)
		o.recorder.Record(analytics.Interaction{
			UserMessage:    userMessage,
			Reply:          reply,
			ToolsUsed:      toolsUsed,
			Backend:        name,
			ResponseTimeMS: float64(elapsed.Microseconds()) / 1000,
		})

		return Outcome{
			Reply:     reply,
			Backend:   name,
			ToolsUsed: toolsUsed,
			Elapsed:   elapsed,
		}
	}

	errText := "no backends configured"
	if lastErr != nil {
		errText = lastErr.Error()
	}
	slog.Error("All backends failed", "err", errText)
	o.notifier.Notify(notify.Event{
		Title:    "All Models Failed",
		Message:  errText,
		Severity: notify.SeverityError,
	})

	return Outcome{
		Reply:     DegradedMessage,
		Backend:   BackendNone,
		ToolsUsed: []string{},
		Elapsed:   time.Since(start),
		Error:     errText,
	}
}

// attempt runs one bounded exchange against the named backend. The primary
// tool-capable backend goes through the tool loop; the rest answer from the
// conversation alone.
func (o *Orchestrator) attempt(ctx context.Context, name, userMessage string, history schema.Messages) (string, []string, error) {
	backend, ok := o.backends[name]
	if !ok {
		return "", nil, providers.Unavailablef(name, "backend not configured")
	}

	actx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	conv := history.Clone()
	conv.AddUser(userMessage)

	if tc, ok := backend.(providers.ToolCapable); ok {
		return o.loop.Run(actx, tc, SystemMessage, conv, o.opts)
	}

	reply, err := backend.Complete(actx, SystemMessage, conv, o.opts)
	if err != nil {
		return "", nil, err
	}
	return reply, []string{}, nil
}

// sequence returns the backend order for one exchange: the preferred backend
// first when it names a known backend, then the remaining canonical order.
// An empty preference falls back to the configured default.
func (o *Orchestrator) sequence(preferred string) []string {
	order := providers.FallbackOrder()

	if preferred == "" {
		preferred = o.preferred
	}

	switch preferred {
	case providers.BackendOpenAI, providers.BackendClaude, providers.BackendGemini:
	default:
		return order
	}

	seq := make([]string, 0, len(order))
	seq = append(seq, preferred)
	for _, name := range order {
		if name != preferred {
			seq = append(seq, name)
		}
	}
	return seq
}

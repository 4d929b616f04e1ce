package agent

import (
	"context"
	"log/slog"

	"github.com/erwiqair/skydesk/internal/providers"
	"github.com/erwiqair/skydesk/internal/schema"
	"github.com/erwiqair/skydesk/internal/shared/stringutils"
	"github.com/erwiqair/skydesk/internal/tools"
)

// ToolLoop runs the tool-calling exchange against a tool-capable backend.
//
// The flow is fixed at one tool round: the first completion advertises the
// registry's definitions, any requested calls are resolved in the order the
// model emitted them, and a second completion turns the results into text.
// The second completion advertises no tools, and any tool calls it returns
// anyway are dropped.
type ToolLoop struct {
	registry *tools.Registry
}

// NewToolLoop creates a ToolLoop over the given registry.
func NewToolLoop(registry *tools.Registry) *ToolLoop {
	return &ToolLoop{registry: registry}
}

// Run completes conv against backend and returns the final reply text plus
// the names of the tools used, in invocation order. conv must already end
// with the user's message.
func (l *ToolLoop) Run(
	ctx context.Context,
	backend providers.ToolCapable,
	system string,
	conv schema.Messages,
	opts schema.ChatOptions,
) (string, []string, error) {
	toolsUsed := []string{}

	resp, err := backend.CompleteWithTools(ctx, system, conv, l.registry.Definitions(), opts)
	if err != nil {
		return "", nil, err
	}

	if !resp.HasToolCalls() {
		return resp.Text(), toolsUsed, nil
	}

	conv.AddAssistant(resp.Content, resp.ToolCalls)
	slog.Info("Running tool round", "calls", stringutils.ToolHint(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		toolsUsed = append(toolsUsed, tc.Name)

		result := l.registry.Invoke(ctx, tc.Name, tc.Arguments)
		conv.AddToolResult(tc.ID, tc.Name, result)
	}

	final, err := backend.CompleteWithTools(ctx, system, conv, nil, opts)
	if err != nil {
		return "", nil, err
	}
	if final.HasToolCalls() {
		slog.Warn("Dropping tool calls requested after the tool round",
			"count", len(final.ToolCalls))
	}

	return final.Text(), toolsUsed, nil
}

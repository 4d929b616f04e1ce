// Package tools implements the capability registry and the airline lookup
// tools the model can call during an exchange.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is the contract a capability must satisfy to be registered. The
// registry is the only consumer: it advertises Name/Description/Parameters
// to the model and dispatches Execute when the model calls back.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (raw bytes) describing the
	// arguments Execute accepts.
	Parameters() json.RawMessage
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// Registry holds the named capabilities advertised to the model. Tools
// register once at startup and the registry is read-only afterward, so
// concurrent exchanges share it without locking.
type Registry struct {
	order    []string
	tools    map[string]Tool
	resolved map[string]*jsonschema.Resolved
}

// NewRegistry builds a registry from the given tools. It fails if any tool
// declares a parameter schema that does not compile; a tool with an
// unenforceable contract must not reach the model.
func NewRegistry(ts ...Tool) (*Registry, error) {
	r := &Registry{
		tools:    make(map[string]Tool, len(ts)),
		resolved: make(map[string]*jsonschema.Resolved, len(ts)),
	}
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool, compiling its parameter schema for invoke-time
// validation. Registering an existing name replaces the earlier tool.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	var s jsonschema.Schema
	if err := json.Unmarshal(t.Parameters(), &s); err != nil {
		return fmt.Errorf("tool %s: parse parameter schema: %w", name, err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return fmt.Errorf("tool %s: resolve parameter schema: %w", name, err)
	}
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	r.resolved[name] = resolved
	return nil
}

// Get returns the tool registered under name, or nil.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Definitions returns all tool definitions in OpenAI function-calling
// format, in registration order so the advertised list is stable.
func (r *Registry) Definitions() []map[string]any {
	list := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		var params any
		if err := json.Unmarshal(t.Parameters(), &params); err != nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		list = append(list, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  params,
			},
		})
	}
	return list
}

// Invoke runs the named tool against params. Every failure mode comes back
// as model-visible text: unknown names, parameters the schema rejects, and
// handler errors all stay recoverable within the exchange instead of
// aborting it.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) string {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Error: Unknown tool '%s'", name)
	}
	if params == nil {
		params = map[string]any{}
	}
	if rs := r.resolved[name]; rs != nil {
		if err := rs.Validate(params); err != nil {
			slog.Warn("tool parameters rejected", "tool", name, "error", err)
			return fmt.Sprintf("Error: Invalid parameters for tool '%s': %v", name, err)
		}
	}
	result, err := t.Execute(ctx, params)
	if err != nil {
		slog.Error("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Error executing tool '%s': %v", name, err)
	}
	return result
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erwiqair/skydesk/internal/schema"
	"github.com/erwiqair/skydesk/internal/shared/stringutils"
)

// AnthropicClient makes direct HTTP calls to the Anthropic Messages API.
// It is the secondary chat backend and answers in plain text only; tool
// execution stays with the primary backend.
type AnthropicClient struct {
	apiKey     string
	apiBase    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewAnthropicClient constructs a client from raw config values.
func NewAnthropicClient(apiKey, apiBase, model string, maxTokens int) *AnthropicClient {
	if apiBase == "" {
		apiBase = "https://api.anthropic.com/v1"
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicClient{
		apiKey:     apiKey,
		apiBase:    strings.TrimRight(apiBase, "/"),
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *AnthropicClient) Name() string { return BackendClaude }

// Configured reports whether the client has credentials to call the API.
func (c *AnthropicClient) Configured() bool { return c.apiKey != "" }

// Complete implements Backend against the Messages API. The system prompt
// rides as a top-level parameter, not as a conversation turn.
func (c *AnthropicClient) Complete(ctx context.Context, system string, conv schema.Messages, opts schema.ChatOptions) (string, error) {
	if c.apiKey == "" {
		return "", Unavailablef(BackendClaude, "client not configured")
	}

	model := stringutils.StringOrDefault(opts.Model, c.model)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	body := map[string]any{
		"model":       model,
		"messages":    anthropicMessages(conv),
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	}
	if system != "" {
		body["system"] = system
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", Unavailable(BackendClaude, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Unavailable(BackendClaude, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", Unavailablef(BackendClaude, "HTTP %d: %s",
			resp.StatusCode, friendlyHTTPError(resp.StatusCode, raw))
	}

	parsed, err := parseAnthropicResponse(raw)
	if err != nil {
		return "", Unavailable(BackendClaude, err)
	}
	return parsed.Text(), nil
}

// ---------------------------------------------------------------------------
// Wire conversion
// ---------------------------------------------------------------------------

// anthropicMessages converts typed messages to the Messages API wire format.
// Anthropic requires strict user/assistant alternation with tool results
// folded into user turns, so tool messages merge into the preceding user
// message when adjacent.
func anthropicMessages(conv schema.Messages) []map[string]any {
	var out []map[string]any

	for _, msg := range conv.Messages {
		switch msg.Role {
		case "user":
			out = append(out, map[string]any{
				"role":    "user",
				"content": msg.Content,
			})

		case "tool":
			block := map[string]any{
				"type":        "tool_result",
				"tool_use_id": msg.ToolCallID,
				"content":     msg.Text(),
			}
			if len(out) > 0 && out[len(out)-1]["role"] == "user" {
				prev := out[len(out)-1]
				switch c := prev["content"].(type) {
				case []any:
					prev["content"] = append(c, block)
				default:
					prev["content"] = []any{block}
				}
			} else {
				out = append(out, map[string]any{"role": "user", "content": []any{block}})
			}

		case "assistant":
			var blocks []any
			if s, ok := msg.Content.(*string); ok && s != nil && *s != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": *s})
			} else if s, ok := msg.Content.(string); ok && s != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": s})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Arguments,
				})
			}
			if len(blocks) == 0 {
				blocks = []any{map[string]any{"type": "text", "text": ""}}
			}
			out = append(out, map[string]any{"role": "assistant", "content": blocks})
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// anthropicRespBody models the Messages API response.
type anthropicRespBody struct {
	Content []struct {
		Type  string         `json:"type"`
		Text  string         `json:"text"`  // type=text
		ID    string         `json:"id"`    // type=tool_use
		Name  string         `json:"name"`  // type=tool_use
		Input map[string]any `json:"input"` // type=tool_use
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func parseAnthropicResponse(raw []byte) (schema.LLMResponse, error) {
	var body anthropicRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.LLMResponse{}, fmt.Errorf("parse Anthropic response: %w", err)
	}

	var contentStr string
	var toolCalls []schema.ToolCall

	for _, block := range body.Content {
		switch block.Type {
		case "text":
			contentStr += block.Text
		case "tool_use":
			toolCalls = append(toolCalls, schema.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}

	var content *string
	if contentStr != "" {
		content = &contentStr
	}

	finish := "stop"
	if body.StopReason == "tool_use" {
		finish = "tool_calls"
	} else if body.StopReason != "" && body.StopReason != "end_turn" {
		finish = body.StopReason
	}

	usage := map[string]int{
		"prompt_tokens":     body.Usage.InputTokens,
		"completion_tokens": body.Usage.OutputTokens,
		"total_tokens":      body.Usage.InputTokens + body.Usage.OutputTokens,
	}

	return schema.LLMResponse{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage:        usage,
	}, nil
}

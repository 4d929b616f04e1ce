package providers

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/erwiqair/skydesk/internal/schema"
	"github.com/erwiqair/skydesk/internal/shared/stringutils"
)

// GeminiClient wraps the Google GenAI SDK. It is the tertiary chat backend,
// text-only like the Anthropic client.
type GeminiClient struct {
	apiKey string
	model  string

	initOnce sync.Once
	client   *genai.Client
	initErr  error
}

// NewGeminiClient constructs a client from raw config values. The underlying
// SDK client is created lazily on first use so an unconfigured tertiary
// backend never blocks startup.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{apiKey: apiKey, model: model}
}

func (c *GeminiClient) Name() string { return BackendGemini }

// Configured reports whether the client has credentials to call the API.
func (c *GeminiClient) Configured() bool { return c.apiKey != "" }

func (c *GeminiClient) ensureClient(ctx context.Context) (*genai.Client, error) {
	c.initOnce.Do(func() {
		c.client, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return c.client, c.initErr
}

// Complete implements Backend via Models.GenerateContent. The system prompt
// becomes the SystemInstruction and the conversation maps onto alternating
// user/model contents.
func (c *GeminiClient) Complete(ctx context.Context, system string, conv schema.Messages, opts schema.ChatOptions) (string, error) {
	if c.apiKey == "" {
		return "", Unavailablef(BackendGemini, "client not configured")
	}
	client, err := c.ensureClient(ctx)
	if err != nil {
		return "", Unavailable(BackendGemini, fmt.Errorf("init client: %w", err))
	}

	model := stringutils.StringOrDefault(opts.Model, c.model)

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, model, geminiContents(conv), cfg)
	if err != nil {
		return "", Unavailable(BackendGemini, err)
	}
	text := resp.Text()
	if text == "" {
		return "", Unavailablef(BackendGemini, "empty response")
	}
	return text, nil
}

// geminiContents converts the conversation to GenAI contents. Tool results
// surface as user-role context since this backend never requests tools
// itself; assistant turns that carried only tool calls are skipped.
func geminiContents(conv schema.Messages) []*genai.Content {
	out := make([]*genai.Content, 0, conv.Len())
	for _, m := range conv.Messages {
		switch m.Role {
		case "user", "tool":
			if t := m.Text(); t != "" {
				out = append(out, genai.NewContentFromText(t, genai.RoleUser))
			}
		case "assistant":
			if t := m.Text(); t != "" {
				out = append(out, genai.NewContentFromText(t, genai.RoleModel))
			}
		}
	}
	return out
}

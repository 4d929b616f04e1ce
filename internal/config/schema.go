// Package config defines the configuration schema for skydesk.
//
// Config lives at ~/.skydesk/config.json. API keys left empty in the file
// are filled from the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY,
// GEMINI_API_KEY) at load time.
package config

import (
	"os"
	"path/filepath"
)

// ---- Provider configs -------------------------------------------------------

// OpenAIConfig holds credentials and model names for the OpenAI backend.
// This backend also serves embeddings and destination images.
type OpenAIConfig struct {
	APIKey         string `json:"apiKey"`
	APIBase        string `json:"apiBase"`
	Model          string `json:"model"`
	EmbeddingModel string `json:"embeddingModel"`
	ImageModel     string `json:"imageModel"`
}

func defaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		APIBase:        "https://api.openai.com/v1",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		ImageModel:     "dall-e-3",
	}
}

// AnthropicConfig holds credentials and the model name for the Claude backend.
type AnthropicConfig struct {
	APIKey    string `json:"apiKey"`
	APIBase   string `json:"apiBase"`
	Model     string `json:"model"`
	MaxTokens int    `json:"maxTokens"`
}

func defaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{
		APIBase:   "https://api.anthropic.com/v1",
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 1024,
	}
}

// GeminiConfig holds credentials and the model name for the Gemini backend.
type GeminiConfig struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

func defaultGeminiConfig() GeminiConfig {
	return GeminiConfig{Model: "gemini-2.0-flash"}
}

// ProvidersConfig holds credentials for all supported backends.
type ProvidersConfig struct {
	OpenAI    OpenAIConfig    `json:"openai"`
	Anthropic AnthropicConfig `json:"anthropic"`
	Gemini    GeminiConfig    `json:"gemini"`
}

func defaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		OpenAI:    defaultOpenAIConfig(),
		Anthropic: defaultAnthropicConfig(),
		Gemini:    defaultGeminiConfig(),
	}
}

// ---- Agent config ------------------------------------------------------------

// AgentConfig holds default values for exchange handling.
type AgentConfig struct {
	PreferredBackend string  `json:"preferredBackend"`
	MaxTokens        int     `json:"maxTokens"`
	Temperature      float64 `json:"temperature"`
	BackendTimeout   int     `json:"backendTimeoutSeconds"` // per backend attempt
	MaxHistory       int     `json:"maxHistory"`            // turns kept per session
}

func defaultAgentConfig() AgentConfig {
	return AgentConfig{
		PreferredBackend: "openai",
		MaxTokens:        1024,
		Temperature:      0.7,
		BackendTimeout:   60,
		MaxHistory:       40,
	}
}

// ---- Retrieval config ---------------------------------------------------------

// RetrievalConfig controls the policy knowledge store.
// RelevanceThreshold is the minimum top-score for a query to count as
// answered; below it the store returns its fixed not-found message.
type RetrievalConfig struct {
	SnapshotPath       string  `json:"snapshotPath"`
	TopK               int     `json:"topK"`
	RelevanceThreshold float64 `json:"relevanceThreshold"`
}

func defaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:               3,
		RelevanceThreshold: 0.3,
	}
}

// ---- Channel configs -----------------------------------------------------------

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
}

func defaultTelegramConfig() TelegramConfig {
	return TelegramConfig{AllowFrom: []string{}}
}

// SlackConfig configures the Slack channel (Socket Mode).
type SlackConfig struct {
	Enabled   bool     `json:"enabled"`
	BotToken  string   `json:"botToken"`
	AppToken  string   `json:"appToken"`
	AllowFrom []string `json:"allowFrom"`
}

func defaultSlackConfig() SlackConfig {
	return SlackConfig{AllowFrom: []string{}}
}

// WebChatConfig configures the embedded web-widget channel served by the
// gateway's websocket endpoint.
type WebChatConfig struct {
	Enabled bool `json:"enabled"`
}

func defaultWebChatConfig() WebChatConfig {
	return WebChatConfig{Enabled: true}
}

// ChannelsConfig groups all channel configurations.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
	WebChat  WebChatConfig  `json:"webchat"`
}

func defaultChannelsConfig() ChannelsConfig {
	return ChannelsConfig{
		Telegram: defaultTelegramConfig(),
		Slack:    defaultSlackConfig(),
		WebChat:  defaultWebChatConfig(),
	}
}

// ---- Gateway / watchdog ----------------------------------------------------------

// GatewayConfig holds gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func defaultGatewayConfig() GatewayConfig {
	return GatewayConfig{Host: "0.0.0.0", Port: 8790}
}

// WatchdogConfig controls the recurring service-health checks.
type WatchdogConfig struct {
	Enabled      bool   `json:"enabled"`
	Schedule     string `json:"schedule"`     // cron spec, e.g. "@every 1m"
	ErrorRatePct int    `json:"errorRatePct"` // warn above this error percentage
	MinExchanges int    `json:"minExchanges"` // error-rate check needs this many exchanges
	AvgLatencyMs int    `json:"avgLatencyMs"` // warn above this running average
}

func defaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		Enabled:      true,
		Schedule:     "@every 1m",
		ErrorRatePct: 10,
		MinExchanges: 10,
		AvgLatencyMs: 5000,
	}
}

// ---- Root config -----------------------------------------------------------

// Config is the root configuration object, loaded from ~/.skydesk/config.json.
type Config struct {
	Providers ProvidersConfig `json:"providers"`
	Agent     AgentConfig     `json:"agent"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
	Watchdog  WatchdogConfig  `json:"watchdog"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Providers: defaultProvidersConfig(),
		Agent:     defaultAgentConfig(),
		Retrieval: defaultRetrievalConfig(),
		Channels:  defaultChannelsConfig(),
		Gateway:   defaultGatewayConfig(),
		Watchdog:  defaultWatchdogConfig(),
	}
}

// SnapshotPath returns the expanded path of the knowledge snapshot file,
// defaulting to <data dir>/knowledge.json.
func (c *Config) SnapshotPath() string {
	p := c.Retrieval.SnapshotPath
	if p == "" {
		return filepath.Join(DataDir(), "knowledge.json")
	}
	return expandHome(p)
}

// SessionsDir returns the directory session transcripts are written to.
func (c *Config) SessionsDir() string {
	return filepath.Join(DataDir(), "sessions")
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

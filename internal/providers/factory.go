package providers

// Params are the raw values needed to construct the backend set.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	OpenAIKey        string
	OpenAIBase       string
	OpenAIModel      string
	OpenAIEmbedModel string
	OpenAIImageModel string

	AnthropicKey       string
	AnthropicBase      string
	AnthropicModel     string
	AnthropicMaxTokens int

	GeminiKey   string
	GeminiModel string
}

// Set bundles the three chat backends. All three are always constructed,
// even without credentials; an unconfigured backend reports a typed
// BackendError when called, which the fallback chain records as a failure.
type Set struct {
	OpenAI *OpenAIClient
	Claude *AnthropicClient
	Gemini *GeminiClient
}

// NewSet creates the full backend set for the given params.
func NewSet(p Params) *Set {
	return &Set{
		OpenAI: NewOpenAIClient(p.OpenAIKey, p.OpenAIBase, p.OpenAIModel, p.OpenAIEmbedModel, p.OpenAIImageModel),
		Claude: NewAnthropicClient(p.AnthropicKey, p.AnthropicBase, p.AnthropicModel, p.AnthropicMaxTokens),
		Gemini: NewGeminiClient(p.GeminiKey, p.GeminiModel),
	}
}

// ByName resolves a canonical backend name to its client, or nil for an
// unknown name.
func (s *Set) ByName(name string) Backend {
	switch name {
	case BackendOpenAI:
		return s.OpenAI
	case BackendClaude:
		return s.Claude
	case BackendGemini:
		return s.Gemini
	}
	return nil
}

// ConfiguredNames returns the canonical-order names of backends that have
// credentials. Used by status reporting.
func (s *Set) ConfiguredNames() []string {
	var out []string
	if s.OpenAI.Configured() {
		out = append(out, BackendOpenAI)
	}
	if s.Claude.Configured() {
		out = append(out, BackendClaude)
	}
	if s.Gemini.Configured() {
		out = append(out, BackendGemini)
	}
	return out
}

package llm

import "encoding/json"

// Provider identifies an upstream LLM service.
type Provider int

const (
	ProviderGroq Provider = iota
	ProviderTogether
	ProviderGemini
)

// String returns the wire name of the provider.
func (p Provider) String() string {
	switch p {
	case ProviderGroq:
		return "groq"
	case ProviderTogether:
		return "together"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// Label returns the human-readable model label shown to users.
func (p Provider) Label() string {
	switch p {
	case ProviderGroq:
		return "Groq (Qwen-QwQ-32B)"
	case ProviderTogether:
		return "Together AI (DeepSeek-R1)"
	case ProviderGemini:
		return "Google Gemini 2.5 Pro"
	default:
		return "unknown"
	}
}

// FallbackOrder is the fixed priority order used when the primary
// provider fails.
var FallbackOrder = []Provider{ProviderGroq, ProviderTogether, ProviderGemini}

// ParseProvider converts a wire name into a Provider.
// The "auto" sentinel is handled by Settings, not here.
func ParseProvider(s string) (Provider, bool) {
	switch s {
	case "groq":
		return ProviderGroq, true
	case "together":
		return ProviderTogether, true
	case "gemini":
		return ProviderGemini, true
	default:
		return Provider(-1), false
	}
}

// AutoProvider is the sentinel value in Settings meaning "let the
// selector decide".
const AutoProvider = "auto"

// AutoModel is the sentinel model id meaning "use the provider's default".
const AutoModel = "auto"

// ChatMessage represents a message in the conversation
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// Settings is the behavioral configuration attached to every chat request.
// Each adapter maps these onto its own wire fields.
type Settings struct {
	Provider       string  `json:"provider"` // "groq", "together", "gemini" or "auto"
	Model          string  `json:"model"`    // upstream model id, or "auto"
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"maxTokens"`
	TopP           float64 `json:"topP"`
	EnableThinking bool    `json:"enableThinking"`
	EnableSearch   bool    `json:"enableSearch"`
	EnableRAG      bool    `json:"enableRAG"`
	SystemPrompt   string  `json:"systemPrompt"`
}

// Result is the normalized output every adapter produces.
type Result struct {
	Content    string
	TokensUsed int
	Raw        json.RawMessage
}

// Chunk is a streaming unit of response text. Granularity is
// provider-defined; the channel closing is the completion sentinel.
type Chunk struct {
	Content string `json:"content"`
}

package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Settings describe how to reach a model-serving backend
type Settings struct {
	Provider LLMProvider
	// Host is the base URL of the serving process. Empty selects the provider default.
	Host   string
	APIKey string
	// DefaultModel is used by providers that bind a model at construction time.
	DefaultModel string
	// Timeout bounds the underlying HTTP client, independent of the per-call deadline.
	Timeout time.Duration
}

// New creates the backend described by s
func New(ctx context.Context, s Settings) (LLM, error) {
	switch s.Provider {
	case Ollama, "":
		var httpClient *http.Client
		if s.Timeout > 0 {
			httpClient = &http.Client{Timeout: s.Timeout}
		}
		return NewOllamaLLMWithURL(s.Host, httpClient)
	case OpenAI:
		if s.Host != "" {
			return NewOpenAILLMWithHost(s.APIKey, s.Host), nil
		}
		return NewOpenAILLM(s.APIKey), nil
	case Gemini:
		return NewGeminiLLM(ctx, s.APIKey)
	case LangChain:
		return NewLangChainOllama(s.Host, s.DefaultModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", s.Provider)
	}
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderGeminiHTTP = "gemini-http"
	ProviderMock       = "mock"
)

// Settings selects and configures a provider.
type Settings struct {
	// Provider is one of the Provider constants. Empty means auto-detect from
	// the keys that are present, falling back to the mock client.
	Provider     string
	Model        string
	OpenAIKey    string
	OpenAIBase   string
	AnthropicKey string
	AnthropicURL string
	GoogleKey    string
	GeminiBase   string
	Timeout      time.Duration
}

func defaultModel(provider, model string) string {
	if model != "" {
		return model
	}
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-sonnet-latest"
	default:
		return "gemini-2.5-flash"
	}
}

// New returns a Client for s. A named provider without its key is an error;
// an unnamed one is auto-detected. Clients holding resources implement io.Closer.
func New(ctx context.Context, s Settings) (Client, error) {
	prov := strings.ToLower(strings.TrimSpace(s.Provider))
	if prov == "" {
		prov = detect(s)
	}
	switch prov {
	case ProviderOpenAI:
		if s.OpenAIKey == "" {
			return nil, fmt.Errorf("llm: provider %q requires an OpenAI API key", prov)
		}
		return &OpenAIClient{APIKey: s.OpenAIKey, Model: defaultModel(prov, s.Model), BaseURL: s.OpenAIBase, Timeout: s.Timeout}, nil
	case ProviderAnthropic:
		if s.AnthropicKey == "" {
			return nil, fmt.Errorf("llm: provider %q requires an Anthropic API key", prov)
		}
		return &AnthropicClient{APIKey: s.AnthropicKey, Model: defaultModel(prov, s.Model), URL: s.AnthropicURL, Timeout: s.Timeout}, nil
	case ProviderGemini:
		return NewGeminiClient(ctx, s.GoogleKey, defaultModel(prov, s.Model))
	case ProviderGeminiHTTP:
		if s.GoogleKey == "" {
			return nil, fmt.Errorf("llm: provider %q requires a Google API key", prov)
		}
		return &GeminiHTTPClient{APIKey: s.GoogleKey, Model: defaultModel(prov, s.Model), BaseURL: s.GeminiBase, Timeout: s.Timeout}, nil
	case ProviderMock:
		return &MockClient{}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", s.Provider)
	}
}

// detect picks a provider by API key presence.
func detect(s Settings) string {
	switch {
	case s.OpenAIKey != "":
		return ProviderOpenAI
	case s.AnthropicKey != "":
		return ProviderAnthropic
	case s.GoogleKey != "":
		return ProviderGemini
	default:
		return ProviderMock
	}
}

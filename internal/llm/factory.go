package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/personet/doppel/internal/config"
)

// NewClient builds the provider client named in cfg. Hosted providers fail
// fast on a missing API key so a misconfigured credential surfaces at
// startup rather than on the first scoring call.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	if provider != "ollama" && cfg.APIKey == "" {
		return nil, fmt.Errorf("llm provider %q requires an api key", provider)
	}

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		// Ollama speaks the OpenAI-compatible API; the key is ignored by the
		// server but required by the client config.
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/pkg/log"
)

// NewGenerator creates the generation collaborator for the configured provider.
func NewGenerator(ctx context.Context, cfg core.ProviderConfig) (core.Generator, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.GetProvider()).
		Str("model", cfg.GetModel()).
		Msg("starting llm provider")

	bearer := func(baseURL string, extra map[string]string) *OpenAICompatible {
		if cfg.GetBaseURL() != "" {
			baseURL = cfg.GetBaseURL()
		}
		return NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:      baseURL,
			APIKey:       cfg.GetAPIKey(),
			Model:        cfg.GetModel(),
			AuthHeader:   "Authorization",
			AuthPrefix:   "Bearer ",
			ExtraHeaders: extra,
		})
	}

	switch cfg.GetProvider() {
	case "openai":
		return bearer("https://api.openai.com", nil), nil
	case "openrouter":
		return bearer("https://openrouter.ai/api", map[string]string{
			"HTTP-Referer": core.TuskRepositoryURL,
			"X-Title":      core.TuskName,
		}), nil
	case "ollama":
		return bearer("http://localhost:11434", nil), nil
	case "custom":
		if cfg.GetBaseURL() == "" {
			return nil, fmt.Errorf("custom provider needs LLM_BASE_URL")
		}
		return bearer("", nil), nil
	case "anthropic":
		return NewAnthropic(cfg.GetBaseURL(), cfg.GetAPIKey(), cfg.GetModel()), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.GetProvider())
	}
}

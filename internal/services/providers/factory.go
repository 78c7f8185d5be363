package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// BuildWaterfall constructs the provider chains from configuration and
// wraps them in a Waterfall. Configuration order is priority order.
func BuildWaterfall(ctx context.Context, cfg *common.Config, storage interfaces.HealthStorage, logger arbor.ILogger) (*Waterfall, error) {
	client := &http.Client{Timeout: cfg.Providers.CallTimeout}
	if client.Timeout <= 0 {
		client.Timeout = 60 * time.Second
	}

	reasoning := make([]interfaces.ReasoningProvider, 0, len(cfg.Providers.Reasoning))
	for _, pc := range cfg.Providers.Reasoning {
		provider, err := buildReasoning(ctx, pc, client)
		if err != nil {
			return nil, err
		}
		reasoning = append(reasoning, provider)
		logger.Info().Str("provider", pc.Name).Str("type", pc.Type).Msg("Registered reasoning provider")
	}

	embedding := make([]interfaces.EmbeddingProvider, 0, len(cfg.Providers.Embedding))
	for _, pc := range cfg.Providers.Embedding {
		provider, err := buildEmbedding(ctx, pc, client)
		if err != nil {
			return nil, err
		}
		embedding = append(embedding, provider)
		logger.Info().Str("provider", pc.Name).Str("type", pc.Type).Msg("Registered embedding provider")
	}

	search := make([]interfaces.SearchProvider, 0, len(cfg.Providers.Search))
	for _, pc := range cfg.Providers.Search {
		provider, err := buildSearch(pc, client)
		if err != nil {
			return nil, err
		}
		search = append(search, provider)
		logger.Info().Str("provider", pc.Name).Str("type", pc.Type).Msg("Registered search provider")
	}

	health := NewHealthTracker(storage, cfg.Providers.CooldownBase, cfg.Providers.CooldownMax, logger)
	return NewWaterfall(reasoning, embedding, search, health, cfg.Providers.CallTimeout, cfg.Providers.MaxSummaryChars, logger), nil
}

func buildReasoning(ctx context.Context, pc common.ProviderConfig, client *http.Client) (interfaces.ReasoningProvider, error) {
	switch pc.Type {
	case "avalai":
		return NewAvalAIProvider(pc, client), nil
	case "openrouter":
		return NewOpenRouterProvider(pc, client), nil
	case "cloudflare":
		return NewCloudflareProvider(pc, client), nil
	case "cohere":
		return NewCohereProvider(pc, client), nil
	case "ollama":
		return NewOllamaProvider(pc, client), nil
	case "claude":
		return NewClaudeProvider(pc)
	case "gemini":
		return NewGeminiProvider(ctx, pc)
	default:
		return nil, fmt.Errorf("%w: unknown reasoning provider type %q", models.ErrFatalConfiguration, pc.Type)
	}
}

func buildEmbedding(ctx context.Context, pc common.ProviderConfig, client *http.Client) (interfaces.EmbeddingProvider, error) {
	switch pc.Type {
	case "cloudflare":
		return NewCloudflareProvider(pc, client), nil
	case "cohere":
		return NewCohereProvider(pc, client), nil
	case "ollama":
		return NewOllamaProvider(pc, client), nil
	case "gemini":
		return NewGeminiProvider(ctx, pc)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider type %q", models.ErrFatalConfiguration, pc.Type)
	}
}

func buildSearch(pc common.ProviderConfig, client *http.Client) (interfaces.SearchProvider, error) {
	switch pc.Type {
	case "tavily":
		return NewTavilyProvider(pc, client), nil
	case "duckduckgo":
		return NewDuckDuckGoProvider(pc, client), nil
	default:
		return nil, fmt.Errorf("%w: unknown search provider type %q", models.ErrFatalConfiguration, pc.Type)
	}
}

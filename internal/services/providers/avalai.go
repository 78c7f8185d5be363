package providers

import (
	"errors"
	"net/http"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

var errEmptyCompletion = errors.New("empty completion")

// NewAvalAIProvider creates a reasoning provider for the AvalAI gateway,
// which exposes an OpenAI-compatible chat API.
func NewAvalAIProvider(cfg common.ProviderConfig, client *http.Client) interfaces.ReasoningProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.avalai.ir/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gemma-3n-e2b-it"
	}
	return &openAIChatProvider{
		name:    cfg.Name,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  client,
	}
}

// NewOpenRouterProvider creates a reasoning provider for OpenRouter, also
// OpenAI-compatible.
func NewOpenRouterProvider(cfg common.ProviderConfig, client *http.Client) interfaces.ReasoningProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "mistralai/mistral-small-3.1-24b-instruct:free"
	}
	return &openAIChatProvider{
		name:    cfg.Name,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  client,
	}
}

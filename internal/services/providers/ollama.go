package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

// ollamaProvider calls a local Ollama instance. Last in the chain: slow but
// always reachable without credentials.
type ollamaProvider struct {
	name    string
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates a local-model provider for reasoning or embedding.
func NewOllamaProvider(cfg common.ProviderConfig, client *http.Client) *ollamaProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "phi3.5"
	}
	return &ollamaProvider{
		name:    cfg.Name,
		baseURL: baseURL,
		model:   model,
		client:  client,
	}
}

func (p *ollamaProvider) Name() string { return p.name }

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (p *ollamaProvider) Generate(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	prompt := ""
	for _, m := range req.Messages {
		prompt += m.Content + "\n"
	}

	body := map[string]interface{}{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": req.Temperature,
			"num_ctx":     4096,
		},
	}
	if req.SystemInstruction != "" {
		body["system"] = req.SystemInstruction
	}
	if req.JSONMode {
		body["format"] = "json"
	}

	var resp ollamaGenerateResponse
	if err := doJSON(ctx, p.client, p.name, "POST", p.baseURL+"/api/generate", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Response == "" {
		return nil, malformedOutput(p.name, errEmptyCompletion)
	}

	return &interfaces.GenerateResponse{
		Text:     resp.Response,
		Provider: p.name,
		Model:    p.model,
	}, nil
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (p *ollamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body := map[string]interface{}{
		"model":  p.model,
		"prompt": text,
	}

	var resp ollamaEmbedResponse
	if err := doJSON(ctx, p.client, p.name, "POST", p.baseURL+"/api/embeddings", nil, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, malformedOutput(p.name, fmt.Errorf("no embedding returned"))
	}
	return resp.Embedding, nil
}

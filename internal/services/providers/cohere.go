package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

// cohereProvider speaks the Cohere v2 chat and embed APIs.
type cohereProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewCohereProvider creates a Cohere provider for reasoning or embedding.
func NewCohereProvider(cfg common.ProviderConfig, client *http.Client) *cohereProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cohere.com/v2"
	}
	model := cfg.Model
	if model == "" {
		model = "command-r"
	}
	return &cohereProvider{
		name:    cfg.Name,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  client,
	}
}

func (p *cohereProvider) Name() string { return p.name }

type cohereChatResponse struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

func (p *cohereProvider) Generate(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := map[string]interface{}{
		"model":    p.model,
		"messages": messages,
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.JSONMode {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	var resp cohereChatResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := doJSON(ctx, p.client, p.name, "POST", p.baseURL+"/chat", headers, body, &resp); err != nil {
		return nil, err
	}

	text := ""
	for _, block := range resp.Message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, malformedOutput(p.name, errEmptyCompletion)
	}

	return &interfaces.GenerateResponse{
		Text:     text,
		Provider: p.name,
		Model:    p.model,
	}, nil
}

type cohereEmbedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

func (p *cohereProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body := map[string]interface{}{
		"model":           p.model,
		"texts":           []string{text},
		"input_type":      "search_document",
		"embedding_types": []string{"float"},
	}

	var resp cohereEmbedResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := doJSON(ctx, p.client, p.name, "POST", p.baseURL+"/embed", headers, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings.Float) == 0 || len(resp.Embeddings.Float[0]) == 0 {
		return nil, malformedOutput(p.name, fmt.Errorf("no embedding returned"))
	}
	return resp.Embeddings.Float[0], nil
}

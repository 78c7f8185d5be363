package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

// cloudflareProvider calls Workers AI model endpoints. One instance serves
// either reasoning or embedding depending on the configured model.
type cloudflareProvider struct {
	name      string
	baseURL   string
	accountID string
	apiKey    string
	model     string
	client    *http.Client
}

// NewCloudflareProvider creates a Workers AI reasoning provider.
func NewCloudflareProvider(cfg common.ProviderConfig, client *http.Client) *cloudflareProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cloudflare.com/client/v4"
	}
	model := cfg.Model
	if model == "" {
		model = "@cf/meta/llama-3-8b-instruct"
	}
	return &cloudflareProvider{
		name:      cfg.Name,
		baseURL:   baseURL,
		accountID: cfg.AccountID,
		apiKey:    cfg.APIKey,
		model:     model,
		client:    client,
	}
}

func (p *cloudflareProvider) Name() string { return p.name }

func (p *cloudflareProvider) runURL() string {
	return fmt.Sprintf("%s/accounts/%s/ai/run/%s", p.baseURL, p.accountID, p.model)
}

type cloudflareRunResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Response string      `json:"response"`
		Data     [][]float32 `json:"data"`
	} `json:"result"`
}

func (p *cloudflareProvider) Generate(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := map[string]interface{}{"messages": messages}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}

	var resp cloudflareRunResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := doJSON(ctx, p.client, p.name, "POST", p.runURL(), headers, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Result.Response == "" {
		return nil, malformedOutput(p.name, errEmptyCompletion)
	}

	return &interfaces.GenerateResponse{
		Text:     resp.Result.Response,
		Provider: p.name,
		Model:    p.model,
	}, nil
}

func (p *cloudflareProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body := map[string]interface{}{"text": []string{text}}

	var resp cloudflareRunResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := doJSON(ctx, p.client, p.name, "POST", p.runURL(), headers, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || len(resp.Result.Data) == 0 || len(resp.Result.Data[0]) == 0 {
		return nil, malformedOutput(p.name, fmt.Errorf("no embedding returned"))
	}
	return resp.Result.Data[0], nil
}

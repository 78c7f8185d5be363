package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// claudeProvider wraps the Anthropic SDK as a reasoning provider.
type claudeProvider struct {
	name   string
	model  string
	client anthropic.Client
}

// NewClaudeProvider creates an Anthropic reasoning provider.
func NewClaudeProvider(cfg common.ProviderConfig) (interfaces.ReasoningProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude provider %q requires an API key", cfg.Name)
	}
	model := cfg.Model
	if model == "" {
		model = "claude-haiku-4-5"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &claudeProvider{
		name:   cfg.Name,
		model:  model,
		client: anthropic.NewClient(opts...),
	}, nil
}

func (p *claudeProvider) Name() string { return p.name }

func (p *claudeProvider) Generate(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifySDKError(p.name, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, malformedOutput(p.name, errEmptyCompletion)
	}

	return &interfaces.GenerateResponse{
		Text:     text.String(),
		Provider: p.name,
		Model:    p.model,
	}, nil
}

// classifySDKError maps SDK failures into the taxonomy. Rate limits and
// upstream errors mention their status; auth failures do not recover.
func classifySDKError(provider string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "overloaded") || strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503"):
		return &models.ProviderError{
			Provider: provider,
			Err:      fmt.Errorf("%w: %v", models.ErrProviderRecoverable, err),
		}
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "invalid") || strings.Contains(msg, "authentication"):
		return &models.ProviderError{
			Provider: provider,
			Err:      fmt.Errorf("%w: %v", models.ErrProviderFatal, err),
		}
	default:
		return classifyTransport(provider, err)
	}
}

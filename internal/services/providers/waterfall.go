package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

const analysisSystemPrompt = "You are a news analyst. You respond with a single JSON object and nothing else."

const analysisPromptTemplate = `Analyze the following article and respond with a JSON object containing exactly these fields:
- "summary": a concise summary of the article in at most 3 sentences
- "tags": a list of 3 to 6 topical tags
- "category": exactly one of: %s
- "urgency": an integer from 1 (background reading) to 10 (breaking, act now)

Title: %s

Content:
%s`

// Analysis is the normalized output of a successful document analysis,
// including which provider produced it.
type Analysis struct {
	Summary  string
	Tags     []string
	Category string
	Urgency  int
	Provider string
}

// Waterfall dispatches each AI capability across a priority-ordered
// provider chain. A call walks the chain top to bottom, skipping
// providers that are cooling down or locked out, and returns the first
// success. Failures are recorded against the shared health table so the
// next call sees them.
type Waterfall struct {
	reasoning []interfaces.ReasoningProvider
	embedding []interfaces.EmbeddingProvider
	search    []interfaces.SearchProvider

	health          *HealthTracker
	callTimeout     time.Duration
	maxSummaryChars int
	maxContentChars int
	logger          arbor.ILogger
}

// NewWaterfall creates a waterfall over the given capability chains.
func NewWaterfall(
	reasoning []interfaces.ReasoningProvider,
	embedding []interfaces.EmbeddingProvider,
	search []interfaces.SearchProvider,
	health *HealthTracker,
	callTimeout time.Duration,
	maxSummaryChars int,
	logger arbor.ILogger,
) *Waterfall {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &Waterfall{
		reasoning:       reasoning,
		embedding:       embedding,
		search:          search,
		health:          health,
		callTimeout:     callTimeout,
		maxSummaryChars: maxSummaryChars,
		maxContentChars: 12000,
		logger:          logger,
	}
}

// Generate walks the reasoning chain and returns the first successful
// response.
func (w *Waterfall) Generate(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	if len(w.reasoning) == 0 {
		return nil, fmt.Errorf("%w: no reasoning providers configured", models.ErrFatalConfiguration)
	}

	var lastErr error
	attempted := 0
	for _, provider := range w.reasoning {
		if !w.health.Available(ctx, provider.Name()) {
			w.logger.Debug().Str("provider", provider.Name()).Msg("Skipping unavailable provider")
			continue
		}
		attempted++

		callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
		resp, err := provider.Generate(callCtx, req)
		cancel()

		if err != nil {
			w.health.RecordFailure(ctx, provider.Name(), err)
			lastErr = err
			continue
		}

		w.health.RecordSuccess(ctx, provider.Name())
		return resp, nil
	}

	return nil, w.exhausted("reasoning", attempted, lastErr)
}

// Embed walks the embedding chain and returns the first vector produced.
func (w *Waterfall) Embed(ctx context.Context, text string) ([]float32, string, error) {
	if len(w.embedding) == 0 {
		return nil, "", fmt.Errorf("%w: no embedding providers configured", models.ErrFatalConfiguration)
	}

	var lastErr error
	attempted := 0
	for _, provider := range w.embedding {
		if !w.health.Available(ctx, provider.Name()) {
			continue
		}
		attempted++

		callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
		vector, err := provider.Embed(callCtx, text)
		cancel()

		if err != nil {
			w.health.RecordFailure(ctx, provider.Name(), err)
			lastErr = err
			continue
		}
		if len(vector) == 0 {
			err = malformedOutput(provider.Name(), fmt.Errorf("empty embedding"))
			w.health.RecordFailure(ctx, provider.Name(), err)
			lastErr = err
			continue
		}

		w.health.RecordSuccess(ctx, provider.Name())
		return vector, provider.Name(), nil
	}

	return nil, "", w.exhausted("embedding", attempted, lastErr)
}

// Search walks the search chain and returns the first non-empty result
// set.
func (w *Waterfall) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	if len(w.search) == 0 {
		return nil, fmt.Errorf("%w: no search providers configured", models.ErrFatalConfiguration)
	}

	var lastErr error
	attempted := 0
	for _, provider := range w.search {
		if !w.health.Available(ctx, provider.Name()) {
			continue
		}
		attempted++

		callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
		results, err := provider.Search(callCtx, query, maxResults)
		cancel()

		if err != nil {
			w.health.RecordFailure(ctx, provider.Name(), err)
			lastErr = err
			continue
		}

		w.health.RecordSuccess(ctx, provider.Name())
		return results, nil
	}

	return nil, w.exhausted("search", attempted, lastErr)
}

// AnalyzeDocument runs the analysis prompt through the reasoning chain.
// A provider whose answer fails normalization counts as a recoverable
// failure of that provider, and the walk continues; deformed output is
// never accepted.
func (w *Waterfall) AnalyzeDocument(ctx context.Context, title, content string) (*Analysis, error) {
	if len(w.reasoning) == 0 {
		return nil, fmt.Errorf("%w: no reasoning providers configured", models.ErrFatalConfiguration)
	}

	if len(content) > w.maxContentChars {
		content = content[:w.maxContentChars]
	}

	prompt := fmt.Sprintf(analysisPromptTemplate, joinCategories(), title, content)
	req := &interfaces.GenerateRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: prompt}},
		SystemInstruction: analysisSystemPrompt,
		Temperature:       0.2,
		MaxTokens:         1024,
		JSONMode:          true,
	}

	var lastErr error
	attempted := 0
	for _, provider := range w.reasoning {
		if !w.health.Available(ctx, provider.Name()) {
			continue
		}
		attempted++

		callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
		resp, err := provider.Generate(callCtx, req)
		cancel()

		if err != nil {
			w.health.RecordFailure(ctx, provider.Name(), err)
			lastErr = err
			continue
		}

		parsed, err := parseAnalysis(provider.Name(), resp.Text, w.maxSummaryChars)
		if err != nil {
			w.health.RecordFailure(ctx, provider.Name(), err)
			lastErr = err
			continue
		}

		w.health.RecordSuccess(ctx, provider.Name())
		return &Analysis{
			Summary:  parsed.Summary,
			Tags:     parsed.Tags,
			Category: parsed.Category,
			Urgency:  parsed.Urgency,
			Provider: provider.Name(),
		}, nil
	}

	return nil, w.exhausted("analysis", attempted, lastErr)
}

func (w *Waterfall) exhausted(capability string, attempted int, lastErr error) error {
	w.logger.Error().
		Str("capability", capability).
		Int("attempted", attempted).
		Msg("All providers exhausted")
	if lastErr != nil {
		return fmt.Errorf("%w: %s: last error: %v", models.ErrWaterfallExhausted, capability, lastErr)
	}
	return fmt.Errorf("%w: %s: no provider available", models.ErrWaterfallExhausted, capability)
}

func joinCategories() string {
	out := ""
	for i, c := range models.KnownCategories {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

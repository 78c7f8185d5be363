package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
	"github.com/abtn/nexus-smart-scraper/internal/services/providers"
	"github.com/abtn/nexus-smart-scraper/internal/storage/badger"
)

// queuedReasoning replays canned responses in order.
type queuedReasoning struct {
	responses []string
	calls     int
}

func (p *queuedReasoning) Name() string { return "queued" }

func (p *queuedReasoning) Generate(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	if p.calls >= len(p.responses) {
		return &interfaces.GenerateResponse{Text: "", Provider: "queued"}, nil
	}
	text := p.responses[p.calls]
	p.calls++
	return &interfaces.GenerateResponse{Text: text, Provider: "queued"}, nil
}

type fixedEmbedding struct{}

func (fixedEmbedding) Name() string { return "fixed-embed" }

func (fixedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type cannedSearch struct {
	results []interfaces.SearchResult
}

func (cannedSearch) Name() string { return "canned-search" }

func (p cannedSearch) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	return p.results, nil
}

func newAnswerTestService(t *testing.T, reasoning *queuedReasoning, search cannedSearch) (*Service, interfaces.StorageManager) {
	t.Helper()

	storage, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	health := providers.NewHealthTracker(storage.HealthStorage(), time.Second, time.Minute, arbor.NewLogger())
	waterfall := providers.NewWaterfall(
		[]interfaces.ReasoningProvider{reasoning},
		[]interfaces.EmbeddingProvider{fixedEmbedding{}},
		[]interfaces.SearchProvider{search},
		health,
		5*time.Second,
		500,
		arbor.NewLogger(),
	)

	config := common.DefaultConfig().Orchestrator
	config.GapFillTimeout = time.Second
	config.GapFillPoll = 10 * time.Millisecond
	svc := NewService(config, storage, waterfall, noopDispatcher{}, arbor.NewLogger())
	return svc, storage
}

func seedEnrichedDoc(t *testing.T, storage interfaces.StorageManager, docID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, storage.DocumentStorage().Save(ctx, &models.Document{
		ID:               docID,
		SourceID:         "src-1",
		URL:              "https://known.test/" + docID,
		Title:            "Known coverage",
		ExtractionStatus: models.ExtractionExtracted,
		EnrichmentStatus: models.EnrichmentEnriched,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}))
	require.NoError(t, storage.EnrichmentStorage().Upsert(ctx, &models.EnrichmentResult{
		DocumentID: docID,
		Summary:    "What is known so far.",
		Category:   "World",
		Urgency:    5,
		CreatedAt:  time.Now(),
	}))
	require.NoError(t, storage.VectorStorage().Upsert(ctx, docID, []float32{1, 0, 0}, nil))
}

func TestAnswerFlagsLowConfidenceWhenGapFillLandsNothing(t *testing.T) {
	reasoning := &queuedReasoning{}
	svc, _ := newAnswerTestService(t, reasoning, cannedSearch{})

	// Empty corpus: the audit short-circuits to insufficient and gap-fill
	// finds no registrable sources.
	answer, err := svc.Answer(context.Background(), "what happened overnight?")
	require.NoError(t, err)

	assert.True(t, answer.LowConfidence)
	assert.Equal(t, noContextAnswer, answer.Text)
	assert.Empty(t, answer.CitedDocumentIDs)
	assert.Zero(t, reasoning.calls, "no context means no audit or synthesis provider calls are wasted")
}

func TestAnswerStaysLowConfidenceWithoutClosedGap(t *testing.T) {
	// Coverage exists but both the audit and the post-gap-fill re-audit
	// judge it insufficient; the answer must carry the flag even though
	// the retrieval count is healthy.
	reasoning := &queuedReasoning{responses: []string{
		"NO\nlatest developments",
		"NO\nstill missing recent events",
		"Partial answer from what is known. [1]",
	}}
	svc, storage := newAnswerTestService(t, reasoning, cannedSearch{
		results: []interfaces.SearchResult{{URL: "https://fresh.test/article", Title: "Fresh"}},
	})
	svc.config.MinCoverageHits = 1

	seedEnrichedDoc(t, storage, "doc-1")

	answer, err := svc.Answer(context.Background(), "what happened overnight?")
	require.NoError(t, err)

	assert.True(t, answer.LowConfidence)
	assert.Equal(t, 3, reasoning.calls)
	assert.Equal(t, []string{"doc-1"}, answer.CitedDocumentIDs)
}

func TestAnswerRestoresConfidenceWhenReauditPasses(t *testing.T) {
	reasoning := &queuedReasoning{responses: []string{
		"NO\nlatest developments",
		"YES",
		"Full answer citing the corpus. [1]",
	}}
	svc, storage := newAnswerTestService(t, reasoning, cannedSearch{
		results: []interfaces.SearchResult{{URL: "https://fresh.test/article", Title: "Fresh"}},
	})

	seedEnrichedDoc(t, storage, "doc-1")

	answer, err := svc.Answer(context.Background(), "what happened overnight?")
	require.NoError(t, err)

	assert.False(t, answer.LowConfidence)
	assert.Equal(t, 3, reasoning.calls)
	assert.Equal(t, "Full answer citing the corpus. [1]", answer.Text)
}

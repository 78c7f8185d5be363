package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/services/providers"
)

// Dispatcher is the slice of the queue manager the orchestrator needs to
// kick off discovery for freshly registered sources.
type Dispatcher interface {
	EnqueueDiscovery(ctx context.Context, sourceID, forceMode string) error
}

// Service answers questions over the enriched corpus. It audits coverage
// first, fills gaps through web search when the corpus falls short, then
// synthesizes a cited answer. It always returns an answer; thin context
// lowers confidence instead of failing.
type Service struct {
	config     common.OrchestratorConfig
	storage    interfaces.StorageManager
	waterfall  *providers.Waterfall
	dispatcher Dispatcher
	logger     arbor.ILogger
}

// NewService creates the orchestrator.
func NewService(config common.OrchestratorConfig, storage interfaces.StorageManager, waterfall *providers.Waterfall, dispatcher Dispatcher, logger arbor.ILogger) *Service {
	if config.AuditLimit <= 0 {
		config.AuditLimit = 8
	}
	if config.MinCoverageHits <= 0 {
		config.MinCoverageHits = 3
	}
	if config.MaxGapQueries <= 0 {
		config.MaxGapQueries = 3
	}
	if config.MaxGapSources <= 0 {
		config.MaxGapSources = 5
	}
	return &Service{
		config:     config,
		storage:    storage,
		waterfall:  waterfall,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// contextDoc is one corpus document assembled for prompting.
type contextDoc struct {
	DocumentID string
	Title      string
	Summary    string
	Category   string
	URL        string
	Score      float64
}

// Answer runs the full audit / gap-fill / synthesis flow.
func (s *Service) Answer(ctx context.Context, question string) (*interfaces.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	docs, err := s.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	audit, err := s.audit(ctx, question, docs)
	if err != nil {
		return nil, err
	}

	if !audit.Sufficient {
		s.logger.Info().
			Str("question", question).
			Int("gap_queries", len(audit.GapQueries)).
			Msg("Coverage insufficient, entering gap-fill")

		gapErr := s.fillGaps(ctx, audit.GapQueries)
		if gapErr != nil {
			s.logger.Warn().Err(gapErr).Msg("Gap-fill incomplete, answering from available context")
		}

		// Retrieval again after gap-fill; new documents may have landed.
		if refreshed, err := s.retrieve(ctx, question); err == nil {
			docs = refreshed
		}

		// Re-audit the refreshed context. Confidence is only restored when
		// gap-fill landed sources and the new coverage closes the gap; a
		// gap-fill that registered nothing or timed out stays insufficient.
		if gapErr == nil {
			if reaudit, err := s.audit(ctx, question, docs); err == nil {
				audit = reaudit
			}
		}
	}

	answer, err := s.synthesize(ctx, question, docs)
	if err != nil {
		return nil, err
	}
	answer.LowConfidence = !audit.Sufficient
	return answer, nil
}

// retrieve embeds the question and pulls the closest enriched documents.
func (s *Service) retrieve(ctx context.Context, question string) ([]contextDoc, error) {
	vector, _, err := s.waterfall.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.storage.VectorStorage().Search(ctx, vector, s.config.AuditLimit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	docs := make([]contextDoc, 0, len(hits))
	for _, hit := range hits {
		if s.config.MinCoverageScore > 0 && hit.Score < s.config.MinCoverageScore {
			continue
		}
		doc, err := s.storage.DocumentStorage().Get(ctx, hit.DocumentID)
		if err != nil {
			continue
		}
		enrichment, err := s.storage.EnrichmentStorage().Get(ctx, hit.DocumentID)
		if err != nil {
			continue
		}
		docs = append(docs, contextDoc{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Summary:    enrichment.Summary,
			Category:   enrichment.Category,
			URL:        doc.URL,
			Score:      hit.Score,
		})
	}
	return docs, nil
}

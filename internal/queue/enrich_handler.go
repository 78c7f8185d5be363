package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// handleEnrich annotates one document through the provider waterfall and
// commits the result with a compare-and-set against the content hash the
// message was enqueued for. A stale hash means a newer fetch already
// queued its own enrichment, so the message completes without writing.
func (m *Manager) handleEnrich(ctx context.Context, msg *models.QueueMessage) error {
	var payload models.EnrichPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decode enrich payload: %w", err)
	}

	documents := m.storage.DocumentStorage()
	doc, err := documents.Get(ctx, payload.DocumentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", payload.DocumentID, err)
	}

	if doc.ContentHash != payload.Hash {
		m.logger.Debug().Str("document_id", doc.ID).Msg("Content superseded since enqueue, dropping")
		return nil
	}
	if doc.EnrichedHash == payload.Hash && doc.EnrichmentStatus == models.EnrichmentEnriched {
		m.logger.Debug().Str("document_id", doc.ID).Msg("Already enriched at this hash")
		return nil
	}

	analysis, err := m.waterfall.AnalyzeDocument(ctx, doc.Title, doc.ContentMarkdown)
	if err != nil {
		return m.enrichFailed(ctx, msg, doc, fmt.Errorf("analyze %s: %w", doc.ID, err))
	}

	vector, embedProvider, err := m.waterfall.Embed(ctx, analysis.Summary)
	if err != nil {
		return m.enrichFailed(ctx, msg, doc, fmt.Errorf("embed %s: %w", doc.ID, err))
	}

	result := &models.EnrichmentResult{
		DocumentID:   doc.ID,
		Provider:     analysis.Provider,
		Urgency:      analysis.Urgency,
		Category:     analysis.Category,
		Summary:      analysis.Summary,
		Tags:         analysis.Tags,
		EmbeddingRef: doc.ID,
		CreatedAt:    time.Now(),
	}
	if err := m.storage.EnrichmentStorage().Upsert(ctx, result); err != nil {
		return fmt.Errorf("save enrichment %s: %w", doc.ID, err)
	}

	if err := m.storage.VectorStorage().Upsert(ctx, doc.ID, vector, map[string]string{
		"source_id": doc.SourceID,
		"category":  analysis.Category,
		"provider":  embedProvider,
	}); err != nil {
		return fmt.Errorf("save embedding %s: %w", doc.ID, err)
	}

	if err := documents.CompareAndSetEnriched(ctx, doc.ID, payload.Hash); err != nil {
		if errors.Is(err, models.ErrDataIntegrity) {
			// Content moved under us; the newer fetch owns enrichment now.
			m.logger.Info().Str("document_id", doc.ID).Msg("Enrichment lost hash race, discarding")
			return nil
		}
		return fmt.Errorf("commit enrichment %s: %w", doc.ID, err)
	}

	if m.scheduler != nil {
		if err := m.scheduler.RecordEnrichment(ctx, doc.SourceID, analysis.Urgency); err != nil {
			m.logger.Warn().Err(err).Str("source_id", doc.SourceID).Msg("Failed to record enrichment outcome")
		}
	}

	m.logger.Info().
		Str("document_id", doc.ID).
		Str("provider", analysis.Provider).
		Int("urgency", analysis.Urgency).
		Str("category", analysis.Category).
		Msg("Document enriched")
	return nil
}

// enrichFailed marks the document failed once the message is on its last
// delivery, then surfaces the error for release or parking.
func (m *Manager) enrichFailed(ctx context.Context, msg *models.QueueMessage, doc *models.Document, err error) error {
	if msg.Receipts >= m.config.MaxReceive {
		if markErr := m.storage.DocumentStorage().MarkEnrichmentFailed(ctx, doc.ID); markErr != nil {
			m.logger.Warn().Err(markErr).Str("document_id", doc.ID).Msg("Failed to mark enrichment failed")
		}
	}
	return err
}

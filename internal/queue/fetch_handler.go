package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abtn/nexus-smart-scraper/internal/models"
	"github.com/abtn/nexus-smart-scraper/internal/services/extract"
)

// handleFetch retrieves one document, extracts its content and decides
// whether enrichment is owed. An unchanged content hash short-circuits
// the enrich stage.
func (m *Manager) handleFetch(ctx context.Context, msg *models.QueueMessage) error {
	var payload models.FetchPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decode fetch payload: %w", err)
	}

	documents := m.storage.DocumentStorage()
	doc, err := documents.Get(ctx, payload.DocumentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", payload.DocumentID, err)
	}

	result, err := m.fetcher.Fetch(ctx, doc.URL)
	if err != nil {
		if errors.Is(err, models.ErrRobotsDisallowed) {
			m.logger.Info().Str("url", doc.URL).Msg("Fetch blocked by robots policy")
			doc.ExtractionStatus = models.ExtractionFailed
			doc.UpdatedAt = time.Now()
			return documents.Save(ctx, doc)
		}
		if errors.Is(err, models.ErrTransientNetwork) {
			// Retry via queue redelivery.
			return fmt.Errorf("fetch %s: %w", doc.URL, err)
		}

		var fetchErr *models.FetchError
		if errors.As(err, &fetchErr) && fetchErr.StatusCode >= 400 && fetchErr.StatusCode < 500 {
			// Permanent for this URL; don't burn retries on it.
			m.logger.Warn().
				Str("url", doc.URL).
				Int("status", fetchErr.StatusCode).
				Msg("Fetch rejected by origin")
			doc.ExtractionStatus = models.ExtractionFailed
			doc.UpdatedAt = time.Now()
			return documents.Save(ctx, doc)
		}
		return fmt.Errorf("fetch %s: %w", doc.URL, err)
	}

	extraction, err := m.extractor.Extract(result.Body, doc.URL)
	if err != nil {
		m.logger.Warn().Err(err).Str("url", doc.URL).Msg("Extraction failed")
		doc.ExtractionStatus = models.ExtractionFailed
		doc.UpdatedAt = time.Now()
		return documents.Save(ctx, doc)
	}

	newHash := extract.ContentHash(extraction.Markdown)
	unchanged := newHash == doc.ContentHash

	doc.Title = extraction.Title
	doc.ContentMarkdown = extraction.Markdown
	doc.PublishedAt = extraction.PublishedAt
	doc.ContentHash = newHash
	doc.ExtractionStatus = models.ExtractionExtracted
	doc.UpdatedAt = time.Now()
	if err := documents.Save(ctx, doc); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}

	if unchanged && doc.EnrichmentStatus == models.EnrichmentEnriched {
		m.logger.Debug().Str("document_id", doc.ID).Msg("Content unchanged, skipping enrichment")
		return nil
	}

	if err := m.EnqueueEnrich(ctx, doc.ID, newHash); err != nil {
		return fmt.Errorf("enqueue enrich %s: %w", doc.ID, err)
	}
	return nil
}

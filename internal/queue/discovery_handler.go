package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// handleDiscovery resolves a frontier for a source and materializes new
// documents into the fetch stage. Known URLs are skipped, so repeated
// runs over a stable site converge to no-ops.
func (m *Manager) handleDiscovery(ctx context.Context, msg *models.QueueMessage) error {
	var payload models.DiscoveryPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decode discovery payload: %w", err)
	}

	source, err := m.storage.SourceStorage().Get(ctx, payload.SourceID)
	if err != nil {
		return fmt.Errorf("load source %s: %w", payload.SourceID, err)
	}

	run, err := m.discovery.Discover(ctx, source, payload.ForceMode)
	m.recordRunOutcome(ctx, source.ID, err)
	if err != nil {
		if errors.Is(err, models.ErrRobotsDisallowed) {
			// Policy, not an outage. Log and complete the message.
			m.logger.Info().
				Str("source_id", source.ID).
				Msg("Discovery blocked by robots policy")
			return nil
		}
		return fmt.Errorf("discover %s: %w", source.ID, err)
	}

	documents := m.storage.DocumentStorage()
	materialized := 0
	for _, entry := range run.Frontier {
		if entry.Classification != models.ClassContent {
			continue
		}

		existing, err := documents.GetByURL(ctx, source.ID, entry.URL)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			m.logger.Warn().Err(err).Str("url", entry.URL).Msg("Document lookup failed")
			continue
		}
		if existing != nil {
			continue
		}

		now := time.Now()
		doc := &models.Document{
			ID:               common.NewDocumentID(),
			SourceID:         source.ID,
			URL:              entry.URL,
			ExtractionStatus: models.ExtractionPending,
			EnrichmentStatus: models.EnrichmentPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := documents.Save(ctx, doc); err != nil {
			if errors.Is(err, models.ErrDataIntegrity) {
				// Another worker materialized this URL first.
				continue
			}
			m.logger.Warn().Err(err).Str("url", entry.URL).Msg("Failed to save document")
			continue
		}

		if err := m.EnqueueFetch(ctx, doc.ID); err != nil {
			m.logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to enqueue fetch")
			continue
		}
		materialized++
	}

	m.logger.Info().
		Str("source_id", source.ID).
		Str("strategy", run.Strategy).
		Int("frontier", len(run.Frontier)).
		Int("materialized", materialized).
		Bool("partial", run.Partial).
		Msg("Discovery run complete")
	return nil
}

func (m *Manager) recordRunOutcome(ctx context.Context, sourceID string, runErr error) {
	if m.scheduler == nil {
		return
	}
	if err := m.scheduler.RecordRunOutcome(ctx, sourceID, runErr); err != nil {
		m.logger.Warn().Err(err).Str("source_id", sourceID).Msg("Failed to record run outcome")
	}
}

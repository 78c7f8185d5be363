package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// EnrichmentStorage implements the EnrichmentStorage interface for Badger.
// Keyed by document ID so re-enrichment overwrites rather than appends.
type EnrichmentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEnrichmentStorage creates a new EnrichmentStorage instance
func NewEnrichmentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EnrichmentStorage {
	return &EnrichmentStorage{db: db, logger: logger}
}

func (s *EnrichmentStorage) Upsert(ctx context.Context, result *models.EnrichmentResult) error {
	if result.DocumentID == "" {
		return fmt.Errorf("enrichment result document ID is required")
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(result.DocumentID, *result); err != nil {
		return fmt.Errorf("failed to save enrichment result: %w", err)
	}
	return nil
}

func (s *EnrichmentStorage) Get(ctx context.Context, documentID string) (*models.EnrichmentResult, error) {
	var result models.EnrichmentResult
	if err := s.db.Store().Get(documentID, &result); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get enrichment result: %w", err)
	}
	return &result, nil
}

// CountHighUrgencyBySource counts enriched documents of a source with
// urgency at or above the floor since the given instant. This is the value
// signal behind source promotion.
func (s *EnrichmentStorage) CountHighUrgencyBySource(ctx context.Context, sourceID string, floor int, since time.Time) (int, error) {
	var docs []models.Document
	if err := s.db.Store().Find(&docs, badgerhold.Where("SourceID").Eq(sourceID)); err != nil {
		return 0, fmt.Errorf("failed to list documents for urgency count: %w", err)
	}

	count := 0
	for i := range docs {
		var result models.EnrichmentResult
		if err := s.db.Store().Get(docs[i].ID, &result); err != nil {
			continue
		}
		if result.Urgency >= floor && result.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

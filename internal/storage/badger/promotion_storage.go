package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// PromotionStorage implements the PromotionStorage interface for Badger
type PromotionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPromotionStorage creates a new PromotionStorage instance
func NewPromotionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PromotionStorage {
	return &PromotionStorage{db: db, logger: logger}
}

func (s *PromotionStorage) Save(ctx context.Context, record *models.PromotionRecord) error {
	if record.ID == "" {
		return fmt.Errorf("promotion record ID is required")
	}
	if record.SourceID == "" {
		return fmt.Errorf("promotion record source ID is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(record.ID, *record); err != nil {
		return fmt.Errorf("failed to save promotion record: %w", err)
	}
	return nil
}

func (s *PromotionStorage) ListBySource(ctx context.Context, sourceID string) ([]*models.PromotionRecord, error) {
	var records []models.PromotionRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("SourceID").Eq(sourceID)); err != nil {
		return nil, fmt.Errorf("failed to list promotion records: %w", err)
	}
	result := make([]*models.PromotionRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

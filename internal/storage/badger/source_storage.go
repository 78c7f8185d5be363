package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// SourceStorage implements the SourceStorage interface for Badger
type SourceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex // serializes status transitions
}

// NewSourceStorage creates a new SourceStorage instance
func NewSourceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SourceStorage {
	return &SourceStorage{db: db, logger: logger}
}

func (s *SourceStorage) Save(ctx context.Context, source *models.Source) error {
	if source.ID == "" {
		return fmt.Errorf("source ID is required")
	}
	if err := source.Validate(); err != nil {
		return err
	}

	source.UpdatedAt = time.Now()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = source.UpdatedAt
	}

	if err := s.db.Store().Upsert(source.ID, *source); err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}
	return nil
}

func (s *SourceStorage) Get(ctx context.Context, id string) (*models.Source, error) {
	var source models.Source
	if err := s.db.Store().Get(id, &source); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &source, nil
}

func (s *SourceStorage) GetByDomain(ctx context.Context, domain string) (*models.Source, error) {
	sources, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		if common.RegistrableDomain(src.RootURL) == domain {
			return src, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *SourceStorage) List(ctx context.Context) ([]*models.Source, error) {
	var sources []models.Source
	if err := s.db.Store().Find(&sources, nil); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	result := make([]*models.Source, len(sources))
	for i := range sources {
		result[i] = &sources[i]
	}
	return result, nil
}

func (s *SourceStorage) ListByStatus(ctx context.Context, statuses ...string) ([]*models.Source, error) {
	values := make([]interface{}, len(statuses))
	for i, st := range statuses {
		values[i] = st
	}

	var sources []models.Source
	if err := s.db.Store().Find(&sources, badgerhold.Where("Status").In(values...)); err != nil {
		return nil, fmt.Errorf("failed to list sources by status: %w", err)
	}
	result := make([]*models.Source, len(sources))
	for i := range sources {
		result[i] = &sources[i]
	}
	return result, nil
}

// UpdateStatus performs a compare-and-set status transition. Promotion is
// monotonic: promoted sources only move to paused or retired.
func (s *SourceStorage) UpdateStatus(ctx context.Context, id, fromStatus, toStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var source models.Source
	if err := s.db.Store().Get(id, &source); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to get source: %w", err)
	}

	if source.Status != fromStatus {
		return fmt.Errorf("%w: source %s is %s, expected %s",
			models.ErrDataIntegrity, id, source.Status, fromStatus)
	}

	if !validTransition(fromStatus, toStatus) {
		return fmt.Errorf("%w: invalid transition %s -> %s for source %s",
			models.ErrDataIntegrity, fromStatus, toStatus, id)
	}

	source.Status = toStatus
	source.UpdatedAt = time.Now()
	if toStatus == models.SourceStatusEvaluating && source.EvaluatingSince == nil {
		now := time.Now()
		source.EvaluatingSince = &now
	}

	if err := s.db.Store().Upsert(source.ID, source); err != nil {
		return fmt.Errorf("failed to update source status: %w", err)
	}

	s.logger.Debug().
		Str("source_id", id).
		Str("from", fromStatus).
		Str("to", toStatus).
		Msg("Source status transition")
	return nil
}

// validTransition encodes the source state machine. A promoted source never
// returns to candidate or discarded.
func validTransition(from, to string) bool {
	switch from {
	case models.SourceStatusCandidate:
		return to == models.SourceStatusEvaluating || to == models.SourceStatusDiscarded || to == models.SourceStatusRetired
	case models.SourceStatusEvaluating:
		return to == models.SourceStatusPromoted || to == models.SourceStatusDiscarded || to == models.SourceStatusRetired
	case models.SourceStatusActive:
		return to == models.SourceStatusPaused || to == models.SourceStatusRetired
	case models.SourceStatusPromoted:
		return to == models.SourceStatusPaused || to == models.SourceStatusRetired
	case models.SourceStatusPaused:
		return to == models.SourceStatusActive || to == models.SourceStatusPromoted || to == models.SourceStatusRetired
	default:
		return false
	}
}

package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// HealthStorage is the shared provider-health table. Transitions are
// serialized; reads are taken without coordination since brief staleness
// between workers is acceptable.
type HealthStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewHealthStorage creates a new HealthStorage instance
func NewHealthStorage(db *BadgerDB, logger arbor.ILogger) interfaces.HealthStorage {
	return &HealthStorage{db: db, logger: logger}
}

func (s *HealthStorage) Get(ctx context.Context, name string) (*models.ProviderHealth, error) {
	var health models.ProviderHealth
	if err := s.db.Store().Get(name, &health); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			// Unknown providers start healthy.
			return &models.ProviderHealth{
				Name:      name,
				State:     models.ProviderHealthy,
				UpdatedAt: time.Now(),
			}, nil
		}
		return nil, fmt.Errorf("failed to get provider health: %w", err)
	}
	return &health, nil
}

func (s *HealthStorage) Upsert(ctx context.Context, health *models.ProviderHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if health.Name == "" {
		return fmt.Errorf("provider health name is required")
	}
	health.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(health.Name, *health); err != nil {
		return fmt.Errorf("failed to save provider health: %w", err)
	}
	return nil
}

// Reset returns a provider to healthy. This is the operator path out of the
// unavailable state.
func (s *HealthStorage) Reset(ctx context.Context, name string) error {
	s.logger.Info().Str("provider", name).Msg("Provider health reset by operator")
	return s.Upsert(ctx, &models.ProviderHealth{
		Name:  name,
		State: models.ProviderHealthy,
	})
}

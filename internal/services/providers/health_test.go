package providers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// memoryHealthStorage is an in-memory HealthStorage for tests.
type memoryHealthStorage struct {
	mu      sync.Mutex
	records map[string]*models.ProviderHealth
}

func newMemoryHealthStorage() *memoryHealthStorage {
	return &memoryHealthStorage{records: make(map[string]*models.ProviderHealth)}
}

func (s *memoryHealthStorage) Get(_ context.Context, name string) (*models.ProviderHealth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.records[name]; ok {
		copied := *h
		return &copied, nil
	}
	return &models.ProviderHealth{Name: name, State: models.ProviderHealthy}, nil
}

func (s *memoryHealthStorage) Upsert(_ context.Context, health *models.ProviderHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *health
	s.records[health.Name] = &copied
	return nil
}

func (s *memoryHealthStorage) Reset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[name] = &models.ProviderHealth{Name: name, State: models.ProviderHealthy}
	return nil
}

func recoverableErr(provider string) error {
	return classifyStatus(provider, 429)
}

func fatalErr(provider string) error {
	return classifyStatus(provider, 401)
}

func TestHealthTrackerRecoverableFailureSetsCooldown(t *testing.T) {
	storage := newMemoryHealthStorage()
	tracker := NewHealthTracker(storage, time.Minute, 15*time.Minute, arbor.NewLogger())
	ctx := context.Background()

	tracker.RecordFailure(ctx, "avalai", recoverableErr("avalai"))

	health, err := storage.Get(ctx, "avalai")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderDegraded, health.State)
	assert.Equal(t, 1, health.ConsecutiveFailures)
	require.NotNil(t, health.CooldownUntil)
	assert.False(t, tracker.Available(ctx, "avalai"))
}

func TestHealthTrackerCooldownGrowsAndCaps(t *testing.T) {
	storage := newMemoryHealthStorage()
	tracker := NewHealthTracker(storage, time.Minute, 4*time.Minute, arbor.NewLogger())
	ctx := context.Background()

	var prev time.Duration
	for i := 0; i < 5; i++ {
		before := time.Now()
		tracker.RecordFailure(ctx, "avalai", recoverableErr("avalai"))

		health, err := storage.Get(ctx, "avalai")
		require.NoError(t, err)
		require.NotNil(t, health.CooldownUntil)
		cooldown := health.CooldownUntil.Sub(before)

		assert.GreaterOrEqual(t, cooldown, prev)
		assert.LessOrEqual(t, cooldown, 4*time.Minute+time.Second)
		prev = cooldown
	}
}

func TestHealthTrackerFatalRequiresOperatorReset(t *testing.T) {
	storage := newMemoryHealthStorage()
	tracker := NewHealthTracker(storage, time.Minute, 15*time.Minute, arbor.NewLogger())
	ctx := context.Background()

	tracker.RecordFailure(ctx, "claude", fatalErr("claude"))

	health, err := storage.Get(ctx, "claude")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderUnavailable, health.State)
	assert.Nil(t, health.CooldownUntil)
	assert.False(t, tracker.Available(ctx, "claude"))

	// Success alone must not revive a fatally failed provider; only Reset.
	require.NoError(t, storage.Reset(ctx, "claude"))
	assert.True(t, tracker.Available(ctx, "claude"))
}

func TestHealthTrackerSuccessClearsFailures(t *testing.T) {
	storage := newMemoryHealthStorage()
	tracker := NewHealthTracker(storage, time.Millisecond, 15*time.Minute, arbor.NewLogger())
	ctx := context.Background()

	tracker.RecordFailure(ctx, "avalai", recoverableErr("avalai"))
	tracker.RecordSuccess(ctx, "avalai")

	health, err := storage.Get(ctx, "avalai")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderHealthy, health.State)
	assert.Zero(t, health.ConsecutiveFailures)
	assert.True(t, tracker.Available(ctx, "avalai"))
}

func TestProviderHealthAvailableAfterCooldownExpiry(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	health := &models.ProviderHealth{
		Name:          "avalai",
		State:         models.ProviderDegraded,
		CooldownUntil: &past,
	}
	assert.True(t, health.Available(time.Now()))
}

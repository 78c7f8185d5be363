package providers

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// HealthTracker applies failure outcomes to the shared provider-health
// table. Degraded providers get an exponential, capped cooldown during
// which the waterfall skips them without a network round trip.
type HealthTracker struct {
	storage      interfaces.HealthStorage
	cooldownBase time.Duration
	cooldownMax  time.Duration
	logger       arbor.ILogger
}

// NewHealthTracker creates a new health tracker
func NewHealthTracker(storage interfaces.HealthStorage, base, max time.Duration, logger arbor.ILogger) *HealthTracker {
	if base <= 0 {
		base = 30 * time.Second
	}
	if max <= 0 {
		max = 15 * time.Minute
	}
	return &HealthTracker{
		storage:      storage,
		cooldownBase: base,
		cooldownMax:  max,
		logger:       logger,
	}
}

// Available reports whether the provider may be dispatched to right now.
func (t *HealthTracker) Available(ctx context.Context, name string) bool {
	health, err := t.storage.Get(ctx, name)
	if err != nil {
		// Health reads are advisory; on storage trouble assume available.
		t.logger.Warn().Err(err).Str("provider", name).Msg("Failed to read provider health")
		return true
	}
	return health.Available(time.Now())
}

// RecordSuccess clears failure state and returns the provider to healthy.
func (t *HealthTracker) RecordSuccess(ctx context.Context, name string) {
	health, err := t.storage.Get(ctx, name)
	if err == nil && health.State == models.ProviderHealthy && health.ConsecutiveFailures == 0 {
		return
	}
	if err := t.storage.Upsert(ctx, &models.ProviderHealth{
		Name:  name,
		State: models.ProviderHealthy,
	}); err != nil {
		t.logger.Warn().Err(err).Str("provider", name).Msg("Failed to record provider success")
	}
}

// RecordFailure transitions health state for a failed call. Recoverable
// errors degrade with cooldown 2^(n-1) * base, capped; non-recoverable
// errors mark the provider unavailable until operator reset.
func (t *HealthTracker) RecordFailure(ctx context.Context, name string, callErr error) {
	health, err := t.storage.Get(ctx, name)
	if err != nil {
		health = &models.ProviderHealth{Name: name, State: models.ProviderHealthy}
	}

	health.ConsecutiveFailures++
	health.LastError = callErr.Error()

	var provErr *models.ProviderError
	recoverable := errors.As(callErr, &provErr) && provErr.Recoverable()

	if recoverable {
		cooldown := t.cooldownBase
		for i := 1; i < health.ConsecutiveFailures && cooldown < t.cooldownMax; i++ {
			cooldown *= 2
		}
		if cooldown > t.cooldownMax {
			cooldown = t.cooldownMax
		}
		until := time.Now().Add(cooldown)
		health.State = models.ProviderDegraded
		health.CooldownUntil = &until

		t.logger.Warn().
			Str("provider", name).
			Str("cooldown", cooldown.String()).
			Int("consecutive_failures", health.ConsecutiveFailures).
			Msg("Provider degraded, entering cooldown")
	} else {
		health.State = models.ProviderUnavailable
		health.CooldownUntil = nil

		t.logger.Error().
			Err(callErr).
			Str("provider", name).
			Msg("Provider unavailable until operator reset")
	}

	if err := t.storage.Upsert(ctx, health); err != nil {
		t.logger.Warn().Err(err).Str("provider", name).Msg("Failed to record provider failure")
	}
}

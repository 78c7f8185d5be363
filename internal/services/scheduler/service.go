package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// Dispatcher is the slice of the queue manager the scheduler needs.
type Dispatcher interface {
	EnqueueDiscovery(ctx context.Context, sourceID, forceMode string) error
}

// Service runs the recurring tick: dispatching due sources and advancing
// the candidate evaluation loop. Source intervals adapt to the urgency of
// what enrichment finds, so productive sources are polled tighter and
// quiet ones back off.
type Service struct {
	config     common.SchedulerConfig
	storage    interfaces.StorageManager
	dispatcher Dispatcher
	cron       *cron.Cron
	logger     arbor.ILogger
}

// NewService creates the scheduler.
func NewService(config common.SchedulerConfig, storage interfaces.StorageManager, dispatcher Dispatcher, logger arbor.ILogger) *Service {
	if config.Schedule == "" {
		config.Schedule = "*/1 * * * *"
	}
	if config.DefaultInterval <= 0 {
		config.DefaultInterval = time.Hour
	}
	if config.MinInterval <= 0 {
		config.MinInterval = 5 * time.Minute
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = 24 * time.Hour
	}
	return &Service{
		config:     config,
		storage:    storage,
		dispatcher: dispatcher,
		cron:       cron.New(),
		logger:     logger,
	}
}

// Start registers and starts the cron tick.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.config.Schedule, s.tick); err != nil {
		return fmt.Errorf("invalid scheduler cron expression %q: %w", s.config.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.config.Schedule).Msg("Scheduler started")
	return nil
}

// Stop stops the cron runner and waits for a running tick to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Service) tick() {
	ctx := context.Background()
	s.dispatchDue(ctx)
	s.evaluateCandidates(ctx)
}

// dispatchDue enqueues discovery for every schedulable source whose
// interval has elapsed.
func (s *Service) dispatchDue(ctx context.Context) {
	sources, err := s.storage.SourceStorage().ListByStatus(ctx, models.SourceStatusActive, models.SourceStatusPromoted)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list schedulable sources")
		return
	}

	now := time.Now()
	for _, source := range sources {
		if !source.Due(now) {
			continue
		}
		if err := s.dispatchRun(ctx, source, now); err != nil {
			s.logger.Error().Err(err).Str("source_id", source.ID).Msg("Failed to dispatch discovery")
		}
	}
}

func (s *Service) dispatchRun(ctx context.Context, source *models.Source, now time.Time) error {
	if err := s.dispatcher.EnqueueDiscovery(ctx, source.ID, ""); err != nil {
		return err
	}
	source.LastRunAt = &now
	source.UpdatedAt = now
	if err := s.storage.SourceStorage().Save(ctx, source); err != nil {
		return fmt.Errorf("update last run: %w", err)
	}
	s.logger.Debug().
		Str("source_id", source.ID).
		Str("interval", source.ScheduleInterval.String()).
		Msg("Dispatched scheduled discovery")
	return nil
}

// evaluateCandidates advances the evolution loop: candidates get a probe
// run and switch to evaluating once the probe yields an enriched document;
// evaluating sources are promoted once the high-urgency count inside the
// trailing window crosses the threshold, or discarded when the window
// closes without signal.
func (s *Service) evaluateCandidates(ctx context.Context) {
	sourceStore := s.storage.SourceStorage()

	candidates, err := sourceStore.ListByStatus(ctx, models.SourceStatusCandidate)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list candidate sources")
		return
	}
	for _, source := range candidates {
		if err := s.probeCandidate(ctx, source); err != nil {
			s.logger.Error().Err(err).Str("source_id", source.ID).Msg("Failed to probe candidate")
		}
	}

	evaluating, err := sourceStore.ListByStatus(ctx, models.SourceStatusEvaluating)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list evaluating sources")
		return
	}
	for _, source := range evaluating {
		if err := s.judgeEvaluation(ctx, source); err != nil {
			s.logger.Error().Err(err).Str("source_id", source.ID).Msg("Failed to judge evaluation")
		}
	}
}

// probeCandidate dispatches the one-off probe run for a fresh candidate.
// The source stays candidate until the probe yields an enriched document
// (RecordEnrichment does the switch), so the promotion window does not
// burn down while the pipeline is still in flight. A probe that produces
// nothing inside the window discards the candidate.
func (s *Service) probeCandidate(ctx context.Context, source *models.Source) error {
	if source.LastRunAt == nil {
		if err := s.dispatcher.EnqueueDiscovery(ctx, source.ID, ""); err != nil {
			return err
		}
		now := time.Now()
		source.LastRunAt = &now
		source.UpdatedAt = now
		if err := s.storage.SourceStorage().Save(ctx, source); err != nil {
			return err
		}
		s.logger.Info().Str("source_id", source.ID).Str("root_url", source.RootURL).Msg("Candidate probe dispatched")
		return nil
	}

	if time.Since(*source.LastRunAt) > s.config.PromotionWindow {
		if err := s.storage.SourceStorage().UpdateStatus(ctx, source.ID, models.SourceStatusCandidate, models.SourceStatusDiscarded); err != nil {
			return err
		}
		s.logger.Info().
			Str("source_id", source.ID).
			Msg("Candidate discarded: probe produced no enriched documents")
	}
	return nil
}

func (s *Service) judgeEvaluation(ctx context.Context, source *models.Source) error {
	if source.EvaluatingSince == nil {
		now := time.Now()
		source.EvaluatingSince = &now
		return s.storage.SourceStorage().Save(ctx, source)
	}

	since := time.Now().Add(-s.config.PromotionWindow)
	if source.EvaluatingSince.After(since) {
		since = *source.EvaluatingSince
	}

	count, err := s.storage.EnrichmentStorage().CountHighUrgencyBySource(ctx, source.ID, s.config.HighUrgencyFloor, since)
	if err != nil {
		return fmt.Errorf("count high urgency: %w", err)
	}

	if count >= s.config.PromotionThreshold {
		return s.promote(ctx, source, count)
	}

	if time.Since(*source.EvaluatingSince) > s.config.PromotionWindow {
		if err := s.storage.SourceStorage().UpdateStatus(ctx, source.ID, models.SourceStatusEvaluating, models.SourceStatusDiscarded); err != nil {
			return err
		}
		s.logger.Info().
			Str("source_id", source.ID).
			Int("high_urgency", count).
			Msg("Source discarded after evaluation window")
	}
	return nil
}

func (s *Service) promote(ctx context.Context, source *models.Source, count int) error {
	if err := s.storage.SourceStorage().UpdateStatus(ctx, source.ID, models.SourceStatusEvaluating, models.SourceStatusPromoted); err != nil {
		return err
	}

	now := time.Now()
	source.Status = models.SourceStatusPromoted
	source.ScheduleInterval = s.config.DefaultInterval
	source.UpdatedAt = now
	if err := s.storage.SourceStorage().Save(ctx, source); err != nil {
		return err
	}

	record := &models.PromotionRecord{
		ID:            common.NewPromotionID(),
		SourceID:      source.ID,
		Query:         source.OriginQuery,
		Trigger:       "value_threshold",
		DocumentCount: count,
		CreatedAt:     now,
	}
	if err := s.storage.PromotionStorage().Save(ctx, record); err != nil {
		return fmt.Errorf("save promotion record: %w", err)
	}

	s.logger.Info().
		Str("source_id", source.ID).
		Str("root_url", source.RootURL).
		Int("high_urgency", count).
		Msg("Source promoted to recurring monitoring")
	return nil
}

// enterEvaluation switches a candidate to evaluating on its first enriched
// document. The window anchors at the probe dispatch so every document the
// probe produced counts toward promotion.
func (s *Service) enterEvaluation(ctx context.Context, source *models.Source) error {
	anchor := time.Now()
	if source.LastRunAt != nil {
		anchor = *source.LastRunAt
	}
	source.EvaluatingSince = &anchor
	source.UpdatedAt = time.Now()
	if err := s.storage.SourceStorage().Save(ctx, source); err != nil {
		return err
	}
	if err := s.storage.SourceStorage().UpdateStatus(ctx, source.ID, models.SourceStatusCandidate, models.SourceStatusEvaluating); err != nil {
		return err
	}
	s.logger.Info().Str("source_id", source.ID).Str("root_url", source.RootURL).Msg("Source entered evaluation")
	return nil
}

// TriggerSource enqueues an immediate discovery run for one source.
func (s *Service) TriggerSource(ctx context.Context, sourceID string) error {
	source, err := s.storage.SourceStorage().Get(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("load source %s: %w", sourceID, err)
	}
	return s.dispatcher.EnqueueDiscovery(ctx, source.ID, "")
}

// RecordEnrichment tightens or relaxes a source's interval from the
// urgency of freshly enriched content.
func (s *Service) RecordEnrichment(ctx context.Context, sourceID string, urgency int) error {
	source, err := s.storage.SourceStorage().Get(ctx, sourceID)
	if err != nil {
		return err
	}

	if source.Status == models.SourceStatusCandidate {
		return s.enterEvaluation(ctx, source)
	}

	if !source.Schedulable() {
		return nil
	}

	var next time.Duration
	switch {
	case urgency >= 8:
		next = s.config.MinInterval
	case urgency >= 5:
		next = 30 * time.Minute
	default:
		// Quiet content drifts back toward the default cadence.
		next = source.ScheduleInterval
		if next < s.config.DefaultInterval {
			next = next * 2
			if next > s.config.DefaultInterval {
				next = s.config.DefaultInterval
			}
		}
	}
	next = s.clampInterval(next)

	if next == source.ScheduleInterval {
		return nil
	}
	source.ScheduleInterval = next
	source.UpdatedAt = time.Now()
	if err := s.storage.SourceStorage().Save(ctx, source); err != nil {
		return err
	}

	s.logger.Debug().
		Str("source_id", sourceID).
		Int("urgency", urgency).
		Str("interval", next.String()).
		Msg("Adjusted source interval")
	return nil
}

// RecordRunOutcome tracks discovery run streaks. A successful run resets
// the streak and relaxes the interval; repeated failures pause a
// promoted source.
func (s *Service) RecordRunOutcome(ctx context.Context, sourceID string, runErr error) error {
	source, err := s.storage.SourceStorage().Get(ctx, sourceID)
	if err != nil {
		return err
	}

	if runErr == nil {
		source.FailureStreak = 0
		if source.Schedulable() {
			// Back off 1.5x per run; enrichment activity pulls it back in.
			grown := time.Duration(float64(source.ScheduleInterval) * 1.5)
			source.ScheduleInterval = s.clampInterval(grown)
		}
		source.UpdatedAt = time.Now()
		return s.storage.SourceStorage().Save(ctx, source)
	}

	source.FailureStreak++
	source.UpdatedAt = time.Now()
	if err := s.storage.SourceStorage().Save(ctx, source); err != nil {
		return err
	}

	if source.Status == models.SourceStatusPromoted && source.FailureStreak >= s.config.FailureStreakLimit {
		if err := s.storage.SourceStorage().UpdateStatus(ctx, source.ID, models.SourceStatusPromoted, models.SourceStatusPaused); err != nil {
			return err
		}
		s.logger.Warn().
			Str("source_id", source.ID).
			Int("failure_streak", source.FailureStreak).
			Msg("Promoted source paused after failure streak")
	}
	return nil
}

func (s *Service) clampInterval(d time.Duration) time.Duration {
	if d < s.config.MinInterval {
		return s.config.MinInterval
	}
	if d > s.config.MaxInterval {
		return s.config.MaxInterval
	}
	return d
}

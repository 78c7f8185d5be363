package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
	"github.com/abtn/nexus-smart-scraper/internal/services/providers"
)

// Manager runs the stage worker pools over the persistent queue. Each
// stage polls independently; a message that fails is released back with
// a delay, and messages past the receive limit are parked.
type Manager struct {
	config    common.QueueConfig
	storage   interfaces.StorageManager
	discovery interfaces.DiscoveryService
	fetcher   interfaces.Fetcher
	extractor interfaces.Extractor
	waterfall *providers.Waterfall
	logger    arbor.ILogger

	// scheduler is bound after construction; the scheduler itself
	// enqueues through this manager.
	scheduler interfaces.SchedulerService

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates the queue manager. BindScheduler must be called
// before Start.
func NewManager(
	config common.QueueConfig,
	storage interfaces.StorageManager,
	discovery interfaces.DiscoveryService,
	fetcher interfaces.Fetcher,
	extractor interfaces.Extractor,
	waterfall *providers.Waterfall,
	logger arbor.ILogger,
) *Manager {
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 5 * time.Minute
	}
	if config.MaxReceive <= 0 {
		config.MaxReceive = 3
	}
	return &Manager{
		config:    config,
		storage:   storage,
		discovery: discovery,
		fetcher:   fetcher,
		extractor: extractor,
		waterfall: waterfall,
		logger:    logger,
	}
}

// BindScheduler wires the scheduler callbacks. The scheduler depends on
// the manager for enqueueing, so it cannot be a constructor argument.
func (m *Manager) BindScheduler(s interfaces.SchedulerService) {
	m.scheduler = s
}

// Start launches the stage worker pools.
func (m *Manager) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.startPool(runCtx, models.StageDiscovery, m.config.DiscoveryWorkers, m.handleDiscovery)
	m.startPool(runCtx, models.StageFetch, m.config.FetchWorkers, m.handleFetch)
	m.startPool(runCtx, models.StageEnrich, m.config.EnrichWorkers, m.handleEnrich)

	m.logger.Info().
		Int("discovery_workers", m.config.DiscoveryWorkers).
		Int("fetch_workers", m.config.FetchWorkers).
		Int("enrich_workers", m.config.EnrichWorkers).
		Msg("Queue workers started")
}

// Stop cancels the workers and waits for in-flight handlers to finish.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info().Msg("Queue workers stopped")
}

type handlerFunc func(ctx context.Context, msg *models.QueueMessage) error

func (m *Manager) startPool(ctx context.Context, stage string, workers int, handler handlerFunc) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.workerLoop(ctx, stage, handler)
	}
}

func (m *Manager) workerLoop(ctx context.Context, stage string, handler handlerFunc) {
	defer m.wg.Done()

	queue := m.storage.QueueStorage()
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		msg, err := queue.Claim(ctx, stage, m.config.VisibilityTimeout, m.config.MaxReceive)
		switch {
		case errors.Is(err, models.ErrNoMessage):
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		case err != nil:
			m.logger.Warn().Err(err).Str("stage", stage).Msg("Queue claim failed")
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		m.process(ctx, queue, stage, msg, handler)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (m *Manager) process(ctx context.Context, queue interfaces.QueueStorage, stage string, msg *models.QueueMessage, handler handlerFunc) {
	if err := handler(ctx, msg); err != nil {
		delay := retryDelay(msg.Receipts)
		m.logger.Warn().
			Err(err).
			Str("stage", stage).
			Str("message_id", msg.ID).
			Int("receipts", msg.Receipts).
			Str("retry_in", delay.String()).
			Msg("Stage handler failed, releasing message")
		if relErr := queue.Release(ctx, msg.ID, delay); relErr != nil {
			m.logger.Error().Err(relErr).Str("message_id", msg.ID).Msg("Failed to release message")
		}
		return
	}

	if err := queue.Delete(ctx, msg.ID); err != nil {
		m.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to delete completed message")
	}
}

// retryDelay backs off per delivery attempt: 30s, 60s, 120s...
func retryDelay(receipts int) time.Duration {
	delay := 30 * time.Second
	for i := 1; i < receipts && delay < 10*time.Minute; i++ {
		delay *= 2
	}
	if delay > 10*time.Minute {
		delay = 10 * time.Minute
	}
	return delay
}

// EnqueueDiscovery queues a discovery run for a source.
func (m *Manager) EnqueueDiscovery(ctx context.Context, sourceID, forceMode string) error {
	return m.enqueue(ctx, models.StageDiscovery, models.DiscoveryPayload{
		SourceID:  sourceID,
		ForceMode: forceMode,
	})
}

// EnqueueFetch queues retrieval and extraction of one document.
func (m *Manager) EnqueueFetch(ctx context.Context, documentID string) error {
	return m.enqueue(ctx, models.StageFetch, models.FetchPayload{DocumentID: documentID})
}

// EnqueueEnrich queues AI annotation of one document at a specific
// content hash.
func (m *Manager) EnqueueEnrich(ctx context.Context, documentID, hash string) error {
	return m.enqueue(ctx, models.StageEnrich, models.EnrichPayload{
		DocumentID: documentID,
		Hash:       hash,
	})
}

func (m *Manager) enqueue(ctx context.Context, stage string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", stage, err)
	}
	now := time.Now()
	return m.storage.QueueStorage().Enqueue(ctx, &models.QueueMessage{
		ID:         common.NewMessageID(),
		Stage:      stage,
		Payload:    raw,
		VisibleAt:  now,
		EnqueuedAt: now,
	})
}

// Depth reports the number of pending messages in a stage.
func (m *Manager) Depth(ctx context.Context, stage string) (int, error) {
	return m.storage.QueueStorage().Depth(ctx, stage)
}

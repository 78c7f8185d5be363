package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// QueueStorage implements badger-backed stage queues with visibility
// timeouts. Claim is serialized so two workers never receive the same
// message inside one visibility window.
type QueueStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewQueueStorage creates a new QueueStorage instance
func NewQueueStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QueueStorage {
	return &QueueStorage{db: db, logger: logger}
}

func (s *QueueStorage) Enqueue(ctx context.Context, msg *models.QueueMessage) error {
	if msg.ID == "" {
		return fmt.Errorf("queue message ID is required")
	}
	if msg.Stage == "" {
		return fmt.Errorf("queue message stage is required")
	}

	now := time.Now()
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = now
	}
	if msg.VisibleAt.IsZero() {
		msg.VisibleAt = now
	}

	if err := s.db.Store().Upsert(msg.ID, *msg); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

// Claim receives the oldest visible message for a stage, increments its
// receipt count and hides it for the visibility timeout. Messages that
// exceed maxReceive are parked for operator review instead of delivered.
func (s *QueueStorage) Claim(ctx context.Context, stage string, visibility time.Duration, maxReceive int) (*models.QueueMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var candidates []models.QueueMessage
	query := badgerhold.Where("Stage").Eq(stage).And("Parked").Eq(false)
	if err := s.db.Store().Find(&candidates, query); err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}

	var oldest *models.QueueMessage
	for i := range candidates {
		msg := &candidates[i]
		if msg.VisibleAt.After(now) {
			continue
		}
		if oldest == nil || msg.EnqueuedAt.Before(oldest.EnqueuedAt) {
			oldest = msg
		}
	}
	if oldest == nil {
		return nil, models.ErrNoMessage
	}

	oldest.Receipts++
	if oldest.Receipts > maxReceive {
		oldest.Parked = true
		if err := s.db.Store().Upsert(oldest.ID, *oldest); err != nil {
			return nil, fmt.Errorf("failed to park message: %w", err)
		}
		s.logger.Warn().
			Str("msg_id", oldest.ID).
			Str("stage", stage).
			Int("receipts", oldest.Receipts).
			Msg("Message exceeded max receives, parked for review")
		return nil, models.ErrNoMessage
	}

	oldest.VisibleAt = now.Add(visibility)
	if err := s.db.Store().Upsert(oldest.ID, *oldest); err != nil {
		return nil, fmt.Errorf("failed to claim message: %w", err)
	}
	return oldest, nil
}

func (s *QueueStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.QueueMessage{}); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// Release makes a claimed message visible again after a delay, used for
// retry-with-backoff after a failed handler.
func (s *QueueStorage) Release(ctx context.Context, id string, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var msg models.QueueMessage
	if err := s.db.Store().Get(id, &msg); err != nil {
		return fmt.Errorf("failed to get message for release: %w", err)
	}
	msg.VisibleAt = time.Now().Add(delay)
	if err := s.db.Store().Upsert(msg.ID, msg); err != nil {
		return fmt.Errorf("failed to release message: %w", err)
	}
	return nil
}

func (s *QueueStorage) Depth(ctx context.Context, stage string) (int, error) {
	count, err := s.db.Store().Count(&models.QueueMessage{},
		badgerhold.Where("Stage").Eq(stage).And("Parked").Eq(false))
	if err != nil {
		return 0, fmt.Errorf("failed to count queue depth: %w", err)
	}
	return int(count), nil
}

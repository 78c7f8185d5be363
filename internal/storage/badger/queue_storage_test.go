package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

func newTestQueueStorage(t *testing.T) *QueueStorage {
	t.Helper()
	return NewQueueStorage(newTestDB(t), arbor.NewLogger()).(*QueueStorage)
}

func enqueueTestMessage(t *testing.T, storage *QueueStorage, id, stage string, enqueuedAt time.Time) {
	t.Helper()
	require.NoError(t, storage.Enqueue(context.Background(), &models.QueueMessage{
		ID:         id,
		Stage:      stage,
		Payload:    []byte(`{}`),
		VisibleAt:  enqueuedAt,
		EnqueuedAt: enqueuedAt,
	}))
}

func TestClaimReturnsOldestAndHidesIt(t *testing.T) {
	storage := newTestQueueStorage(t)
	ctx := context.Background()
	now := time.Now()

	enqueueTestMessage(t, storage, "msg_2", models.StageFetch, now)
	enqueueTestMessage(t, storage, "msg_1", models.StageFetch, now.Add(-time.Minute))

	msg, err := storage.Claim(ctx, models.StageFetch, time.Minute, 3)
	require.NoError(t, err)
	assert.Equal(t, "msg_1", msg.ID)
	assert.Equal(t, 1, msg.Receipts)

	// msg_1 is invisible now; the next claim gets msg_2.
	next, err := storage.Claim(ctx, models.StageFetch, time.Minute, 3)
	require.NoError(t, err)
	assert.Equal(t, "msg_2", next.ID)

	// Queue is drained inside the visibility window.
	_, err = storage.Claim(ctx, models.StageFetch, time.Minute, 3)
	assert.True(t, errors.Is(err, models.ErrNoMessage))
}

func TestClaimIsolatesStages(t *testing.T) {
	storage := newTestQueueStorage(t)
	ctx := context.Background()

	enqueueTestMessage(t, storage, "msg_1", models.StageDiscovery, time.Now())

	_, err := storage.Claim(ctx, models.StageFetch, time.Minute, 3)
	assert.True(t, errors.Is(err, models.ErrNoMessage))

	msg, err := storage.Claim(ctx, models.StageDiscovery, time.Minute, 3)
	require.NoError(t, err)
	assert.Equal(t, "msg_1", msg.ID)
}

func TestReleaseMakesMessageClaimableAgain(t *testing.T) {
	storage := newTestQueueStorage(t)
	ctx := context.Background()

	enqueueTestMessage(t, storage, "msg_1", models.StageEnrich, time.Now())

	msg, err := storage.Claim(ctx, models.StageEnrich, time.Hour, 3)
	require.NoError(t, err)

	require.NoError(t, storage.Release(ctx, msg.ID, 0))

	again, err := storage.Claim(ctx, models.StageEnrich, time.Hour, 3)
	require.NoError(t, err)
	assert.Equal(t, "msg_1", again.ID)
	assert.Equal(t, 2, again.Receipts)
}

func TestMessageParkedAfterMaxReceives(t *testing.T) {
	storage := newTestQueueStorage(t)
	ctx := context.Background()

	enqueueTestMessage(t, storage, "msg_1", models.StageEnrich, time.Now())

	maxReceive := 2
	for i := 0; i < maxReceive; i++ {
		msg, err := storage.Claim(ctx, models.StageEnrich, time.Hour, maxReceive)
		require.NoError(t, err)
		require.NoError(t, storage.Release(ctx, msg.ID, 0))
	}

	// The next delivery attempt crosses the limit and parks the message.
	_, err := storage.Claim(ctx, models.StageEnrich, time.Hour, maxReceive)
	assert.True(t, errors.Is(err, models.ErrNoMessage))

	depth, err := storage.Depth(ctx, models.StageEnrich)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestDeleteCompletesMessage(t *testing.T) {
	storage := newTestQueueStorage(t)
	ctx := context.Background()

	enqueueTestMessage(t, storage, "msg_1", models.StageFetch, time.Now())

	msg, err := storage.Claim(ctx, models.StageFetch, time.Minute, 3)
	require.NoError(t, err)
	require.NoError(t, storage.Delete(ctx, msg.ID))

	depth, err := storage.Depth(ctx, models.StageFetch)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

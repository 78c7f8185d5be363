package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestVectorSearchRanksByCosineSimilarity(t *testing.T) {
	storage := NewVectorStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, "doc_close", []float32{1, 0.1, 0}, nil))
	require.NoError(t, storage.Upsert(ctx, "doc_far", []float32{0, 0, 1}, nil))
	require.NoError(t, storage.Upsert(ctx, "doc_mid", []float32{0.7, 0.7, 0}, nil))

	hits, err := storage.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "doc_close", hits[0].DocumentID)
	assert.Equal(t, "doc_mid", hits[1].DocumentID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestVectorUpsertReplacesEmbedding(t *testing.T) {
	storage := NewVectorStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, "doc_1", []float32{0, 1}, nil))
	require.NoError(t, storage.Upsert(ctx, "doc_1", []float32{1, 0}, nil))

	hits, err := storage.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestVectorSearchSkipsMismatchedDimensions(t *testing.T) {
	storage := NewVectorStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, "doc_1", []float32{1, 0, 0}, nil))
	require.NoError(t, storage.Upsert(ctx, "doc_2", []float32{1, 0}, nil))

	hits, err := storage.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc_1", hits[0].DocumentID)
}

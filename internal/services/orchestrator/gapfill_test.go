package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
	"github.com/abtn/nexus-smart-scraper/internal/storage/badger"
)

type noopDispatcher struct{}

func (noopDispatcher) EnqueueDiscovery(context.Context, string, string) error { return nil }

func newCandidateTestService(t *testing.T) (*Service, interfaces.StorageManager) {
	t.Helper()

	storage, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	config := common.DefaultConfig().Orchestrator
	svc := NewService(config, storage, nil, noopDispatcher{}, arbor.NewLogger())
	return svc, storage
}

func TestRegisterCandidateCreatesSource(t *testing.T) {
	svc, storage := newCandidateTestService(t)
	ctx := context.Background()

	source, err := svc.registerCandidate(ctx, "https://fresh-news.test/article?utm_source=x", "Fresh News", "go generics")
	require.NoError(t, err)
	require.NotNil(t, source)

	assert.Equal(t, models.SourceStatusCandidate, source.Status)
	assert.Equal(t, "go generics", source.OriginQuery)
	assert.Equal(t, models.DiscoveryModeAuto, source.DiscoveryMode)
	// Tracking parameters never reach the stored root URL.
	assert.NotContains(t, source.RootURL, "utm_source")

	stored, err := storage.SourceStorage().Get(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, source.RootURL, stored.RootURL)
}

func TestRegisterCandidateSkipsLowSignalDomains(t *testing.T) {
	svc, _ := newCandidateTestService(t)
	svc.config.LowSignalDomains = []string{"pinterest.com"}

	source, err := svc.registerCandidate(context.Background(), "https://www.pinterest.com/pin/123", "Pin", "query")
	require.NoError(t, err)
	assert.Nil(t, source)

	source, err = svc.registerCandidate(context.Background(), "https://sub.pinterest.com/board", "Board", "query")
	require.NoError(t, err)
	assert.Nil(t, source)
}

func TestRegisterCandidateSkipsKnownDomains(t *testing.T) {
	svc, storage := newCandidateTestService(t)
	ctx := context.Background()

	require.NoError(t, storage.SourceStorage().Save(ctx, &models.Source{
		ID:      "src-existing",
		Name:    "Existing",
		RootURL: "https://known.test",
		Status:  models.SourceStatusPromoted,
	}))

	source, err := svc.registerCandidate(ctx, "https://www.known.test/some/article", "Known", "query")
	require.NoError(t, err)
	assert.Nil(t, source)
}

func TestRegisterCandidateSkipsIngestedURLs(t *testing.T) {
	svc, storage := newCandidateTestService(t)
	ctx := context.Background()

	require.NoError(t, storage.DocumentStorage().Save(ctx, &models.Document{
		ID:               "doc-seen",
		SourceID:         "src-other",
		URL:              "https://fresh.test/article",
		ExtractionStatus: models.ExtractionExtracted,
		EnrichmentStatus: models.EnrichmentEnriched,
	}))

	// The same page resurfacing in a search hit must not spawn a source.
	source, err := svc.registerCandidate(ctx, "https://fresh.test/article?utm_source=x", "Fresh", "query")
	require.NoError(t, err)
	assert.Nil(t, source)
}

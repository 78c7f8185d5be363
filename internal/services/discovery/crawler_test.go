package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

func TestRecursiveCrawlDeduplicatesCyclicLinks(t *testing.T) {
	fetcher := newStubFetcher()
	// Root and the news index link to each other; the cycle must not loop.
	fetcher.pages["https://site.test"] = `<html><body>
		<a href="/news">news</a>
		<a href="/news">news again</a>
		<a href="/2024/story-1">story</a>
	</body></html>`
	fetcher.pages["https://site.test/news"] = `<html><body>
		<a href="/">home</a>
		<a href="/2024/story-2">story</a>
	</body></html>`

	cfg := testConfig()
	cfg.MaxDepth = 2
	svc := newTestService(fetcher, cfg)
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeRecursive}

	run, err := svc.Discover(context.Background(), source, "")
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.fetchCount("https://site.test"))
	assert.Equal(t, 1, fetcher.fetchCount("https://site.test/news"))

	urls := frontierURLs(run.Frontier)
	assert.Contains(t, urls, "https://site.test/2024/story-1")
	assert.Contains(t, urls, "https://site.test/2024/story-2")
}

func TestRecursiveCrawlRespectsDepthBound(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.pages["https://site.test"] = `<html><body><a href="/news">news</a></body></html>`
	fetcher.pages["https://site.test/news"] = `<html><body><a href="/news/archive">archive</a></body></html>`
	fetcher.pages["https://site.test/news/archive"] = `<html><body><a href="/2024/deep-story">story</a></body></html>`

	cfg := testConfig()
	cfg.MaxDepth = 1
	svc := newTestService(fetcher, cfg)
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeRecursive}

	_, err := svc.Discover(context.Background(), source, "")
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.fetchCount("https://site.test/news"))
	// The archive sits at depth 2, past the bound.
	assert.Zero(t, fetcher.fetchCount("https://site.test/news/archive"))
}

func TestRecursiveCrawlFrontierDepthNeverExceedsBound(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.pages["https://site.test"] = `<html><body><a href="/news">news</a></body></html>`
	// Content discovered on a page at the depth bound still belongs to
	// the frontier, recorded at the bound.
	fetcher.pages["https://site.test/news"] = `<html><body><a href="/2024/edge-story">story</a></body></html>`

	cfg := testConfig()
	cfg.MaxDepth = 1
	svc := newTestService(fetcher, cfg)
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeRecursive}

	run, err := svc.Discover(context.Background(), source, "")
	require.NoError(t, err)

	assert.Contains(t, frontierURLs(run.Frontier), "https://site.test/2024/edge-story")
	for _, entry := range run.Frontier {
		assert.LessOrEqual(t, entry.Depth, cfg.MaxDepth, entry.URL)
	}
}

func TestRecursiveCrawlPageBudgetMarksPartial(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.pages["https://site.test"] = `<html><body>
		<a href="/news">a</a>
		<a href="/blog">b</a>
		<a href="/category/tech">c</a>
	</body></html>`
	fetcher.pages["https://site.test/news"] = `<html><body>x</body></html>`
	fetcher.pages["https://site.test/blog"] = `<html><body>x</body></html>`
	fetcher.pages["https://site.test/category/tech"] = `<html><body>x</body></html>`

	cfg := testConfig()
	cfg.MaxPages = 2
	cfg.Concurrency = 1
	svc := newTestService(fetcher, cfg)
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeRecursive}

	run, err := svc.Discover(context.Background(), source, "")
	require.NoError(t, err)
	assert.True(t, run.Partial)
}

func TestRecursiveCrawlRootFailureIsFatal(t *testing.T) {
	fetcher := newStubFetcher()

	svc := newTestService(fetcher, testConfig())
	source := &models.Source{ID: "src_1", RootURL: "https://down.test", DiscoveryMode: models.DiscoveryModeRecursive}

	_, err := svc.Discover(context.Background(), source, "")
	assert.Error(t, err)
}

func TestRecursiveCrawlIgnoresOffDomainLinks(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.pages["https://site.test"] = `<html><body>
		<a href="https://other.test/2024/story">external</a>
		<a href="/2024/local-story">local</a>
	</body></html>`

	svc := newTestService(fetcher, testConfig())
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeRecursive}

	run, err := svc.Discover(context.Background(), source, "")
	require.NoError(t, err)

	urls := frontierURLs(run.Frontier)
	assert.Contains(t, urls, "https://site.test/2024/local-story")
	assert.NotContains(t, urls, "https://other.test/2024/story")
}

func frontierURLs(frontier []models.FrontierEntry) []string {
	urls := make([]string, 0, len(frontier))
	for _, entry := range frontier {
		urls = append(urls, entry.URL)
	}
	return urls
}

package discovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// stubFetcher serves canned bodies keyed by URL and counts fetches.
type stubFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	sitemaps []string
	fetches  map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages:   make(map[string]string),
		fetches: make(map[string]int),
	}
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (*interfaces.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[rawURL]++
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrTransientNetwork, rawURL)
	}
	return &interfaces.FetchResult{StatusCode: 200, Body: []byte(body), FinalURL: rawURL}, nil
}

func (f *stubFetcher) SitemapLocations(_ context.Context, _ string) ([]string, error) {
	if len(f.sitemaps) == 0 {
		return nil, fmt.Errorf("no sitemap declarations")
	}
	return f.sitemaps, nil
}

func (f *stubFetcher) fetchCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[url]
}

func testConfig() common.DiscoveryConfig {
	cfg := common.DefaultConfig().Discovery
	cfg.Concurrency = 2
	return cfg
}

func newTestService(fetcher Fetcher, cfg common.DiscoveryConfig) *Service {
	return NewService(cfg, fetcher, arbor.NewLogger())
}

func freshLastMod() string {
	return time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
}

func staleLastMod() string {
	return time.Now().Add(-30 * 24 * time.Hour).Format(time.RFC3339)
}

func sitemapXML(entries ...string) string {
	body := `<?xml version="1.0"?><urlset>`
	for _, e := range entries {
		body += e
	}
	return body + `</urlset>`
}

func sitemapURL(loc, lastmod string) string {
	return fmt.Sprintf("<url><loc>%s</loc><lastmod>%s</lastmod></url>", loc, lastmod)
}

func TestDiscoverAutoPrefersSitemap(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.sitemaps = []string{"https://site.test/sitemap-news.xml"}
	fetcher.pages["https://site.test/sitemap-news.xml"] = sitemapXML(
		sitemapURL("https://site.test/2024/breaking-story", freshLastMod()),
		sitemapURL("https://site.test/2024/other-story", freshLastMod()),
	)

	svc := newTestService(fetcher, testConfig())
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeAuto}

	run, err := svc.Discover(context.Background(), source, "")
	require.NoError(t, err)

	assert.Equal(t, models.DiscoveryModeSitemap, run.Strategy)
	assert.Len(t, run.Frontier, 2)
	// The recursive crawl must not have started.
	assert.Zero(t, fetcher.fetchCount("https://site.test"))
}

func TestDiscoverAutoFallsBackWhenSitemapStale(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.sitemaps = []string{"https://site.test/sitemap.xml"}
	fetcher.pages["https://site.test/sitemap.xml"] = sitemapXML(
		sitemapURL("https://site.test/2019/old-story", staleLastMod()),
	)
	fetcher.pages["https://site.test"] = `<html><body>
		<a href="/2024/fresh-story">story</a>
	</body></html>`
	fetcher.pages["https://site.test/2024/fresh-story"] = `<html><body>text</body></html>`

	svc := newTestService(fetcher, testConfig())
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeAuto}

	run, err := svc.Discover(context.Background(), source, "")
	require.NoError(t, err)

	assert.Equal(t, models.DiscoveryModeRecursive, run.Strategy)
	require.NotEmpty(t, run.Frontier)
	assert.Equal(t, "https://site.test/2024/fresh-story", run.Frontier[0].URL)
}

func TestDiscoverSitemapModeFailsWithoutFreshEntries(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.sitemaps = []string{"https://site.test/sitemap.xml"}
	fetcher.pages["https://site.test/sitemap.xml"] = sitemapXML(
		sitemapURL("https://site.test/2019/old-story", staleLastMod()),
	)

	svc := newTestService(fetcher, testConfig())
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeSitemap}

	_, err := svc.Discover(context.Background(), source, "")
	assert.Error(t, err)
}

func TestDiscoverForceModeOverridesSource(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.pages["https://site.test"] = `<html><body><a href="/2024/story-1">s</a></body></html>`
	fetcher.pages["https://site.test/2024/story-1"] = `<html><body>text</body></html>`

	svc := newTestService(fetcher, testConfig())
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeSitemap}

	run, err := svc.Discover(context.Background(), source, models.DiscoveryModeRecursive)
	require.NoError(t, err)
	assert.Equal(t, models.DiscoveryModeRecursive, run.Strategy)
}

func TestSitemapIndexRecursesOneLevel(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.sitemaps = []string{"https://site.test/sitemap_index.xml"}
	fetcher.pages["https://site.test/sitemap_index.xml"] = `<?xml version="1.0"?><sitemapindex>
		<sitemap><loc>https://site.test/sitemap-news.xml</loc></sitemap>
	</sitemapindex>`
	fetcher.pages["https://site.test/sitemap-news.xml"] = sitemapXML(
		sitemapURL("https://site.test/2024/nested-story", freshLastMod()),
	)

	svc := newTestService(fetcher, testConfig())
	source := &models.Source{ID: "src_1", RootURL: "https://site.test", DiscoveryMode: models.DiscoveryModeSitemap}

	run, err := svc.Discover(context.Background(), source, "")
	require.NoError(t, err)
	require.Len(t, run.Frontier, 1)
	assert.Equal(t, "https://site.test/2024/nested-story", run.Frontier[0].URL)
}

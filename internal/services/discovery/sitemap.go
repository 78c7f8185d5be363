package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// Sitemap locations guessed when robots.txt declares none.
var sitemapFallbacks = []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap-news.xml"}

// Terms that raise or sink a sitemap's probe priority. News sitemaps are
// probed first; foreign-language feeds are skipped outright.
var (
	sitemapPriorityTerms = []string{"news", "en-us", "uk", "world", "front-page", "top"}
	sitemapSkipTerms     = []string{
		"gahuza", "arabic", "hindi", "urdu", "pashto",
		"mundo", "brasil", "russian", "turkish", "vietnamese",
		"bengali", "tamil", "nepali", "zhongwen", "indonesia",
	}
)

type sitemapURLSet struct {
	XMLName xml.Name       `xml:"urlset"`
	URLs    []sitemapEntry `xml:"url"`
}

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

// discoverSitemap probes robots.txt-declared then conventional sitemap
// locations. Success requires at least one entry inside the recency window;
// anything less is a failed probe, not a partial success.
func (s *Service) discoverSitemap(ctx context.Context, source *models.Source) (*interfaces.DiscoveryRun, error) {
	locations, err := s.fetcher.SitemapLocations(ctx, source.RootURL)
	if err != nil {
		s.logger.Debug().Err(err).Str("source_id", source.ID).Msg("No robots.txt sitemap declarations")
	}

	if len(locations) == 0 {
		base, parseErr := url.Parse(source.RootURL)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid root URL %s: %w", source.RootURL, parseErr)
		}
		for _, path := range sitemapFallbacks {
			ref, _ := url.Parse(path)
			locations = append(locations, base.ResolveReference(ref).String())
		}
	}

	locations = rankSitemaps(locations)
	if len(locations) == 0 {
		return nil, fmt.Errorf("no eligible sitemaps for %s", source.RootURL)
	}

	cutoff := time.Now().Add(-s.config.SitemapRecency)
	seen := make(map[string]bool)
	var frontier []models.FrontierEntry

	for _, loc := range locations {
		entries, err := s.fetchSitemapEntries(ctx, loc, 0)
		if err != nil {
			s.logger.Debug().Err(err).Str("sitemap", loc).Msg("Sitemap fetch failed, trying next")
			continue
		}

		for _, entry := range entries {
			if entry.Loc == "" {
				continue
			}
			modTime, ok := parseLastMod(entry.LastMod)
			if !ok || modTime.Before(cutoff) {
				continue
			}

			normalized, err := common.NormalizeURL(entry.Loc)
			if err != nil || seen[normalized] {
				continue
			}
			seen[normalized] = true
			frontier = append(frontier, models.FrontierEntry{
				URL:            normalized,
				ParentURL:      loc,
				Depth:          0,
				Classification: models.ClassContent,
			})
		}

		if len(frontier) > 0 {
			break
		}
	}

	if len(frontier) == 0 {
		return nil, fmt.Errorf("sitemap probe found no fresh entries for %s", source.RootURL)
	}

	s.logger.Info().
		Str("source_id", source.ID).
		Int("entries", len(frontier)).
		Msg("Sitemap discovery complete")

	return &interfaces.DiscoveryRun{
		Strategy: models.DiscoveryModeSitemap,
		Frontier: frontier,
	}, nil
}

// fetchSitemapEntries retrieves one sitemap, recursing one level into
// sitemap indexes.
func (s *Service) fetchSitemapEntries(ctx context.Context, loc string, depth int) ([]sitemapEntry, error) {
	result, err := s.fetcher.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	if result.StatusCode != 200 {
		return nil, fmt.Errorf("sitemap %s returned status %d", loc, result.StatusCode)
	}

	var urlSet sitemapURLSet
	if err := xml.Unmarshal(result.Body, &urlSet); err == nil && len(urlSet.URLs) > 0 {
		return urlSet.URLs, nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(result.Body, &index); err == nil && len(index.Sitemaps) > 0 {
		if depth >= 1 {
			return nil, fmt.Errorf("sitemap index nesting too deep at %s", loc)
		}
		ranked := make([]string, 0, len(index.Sitemaps))
		for _, child := range index.Sitemaps {
			if child.Loc != "" {
				ranked = append(ranked, strings.TrimSpace(child.Loc))
			}
		}
		var entries []sitemapEntry
		for _, child := range rankSitemaps(ranked) {
			childEntries, err := s.fetchSitemapEntries(ctx, child, depth+1)
			if err != nil {
				continue
			}
			entries = append(entries, childEntries...)
			if len(entries) > 0 {
				break
			}
		}
		return entries, nil
	}

	return nil, fmt.Errorf("unrecognized sitemap format at %s", loc)
}

// rankSitemaps orders candidate sitemaps by score and drops skipped ones.
func rankSitemaps(locations []string) []string {
	ranked := make([]string, 0, len(locations))
	for _, loc := range locations {
		if scoreSitemap(loc) > -500 {
			ranked = append(ranked, loc)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return scoreSitemap(ranked[i]) > scoreSitemap(ranked[j])
	})
	return ranked
}

func scoreSitemap(loc string) int {
	lower := strings.ToLower(loc)
	score := 0
	if strings.Contains(lower, "sitemap-news") || strings.Contains(lower, "news-sitemap") {
		score += 100
	}
	for _, term := range sitemapPriorityTerms {
		if strings.Contains(lower, term) {
			score += 10
		}
	}
	for _, term := range sitemapSkipTerms {
		if strings.Contains(lower, term) {
			score -= 1000
		}
	}
	return score
}

func parseLastMod(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// crawlItem is one queued page in the breadth-first traversal.
type crawlItem struct {
	url    string
	parent string
	depth  int
}

// discoverRecursive performs a bounded breadth-first crawl from the root.
// The link graph is cyclic, so traversal uses an explicit queue plus a
// concurrent visited set, never page-structure recursion. A network error
// on the root is fatal; per-link errors drop the link and continue.
func (s *Service) discoverRecursive(ctx context.Context, source *models.Source) (*interfaces.DiscoveryRun, error) {
	maxDepth := source.MaxDepth
	if maxDepth <= 0 {
		maxDepth = s.config.MaxDepth
	}
	maxPages := source.MaxPages
	if maxPages <= 0 {
		maxPages = s.config.MaxPages
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if s.config.RunDeadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.config.RunDeadline)
		defer cancel()
	}

	rootNorm, err := common.NormalizeURL(source.RootURL)
	if err != nil {
		return nil, fmt.Errorf("invalid root URL %s: %w", source.RootURL, err)
	}

	// Probe the root first: a dead root aborts the whole run before any
	// workers start.
	rootResult, err := s.fetcher.Fetch(runCtx, rootNorm)
	if err != nil {
		return nil, fmt.Errorf("root fetch failed for %s: %w", rootNorm, err)
	}

	visited := newVisitedSet()
	visited.CheckAndInsert(rootNorm)

	var (
		mu       sync.Mutex
		frontier []models.FrontierEntry
		fetched  = 1
		partial  bool
	)

	queue := []crawlItem{}
	enqueueLinks := func(pageURL string, depth int, links []models.FrontierEntry) {
		mu.Lock()
		defer mu.Unlock()
		for _, entry := range links {
			switch entry.Classification {
			case models.ClassContent:
				// Recorded depth never exceeds the crawl bound.
				if entry.Depth > maxDepth {
					entry.Depth = maxDepth
				}
				frontier = append(frontier, entry)
			case models.ClassNavigation:
				if depth+1 <= maxDepth {
					queue = append(queue, crawlItem{url: entry.URL, parent: pageURL, depth: depth + 1})
				}
			}
		}
	}

	// Root page links seed the queue.
	links, _ := s.collectLinks(rootNorm, 0, rootResult.Body, visited)
	enqueueLinks(rootNorm, 0, links)

	concurrency := s.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	for {
		mu.Lock()
		if len(queue) == 0 || fetched >= maxPages {
			partial = partial || (len(queue) > 0 && fetched >= maxPages)
			mu.Unlock()
			break
		}
		batch := queue
		if len(batch) > concurrency {
			batch = batch[:concurrency]
		}
		remaining := maxPages - fetched
		if len(batch) > remaining {
			batch = batch[:remaining]
		}
		queue = queue[len(batch):]
		fetched += len(batch)
		mu.Unlock()

		if runCtx.Err() != nil {
			partial = true
			break
		}

		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(item crawlItem) {
				defer wg.Done()

				result, err := s.fetcher.Fetch(runCtx, item.url)
				if err != nil {
					if errors.Is(err, context.DeadlineExceeded) {
						return
					}
					s.logger.Debug().
						Err(err).
						Str("url", item.url).
						Msg("Link fetch failed, dropping")
					return
				}
				pageLinks, outbound := s.collectLinks(item.url, item.depth, result.Body, visited)
				enqueueLinks(item.url, item.depth, pageLinks)

				// A fetched page below the link-density threshold is itself
				// candidate content, not just a navigation hop.
				if s.classifyPage(item.url, outbound) == models.ClassContent {
					mu.Lock()
					frontier = append(frontier, models.FrontierEntry{
						URL:            item.url,
						ParentURL:      item.parent,
						Depth:          item.depth,
						Classification: models.ClassContent,
					})
					mu.Unlock()
				}
			}(item)
		}
		wg.Wait()

		if runCtx.Err() != nil {
			partial = true
			break
		}
	}

	s.logger.Info().
		Str("source_id", source.ID).
		Int("content_urls", len(frontier)).
		Int("pages_fetched", fetched).
		Bool("partial", partial).
		Msg("Recursive crawl complete")

	return &interfaces.DiscoveryRun{
		Strategy: models.DiscoveryModeRecursive,
		Frontier: frontier,
		Partial:  partial,
	}, nil
}

// collectLinks extracts, filters and classifies the links of one page.
// Only unvisited same-domain links survive; the visited-set insert happens
// here so concurrent workers cannot double-fetch a URL.
func (s *Service) collectLinks(pageURL string, depth int, body []byte, visited *visitedSet) ([]models.FrontierEntry, int) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		s.logger.Debug().Err(err).Str("url", pageURL).Msg("Failed to parse page HTML")
		return nil, 0
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, 0
	}

	var rawLinks []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		rawLinks = append(rawLinks, base.ResolveReference(ref).String())
	})

	var entries []models.FrontierEntry
	for _, link := range rawLinks {
		if !common.SameDomain(link, pageURL) {
			continue
		}

		normalized, err := common.NormalizeURL(link)
		if err != nil || normalized == "" {
			continue
		}

		class := s.classifyURL(normalized)
		if class == models.ClassExcluded {
			continue
		}

		// Atomic check-and-insert: only the first worker to see a URL keeps it.
		if !visited.CheckAndInsert(normalized) {
			continue
		}

		entries = append(entries, models.FrontierEntry{
			URL:            normalized,
			ParentURL:      pageURL,
			Depth:          depth + 1,
			Classification: class,
		})
	}
	return entries, len(rawLinks)
}

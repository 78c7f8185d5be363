package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// duckduckgoProvider scrapes the DuckDuckGo HTML endpoint. It needs no
// API key, which makes it the usual tail of a search chain.
type duckduckgoProvider struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewDuckDuckGoProvider creates a keyless web-search provider backed by
// the DuckDuckGo HTML interface.
func NewDuckDuckGoProvider(cfg common.ProviderConfig, client *http.Client) interfaces.SearchProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://html.duckduckgo.com/html"
	}
	return &duckduckgoProvider{
		name:    cfg.Name,
		baseURL: baseURL,
		client:  client,
	}
}

func (p *duckduckgoProvider) Name() string { return p.name }

func (p *duckduckgoProvider) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	endpoint := p.baseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrProviderFatal, err.Error())
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyTransport(p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(p.name, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, malformedOutput(p.name, err)
	}

	results := make([]interfaces.SearchResult, 0, maxResults)
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		target := decodeRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, interfaces.SearchResult{
			URL:   target,
			Title: strings.TrimSpace(sel.Text()),
		})
		return len(results) < maxResults
	})
	return results, nil
}

// decodeRedirect unwraps the uddg redirect parameter DuckDuckGo wraps
// result links in. Direct links pass through unchanged.
func decodeRedirect(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		parsed, err := url.Parse(href)
		if err != nil {
			return ""
		}
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
		return href
	}
	if strings.HasPrefix(href, "//") {
		return decodeRedirect("https:" + href)
	}
	return ""
}

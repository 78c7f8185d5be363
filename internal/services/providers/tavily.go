package providers

import (
	"context"
	"net/http"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

// tavilyProvider queries the Tavily search API.
type tavilyProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewTavilyProvider creates a Tavily web-search provider.
func NewTavilyProvider(cfg common.ProviderConfig, client *http.Client) interfaces.SearchProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	return &tavilyProvider{
		name:    cfg.Name,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

func (p *tavilyProvider) Name() string { return p.name }

type tavilySearchResponse struct {
	Results []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"results"`
}

func (p *tavilyProvider) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	body := map[string]interface{}{
		"query":       query,
		"max_results": maxResults,
	}

	var resp tavilySearchResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := doJSON(ctx, p.client, p.name, "POST", p.baseURL+"/search", headers, body, &resp); err != nil {
		return nil, err
	}

	results := make([]interfaces.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, interfaces.SearchResult{URL: r.URL, Title: r.Title})
	}
	return results, nil
}

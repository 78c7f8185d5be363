package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"
)

// robotsCache resolves robots.txt once per host and caches the parsed
// policy. A missing or unreadable robots.txt allows everything.
type robotsCache struct {
	client     *http.Client
	userAgents []string
	logger     arbor.ILogger

	mu      sync.RWMutex
	byHost  map[string]*robotstxt.RobotsData
	pending map[string]*sync.Once
}

func newRobotsCache(client *http.Client, userAgents []string, logger arbor.ILogger) *robotsCache {
	return &robotsCache{
		client:     client,
		userAgents: userAgents,
		logger:     logger,
		byHost:     make(map[string]*robotstxt.RobotsData),
		pending:    make(map[string]*sync.Once),
	}
}

// Allowed reports whether the URL may be fetched under the host's robots
// policy.
func (c *robotsCache) Allowed(ctx context.Context, u *url.URL) (bool, error) {
	data, err := c.policy(ctx, u)
	if err != nil {
		return true, err
	}
	if data == nil {
		return true, nil
	}

	agent := "nexus-smart-scraper"
	if len(c.userAgents) > 0 {
		agent = c.userAgents[0]
	}
	return data.TestAgent(u.Path, agent), nil
}

// Sitemaps returns the sitemap locations declared in the host's robots.txt.
func (c *robotsCache) Sitemaps(ctx context.Context, u *url.URL) ([]string, error) {
	data, err := c.policy(ctx, u)
	if err != nil || data == nil {
		return nil, err
	}
	return data.Sitemaps, nil
}

func (c *robotsCache) policy(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	host := u.Scheme + "://" + u.Host

	c.mu.RLock()
	data, ok := c.byHost[host]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	c.mu.Lock()
	once, ok := c.pending[host]
	if !ok {
		once = &sync.Once{}
		c.pending[host] = once
	}
	c.mu.Unlock()

	var fetchErr error
	once.Do(func() {
		fetched, err := c.fetch(ctx, host)
		c.mu.Lock()
		c.byHost[host] = fetched
		c.mu.Unlock()
		fetchErr = err
	})

	c.mu.RLock()
	data = c.byHost[host]
	c.mu.RUnlock()
	return data, fetchErr
}

func (c *robotsCache) fetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	if len(c.userAgents) > 0 {
		req.Header.Set("User-Agent", c.userAgents[0])
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt for %s: %w", host, err)
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt for %s: %w", host, err)
	}
	return data, nil
}

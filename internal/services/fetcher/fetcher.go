package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// Service performs single-page HTTP retrievals with robots compliance,
// per-domain politeness, timeout and a body size cap.
type Service struct {
	config  common.FetcherConfig
	client  *http.Client
	robots  *robotsCache
	limiter *domainLimiter
	logger  arbor.ILogger
	uaIndex atomic.Uint64
}

// NewService creates a new fetcher service
func NewService(config common.FetcherConfig, logger arbor.ILogger) *Service {
	client := &http.Client{
		Timeout: config.RequestTimeout,
	}
	return &Service{
		config:  config,
		client:  client,
		robots:  newRobotsCache(client, config.UserAgents, logger),
		limiter: newDomainLimiter(config.RequestDelay),
		logger:  logger,
	}
}

// Fetch retrieves a URL. Robots policy is resolved once per host and cached
// for the lifetime of this service (one discovery run owns one fetcher).
func (s *Service) Fetch(ctx context.Context, rawURL string) (*interfaces.FetchResult, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &models.FetchError{URL: rawURL, Err: fmt.Errorf("invalid URL: %v", err)}
	}

	if s.config.FollowRobotsTxt {
		allowed, err := s.robots.Allowed(ctx, parsed)
		if err != nil {
			s.logger.Debug().Err(err).Str("url", rawURL).Msg("robots.txt unavailable, allowing fetch")
		} else if !allowed {
			return nil, &models.FetchError{URL: rawURL, Err: models.ErrRobotsDisallowed}
		}
	}

	if err := s.limiter.Wait(ctx, parsed.Hostname()); err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", s.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: classifyNetErr(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxBodySize))
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: classifyNetErr(err)}
	}

	result := &interfaces.FetchResult{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
		FinalURL:   resp.Request.URL.String(),
	}

	if resp.StatusCode >= 400 {
		return result, &models.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return result, nil
}

// SitemapLocations returns the sitemap URLs declared in the root's
// robots.txt, resolved through the same per-host cache as fetch policy.
func (s *Service) SitemapLocations(ctx context.Context, rootURL string) ([]string, error) {
	parsed, err := url.Parse(rootURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid root URL: %s", rootURL)
	}
	return s.robots.Sitemaps(ctx, parsed)
}

// nextUserAgent rotates through the configured pool deterministically.
func (s *Service) nextUserAgent() string {
	if len(s.config.UserAgents) == 0 {
		return "nexus-smart-scraper/" + common.GetVersion()
	}
	i := s.uaIndex.Add(1)
	return s.config.UserAgents[int(i)%len(s.config.UserAgents)]
}

// classifyNetErr maps transport errors into the transient-network taxonomy.
func classifyNetErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrTransientNetwork, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", models.ErrTransientNetwork, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", models.ErrTransientNetwork, err)
	}
	return err
}

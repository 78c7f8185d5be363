package discovery

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// Fetcher is the fetch surface discovery needs: page retrieval plus the
// robots-declared sitemap locations.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*interfaces.FetchResult, error)
	SitemapLocations(ctx context.Context, rootURL string) ([]string, error)
}

// Service selects and runs a discovery strategy for a source. Mode is
// resolved once per run into a concrete strategy, never per request.
type Service struct {
	config  common.DiscoveryConfig
	fetcher Fetcher
	logger  arbor.ILogger
}

// NewService creates a new discovery service
func NewService(config common.DiscoveryConfig, fetcher Fetcher, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Discover resolves a URL frontier for the source. In auto mode the sitemap
// probe always runs first; the recursive crawl only runs when the probe
// fails or returns zero fresh entries.
func (s *Service) Discover(ctx context.Context, source *models.Source, forceMode string) (*interfaces.DiscoveryRun, error) {
	mode := source.DiscoveryMode
	if forceMode != "" {
		mode = forceMode
	}
	if mode == "" {
		mode = models.DiscoveryModeAuto
	}

	s.logger.Info().
		Str("source_id", source.ID).
		Str("root_url", source.RootURL).
		Str("mode", mode).
		Msg("Starting discovery run")

	switch mode {
	case models.DiscoveryModeSitemap:
		return s.discoverSitemap(ctx, source)

	case models.DiscoveryModeRecursive:
		return s.discoverRecursive(ctx, source)

	case models.DiscoveryModeAuto:
		run, err := s.discoverSitemap(ctx, source)
		if err == nil && len(run.Frontier) > 0 {
			return run, nil
		}
		if err != nil {
			s.logger.Debug().
				Err(err).
				Str("source_id", source.ID).
				Msg("Sitemap probe failed, falling back to recursive crawl")
		}
		return s.discoverRecursive(ctx, source)

	default:
		return nil, fmt.Errorf("unknown discovery mode: %s", mode)
	}
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// fillGaps searches the web for each gap query, registers new candidate
// sources, kicks off their discovery and waits a bounded time for the
// pipeline to enrich what it found. A timeout is not an error: synthesis
// proceeds with whatever landed.
func (s *Service) fillGaps(ctx context.Context, queries []string) error {
	registered := 0
	for _, query := range queries {
		results, err := s.waterfall.Search(ctx, query, s.config.MaxGapSources*2)
		if err != nil {
			s.logger.Warn().Err(err).Str("query", query).Msg("Gap search failed")
			continue
		}

		for _, result := range results {
			if registered >= s.config.MaxGapSources {
				break
			}
			source, err := s.registerCandidate(ctx, result.URL, result.Title, query)
			if err != nil {
				s.logger.Debug().Err(err).Str("url", result.URL).Msg("Skipped search result")
				continue
			}
			if source == nil {
				continue
			}
			if err := s.dispatcher.EnqueueDiscovery(ctx, source.ID, ""); err != nil {
				s.logger.Warn().Err(err).Str("source_id", source.ID).Msg("Failed to enqueue candidate discovery")
				continue
			}
			registered++
		}
	}

	if registered == 0 {
		return fmt.Errorf("gap-fill registered no new sources")
	}

	s.logger.Info().Int("sources", registered).Msg("Gap-fill sources registered, waiting for pipeline")
	return s.waitForPipeline(ctx)
}

// registerCandidate turns a search hit into a candidate source. Low-signal
// domains, URLs already ingested and domains already monitored are
// skipped; returns nil, nil for an intentional skip.
func (s *Service) registerCandidate(ctx context.Context, rawURL, title, query string) (*models.Source, error) {
	normalized, err := common.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	domain := common.RegistrableDomain(normalized)
	if domain == "" {
		return nil, fmt.Errorf("no domain in %s", rawURL)
	}

	for _, lowSignal := range s.config.LowSignalDomains {
		if domain == lowSignal || strings.HasSuffix(domain, "."+lowSignal) {
			return nil, nil
		}
	}

	seen, err := s.storage.DocumentStorage().ExistsByURL(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, nil
	}

	existing, err := s.storage.SourceStorage().GetByDomain(ctx, domain)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	name := strings.TrimSpace(title)
	if name == "" {
		name = domain
	}

	now := time.Now()
	source := &models.Source{
		ID:            common.NewSourceID(),
		Name:          name,
		RootURL:       normalized,
		DiscoveryMode: models.DiscoveryModeAuto,
		Status:        models.SourceStatusCandidate,
		OriginQuery:   query,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if err := s.storage.SourceStorage().Save(ctx, source); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("source_id", source.ID).
		Str("domain", domain).
		Str("query", query).
		Msg("Registered candidate source")
	return source, nil
}

// waitForPipeline polls the stage queues until they drain or the gap-fill
// timeout elapses.
func (s *Service) waitForPipeline(ctx context.Context) error {
	timeout := s.config.GapFillTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	poll := s.config.GapFillPoll
	if poll <= 0 {
		poll = 5 * time.Second
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			s.logger.Info().Msg("Gap-fill wait timed out, proceeding with available context")
			return nil
		}

		pending := 0
		for _, stage := range []string{models.StageDiscovery, models.StageFetch, models.StageEnrich} {
			depth, err := s.storage.QueueStorage().Depth(ctx, stage)
			if err != nil {
				return err
			}
			pending += depth
		}
		if pending == 0 {
			return nil
		}
	}
}

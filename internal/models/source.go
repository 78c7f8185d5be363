package models

import (
	"fmt"
	"net/url"
	"time"
)

// DiscoveryMode controls how the discovery selector builds a frontier for a source.
const (
	DiscoveryModeSitemap   = "sitemap"
	DiscoveryModeRecursive = "recursive"
	DiscoveryModeAuto      = "auto"
)

// Source lifecycle states. Candidate/evaluating/discarded belong to the
// evolution loop; active and promoted sources are eligible for scheduling.
const (
	SourceStatusCandidate  = "candidate"
	SourceStatusEvaluating = "evaluating"
	SourceStatusActive     = "active"
	SourceStatusPromoted   = "promoted"
	SourceStatusPaused     = "paused"
	SourceStatusRetired    = "retired"
	SourceStatusDiscarded  = "discarded"
)

// Source represents a monitored site. Sources are never deleted; retirement
// archives them with their documents intact.
type Source struct {
	ID            string `badgerhold:"key" json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	RootURL       string `json:"root_url" yaml:"root_url"`
	DiscoveryMode string `json:"discovery_mode" yaml:"discovery_mode"` // sitemap, recursive, auto
	MaxDepth      int    `json:"max_depth" yaml:"max_depth"`
	MaxPages      int    `json:"max_pages" yaml:"max_pages"`
	Status        string `badgerhold:"index" json:"status" yaml:"status"`

	// ScheduleInterval is only meaningful while Status is active or promoted.
	ScheduleInterval time.Duration `json:"schedule_interval" yaml:"schedule_interval"`
	LastRunAt        *time.Time    `json:"last_run_at,omitempty" yaml:"-"`

	// FailureStreak counts consecutive failed discovery runs. Promoted
	// sources are only demoted when this crosses the configured limit.
	FailureStreak int `json:"failure_streak" yaml:"-"`

	// EvaluatingSince anchors the trailing promotion window.
	EvaluatingSince *time.Time `json:"evaluating_since,omitempty" yaml:"-"`

	// OriginQuery records the search query that discovered a candidate source.
	OriginQuery string `json:"origin_query,omitempty" yaml:"-"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks the source configuration before persistence.
func (s *Source) Validate() error {
	if s.RootURL == "" {
		return fmt.Errorf("source root URL is required")
	}
	u, err := url.Parse(s.RootURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid root URL: %s", s.RootURL)
	}

	switch s.DiscoveryMode {
	case DiscoveryModeSitemap, DiscoveryModeRecursive, DiscoveryModeAuto:
	case "":
		s.DiscoveryMode = DiscoveryModeAuto
	default:
		return fmt.Errorf("invalid discovery mode: %s", s.DiscoveryMode)
	}

	if s.MaxDepth < 0 {
		return fmt.Errorf("max depth must be non-negative")
	}
	if s.MaxPages < 0 {
		return fmt.Errorf("max pages must be non-negative")
	}
	return nil
}

// Schedulable reports whether the scheduler may dispatch recurring runs.
func (s *Source) Schedulable() bool {
	return s.Status == SourceStatusActive || s.Status == SourceStatusPromoted
}

// Due reports whether a scheduled run is owed at the given instant.
func (s *Source) Due(now time.Time) bool {
	if !s.Schedulable() || s.ScheduleInterval <= 0 {
		return false
	}
	if s.LastRunAt == nil {
		return true
	}
	return now.Sub(*s.LastRunAt) >= s.ScheduleInterval
}

package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `toml:"environment"`
	Storage      StorageConfig      `toml:"storage"`
	Logging      LoggingConfig      `toml:"logging"`
	Fetcher      FetcherConfig      `toml:"fetcher"`
	Discovery    DiscoveryConfig    `toml:"discovery"`
	Queue        QueueConfig        `toml:"queue"`
	Scheduler    SchedulerConfig    `toml:"scheduler"`
	Providers    ProvidersConfig    `toml:"providers"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Sources      SourcesDirConfig   `toml:"sources"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// FetcherConfig controls single-page HTTP retrieval.
type FetcherConfig struct {
	UserAgents      []string      `toml:"user_agents"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	MaxBodySize     int64         `toml:"max_body_size"`
	RequestDelay    time.Duration `toml:"request_delay"` // per-domain politeness delay
	FollowRobotsTxt bool          `toml:"follow_robots_txt"`
}

// DiscoveryConfig controls frontier building.
type DiscoveryConfig struct {
	MaxDepth        int           `toml:"max_depth"`
	MaxPages        int           `toml:"max_pages"`
	RunDeadline     time.Duration `toml:"run_deadline"`
	Concurrency     int           `toml:"concurrency"`
	SitemapRecency  time.Duration `toml:"sitemap_recency"` // freshness window for sitemap entries
	ExcludePatterns []string      `toml:"exclude_patterns"`
	// NavLinkThreshold is the outbound-link count above which a page is
	// classified navigation rather than content.
	NavLinkThreshold int `toml:"nav_link_threshold"`
}

type QueueConfig struct {
	PollInterval      time.Duration `toml:"poll_interval"`
	VisibilityTimeout time.Duration `toml:"visibility_timeout"`
	MaxReceive        int           `toml:"max_receive"`
	DiscoveryWorkers  int           `toml:"discovery_workers"`
	FetchWorkers      int           `toml:"fetch_workers"`
	EnrichWorkers     int           `toml:"enrich_workers"`
}

// SchedulerConfig controls the evolution loop and recurring dispatch.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron expression for the tick job

	// PromotionThreshold is the count of high-urgency documents inside the
	// trailing window required to promote an evaluating source.
	PromotionThreshold int           `toml:"promotion_threshold"`
	PromotionWindow    time.Duration `toml:"promotion_window"`
	HighUrgencyFloor   int           `toml:"high_urgency_floor"`

	// FailureStreakLimit demotes a promoted source to paused after this
	// many consecutive failed discovery runs.
	FailureStreakLimit int `toml:"failure_streak_limit"`

	DefaultInterval time.Duration `toml:"default_interval"`
	MinInterval     time.Duration `toml:"min_interval"`
	MaxInterval     time.Duration `toml:"max_interval"`
}

// ProviderConfig is one entry in a capability chain. Priority order is the
// order of appearance in configuration; it is static at runtime.
type ProviderConfig struct {
	Name    string `toml:"name" validate:"required"`
	Type    string `toml:"type" validate:"required"` // avalai, cloudflare, cohere, openrouter, ollama, claude, gemini, tavily, duckduckgo
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	// AccountID is used by Cloudflare-style providers.
	AccountID string `toml:"account_id"`
}

type ProvidersConfig struct {
	Reasoning []ProviderConfig `toml:"reasoning"`
	Embedding []ProviderConfig `toml:"embedding"`
	Search    []ProviderConfig `toml:"search"`

	CallTimeout     time.Duration `toml:"call_timeout"`
	CooldownBase    time.Duration `toml:"cooldown_base"`
	CooldownMax     time.Duration `toml:"cooldown_max"`
	MaxSummaryChars int           `toml:"max_summary_chars"`
}

// OrchestratorConfig controls the audit / gap-fill / synthesis flow.
type OrchestratorConfig struct {
	AuditLimit         int           `toml:"audit_limit"`
	MinCoverageHits    int           `toml:"min_coverage_hits"`
	MinCoverageScore   float64       `toml:"min_coverage_score"`
	MaxGapQueries      int           `toml:"max_gap_queries"`
	MaxGapSources      int           `toml:"max_gap_sources"`
	GapFillTimeout     time.Duration `toml:"gap_fill_timeout"`
	GapFillPoll        time.Duration `toml:"gap_fill_poll"`
	LowSignalDomains   []string      `toml:"low_signal_domains"`
}

// SourcesDirConfig points at a directory of YAML seed source definitions
// loaded at startup.
type SourcesDirConfig struct {
	Dir string `toml:"dir"`
}

// LoadConfig reads configuration from TOML files, later files overriding
// earlier ones, then applies environment overrides for provider API keys.
func LoadConfig(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides fills provider API keys from NEXUS_<NAME>_API_KEY so
// secrets stay out of config files.
func applyEnvOverrides(config *Config) {
	chains := [][]ProviderConfig{
		config.Providers.Reasoning,
		config.Providers.Embedding,
		config.Providers.Search,
	}
	for _, chain := range chains {
		for i := range chain {
			envKey := "NEXUS_" + strings.ToUpper(strings.ReplaceAll(chain[i].Name, "-", "_")) + "_API_KEY"
			if v := os.Getenv(envKey); v != "" {
				chain[i].APIKey = v
			}
		}
	}
}

// Validate checks structural validity of the configuration.
func (c *Config) Validate() error {
	validate := validator.New()

	for _, chain := range map[string][]ProviderConfig{
		"reasoning": c.Providers.Reasoning,
		"embedding": c.Providers.Embedding,
		"search":    c.Providers.Search,
	} {
		for i := range chain {
			if err := validate.Struct(&chain[i]); err != nil {
				return fmt.Errorf("invalid provider config %q: %w", chain[i].Name, err)
			}
		}
	}

	if c.Queue.MaxReceive < 1 {
		return fmt.Errorf("queue max_receive must be at least 1")
	}
	if c.Discovery.MaxDepth < 0 {
		return fmt.Errorf("discovery max_depth must be non-negative")
	}
	return nil
}

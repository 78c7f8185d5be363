package common

import "time"

// DefaultConfig returns the baseline configuration. Thresholds here are
// operating defaults, all overridable from config files.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/nexus",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Fetcher: FetcherConfig{
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
			},
			RequestTimeout:  15 * time.Second,
			MaxBodySize:     5 * 1024 * 1024,
			RequestDelay:    1 * time.Second,
			FollowRobotsTxt: true,
		},
		Discovery: DiscoveryConfig{
			MaxDepth:       2,
			MaxPages:       50,
			RunDeadline:    5 * time.Minute,
			Concurrency:    4,
			SitemapRecency: 48 * time.Hour,
			ExcludePatterns: []string{
				"/tag/", "/ads/", "/ad/", "/banner/", "/click/", "/redirect/",
				"/page/", "login", "register", "signin", "signup", "cart",
				"checkout", "account",
			},
			NavLinkThreshold: 30,
		},
		Queue: QueueConfig{
			PollInterval:      1 * time.Second,
			VisibilityTimeout: 5 * time.Minute,
			MaxReceive:        3,
			DiscoveryWorkers:  1,
			FetchWorkers:      4,
			EnrichWorkers:     2,
		},
		Scheduler: SchedulerConfig{
			Enabled:            true,
			Schedule:           "*/1 * * * *",
			PromotionThreshold: 3,
			PromotionWindow:    7 * 24 * time.Hour,
			HighUrgencyFloor:   7,
			FailureStreakLimit: 5,
			DefaultInterval:    1 * time.Hour,
			MinInterval:        5 * time.Minute,
			MaxInterval:        24 * time.Hour,
		},
		Providers: ProvidersConfig{
			CallTimeout:     60 * time.Second,
			CooldownBase:    30 * time.Second,
			CooldownMax:     15 * time.Minute,
			MaxSummaryChars: 2000,
		},
		Orchestrator: OrchestratorConfig{
			AuditLimit:       10,
			MinCoverageHits:  3,
			MinCoverageScore: 0.65,
			MaxGapQueries:    3,
			MaxGapSources:    5,
			GapFillTimeout:   2 * time.Minute,
			GapFillPoll:      3 * time.Second,
			LowSignalDomains: []string{
				"youtube.com", "youtu.be", "vimeo.com", "dailymotion.com",
				"pinterest.com", "facebook.com",
			},
		},
		Sources: SourcesDirConfig{
			Dir: "./sources",
		},
	}
}

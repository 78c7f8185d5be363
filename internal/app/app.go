package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/queue"
	"github.com/abtn/nexus-smart-scraper/internal/services/discovery"
	"github.com/abtn/nexus-smart-scraper/internal/services/extract"
	"github.com/abtn/nexus-smart-scraper/internal/services/fetcher"
	"github.com/abtn/nexus-smart-scraper/internal/services/orchestrator"
	"github.com/abtn/nexus-smart-scraper/internal/services/providers"
	"github.com/abtn/nexus-smart-scraper/internal/services/scheduler"
	"github.com/abtn/nexus-smart-scraper/internal/services/sources"
	"github.com/abtn/nexus-smart-scraper/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	ctx       context.Context
	cancelCtx context.CancelFunc

	StorageManager interfaces.StorageManager

	FetchService     *fetcher.Service
	ExtractService   *extract.Service
	DiscoveryService *discovery.Service
	Waterfall        *providers.Waterfall

	QueueManager     *queue.Manager
	SchedulerService *scheduler.Service
	Orchestrator     *orchestrator.Service
	SourceLoader     *sources.Loader
}

// New wires all components from configuration. Nothing starts until
// Start is called.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	storageManager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	fetchService := fetcher.NewService(config.Fetcher, logger)
	extractService := extract.NewService(logger)
	discoveryService := discovery.NewService(config.Discovery, fetchService, logger)

	waterfall, err := providers.BuildWaterfall(ctx, config, storageManager.HealthStorage(), logger)
	if err != nil {
		storageManager.Close()
		cancel()
		return nil, fmt.Errorf("initialize providers: %w", err)
	}

	queueManager := queue.NewManager(
		config.Queue,
		storageManager,
		discoveryService,
		fetchService,
		extractService,
		waterfall,
		logger,
	)

	schedulerService := scheduler.NewService(config.Scheduler, storageManager, queueManager, logger)
	queueManager.BindScheduler(schedulerService)

	orchestratorService := orchestrator.NewService(config.Orchestrator, storageManager, waterfall, queueManager, logger)
	sourceLoader := sources.NewLoader(storageManager.SourceStorage(), config.Scheduler.DefaultInterval, logger)

	return &App{
		Config:           config,
		Logger:           logger,
		ctx:              ctx,
		cancelCtx:        cancel,
		StorageManager:   storageManager,
		FetchService:     fetchService,
		ExtractService:   extractService,
		DiscoveryService: discoveryService,
		Waterfall:        waterfall,
		QueueManager:     queueManager,
		SchedulerService: schedulerService,
		Orchestrator:     orchestratorService,
		SourceLoader:     sourceLoader,
	}, nil
}

// Start seeds sources, starts the queue workers and the scheduler.
func (a *App) Start() error {
	if _, err := a.SourceLoader.LoadDir(a.ctx, a.Config.Sources.Dir); err != nil {
		return fmt.Errorf("load seed sources: %w", err)
	}

	a.QueueManager.Start(a.ctx)

	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.Logger.Info().Str("environment", a.Config.Environment).Msg("Application started")
	return nil
}

// Stop shuts components down in reverse dependency order.
func (a *App) Stop() {
	a.SchedulerService.Stop()
	a.QueueManager.Stop()
	a.cancelCtx()

	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to close storage")
	}
	a.Logger.Info().Msg("Application stopped")
}

// Context exposes the application lifetime context for one-shot commands.
func (a *App) Context() context.Context {
	return a.ctx
}

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/app"
	"github.com/abtn/nexus-smart-scraper/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	askQuestion  = flag.String("ask", "", "Answer a question over the enriched corpus and exit")
	discoverID   = flag.String("discover", "", "Trigger an immediate discovery run for a source ID and exit")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Nexus version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("nexus.toml"); err == nil {
			configFiles = append(configFiles, "nexus.toml")
		} else if _, err := os.Stat("deployments/local/nexus.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/nexus.toml")
		}
	}

	config, err := common.LoadConfig(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	switch {
	case *askQuestion != "":
		runAsk(application, *askQuestion)
	case *discoverID != "":
		runDiscover(application, *discoverID)
	default:
		runDaemon(application, logger)
	}
}

// runAsk starts the pipeline (gap-fill may need it), answers once and exits.
func runAsk(application *app.App, question string) {
	logger := application.Logger
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start application")
		os.Exit(1)
	}
	defer application.Stop()

	answer, err := application.Orchestrator.Answer(application.Context(), question)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to answer question")
		os.Exit(1)
	}

	fmt.Println(answer.Text)
	if answer.LowConfidence {
		fmt.Fprintln(os.Stderr, "\n(low confidence: the monitored corpus only partially covers this question)")
	}
}

// runDiscover enqueues one discovery run, lets the pipeline drain it
// briefly, then exits.
func runDiscover(application *app.App, sourceID string) {
	logger := application.Logger
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start application")
		os.Exit(1)
	}
	defer application.Stop()

	if err := application.SchedulerService.TriggerSource(application.Context(), sourceID); err != nil {
		logger.Fatal().Err(err).Str("source_id", sourceID).Msg("Failed to trigger discovery")
		os.Exit(1)
	}
	logger.Info().Str("source_id", sourceID).Msg("Discovery triggered, waiting for pipeline")

	waitForInterrupt()
}

func runDaemon(application *app.App, logger arbor.ILogger) {
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start application")
		os.Exit(1)
	}

	logger.Info().Msg("Daemon running, press Ctrl+C to stop")
	waitForInterrupt()

	application.Stop()
}

func waitForInterrupt() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// Loader seeds the source table from YAML definition files at startup.
// Seeded sources start active; sources already known by domain are left
// untouched so runtime state survives restarts.
type Loader struct {
	storage         interfaces.SourceStorage
	defaultInterval time.Duration
	logger          arbor.ILogger
}

// NewLoader creates a seed-source loader.
func NewLoader(storage interfaces.SourceStorage, defaultInterval time.Duration, logger arbor.ILogger) *Loader {
	if defaultInterval <= 0 {
		defaultInterval = time.Hour
	}
	return &Loader{
		storage:         storage,
		defaultInterval: defaultInterval,
		logger:          logger,
	}
}

// seedFile is one YAML definition file: a list of sources.
type seedFile struct {
	Sources []seedSource `yaml:"sources"`
}

// seedSource is the YAML shape of one seed definition. Interval is a
// duration string like "1h".
type seedSource struct {
	Name          string `yaml:"name"`
	RootURL       string `yaml:"root_url"`
	DiscoveryMode string `yaml:"discovery_mode"`
	MaxDepth      int    `yaml:"max_depth"`
	MaxPages      int    `yaml:"max_pages"`
	Status        string `yaml:"status"`
	Interval      string `yaml:"schedule_interval"`
}

func (s *seedSource) toSource() (*models.Source, error) {
	source := &models.Source{
		Name:          s.Name,
		RootURL:       s.RootURL,
		DiscoveryMode: s.DiscoveryMode,
		MaxDepth:      s.MaxDepth,
		MaxPages:      s.MaxPages,
		Status:        s.Status,
	}
	if s.Interval != "" {
		interval, err := time.ParseDuration(s.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule_interval %q: %w", s.Interval, err)
		}
		source.ScheduleInterval = interval
	}
	return source, nil
}

// LoadDir reads every YAML file in dir and registers unseen sources.
// A missing directory is not an error; the daemon can run purely on
// gap-fill discovery.
func (l *Loader) LoadDir(ctx context.Context, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info().Str("dir", dir).Msg("No seed source directory, skipping")
			return 0, nil
		}
		return 0, fmt.Errorf("read sources dir %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		n, err := l.loadFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			l.logger.Error().Err(err).Str("file", entry.Name()).Msg("Failed to load seed source file")
			continue
		}
		loaded += n
	}

	l.logger.Info().Int("loaded", loaded).Str("dir", dir).Msg("Seed sources loaded")
	return loaded, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	loaded := 0
	for i := range file.Sources {
		source, err := file.Sources[i].toSource()
		if err != nil {
			l.logger.Warn().Err(err).Str("root_url", file.Sources[i].RootURL).Msg("Skipped seed source")
			continue
		}
		if err := l.register(ctx, source); err != nil {
			l.logger.Warn().Err(err).Str("root_url", source.RootURL).Msg("Skipped seed source")
			continue
		}
		loaded++
	}
	return loaded, nil
}

func (l *Loader) register(ctx context.Context, source *models.Source) error {
	if err := source.Validate(); err != nil {
		return err
	}

	domain := common.RegistrableDomain(source.RootURL)
	existing, err := l.storage.GetByDomain(ctx, domain)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	if existing != nil {
		return nil
	}

	now := time.Now()
	if source.ID == "" {
		source.ID = common.NewSourceID()
	}
	if source.Status == "" {
		source.Status = models.SourceStatusActive
	}
	if source.ScheduleInterval <= 0 {
		source.ScheduleInterval = l.defaultInterval
	}
	source.CreatedAt = now
	source.UpdatedAt = now

	if err := l.storage.Save(ctx, source); err != nil {
		return err
	}
	l.logger.Info().
		Str("source_id", source.ID).
		Str("root_url", source.RootURL).
		Str("status", source.Status).
		Msg("Seed source registered")
	return nil
}

package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

// Manager implements the StorageManager interface over Badger
type Manager struct {
	db         *BadgerDB
	source     interfaces.SourceStorage
	document   interfaces.DocumentStorage
	enrichment interfaces.EnrichmentStorage
	promotion  interfaces.PromotionStorage
	health     interfaces.HealthStorage
	vector     interfaces.VectorStorage
	queue      interfaces.QueueStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:         db,
		source:     NewSourceStorage(db, logger),
		document:   NewDocumentStorage(db, logger),
		enrichment: NewEnrichmentStorage(db, logger),
		promotion:  NewPromotionStorage(db, logger),
		health:     NewHealthStorage(db, logger),
		vector:     NewVectorStorage(db, logger),
		queue:      NewQueueStorage(db, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

func (m *Manager) SourceStorage() interfaces.SourceStorage         { return m.source }
func (m *Manager) DocumentStorage() interfaces.DocumentStorage     { return m.document }
func (m *Manager) EnrichmentStorage() interfaces.EnrichmentStorage { return m.enrichment }
func (m *Manager) PromotionStorage() interfaces.PromotionStorage   { return m.promotion }
func (m *Manager) HealthStorage() interfaces.HealthStorage         { return m.health }
func (m *Manager) VectorStorage() interfaces.VectorStorage         { return m.vector }
func (m *Manager) QueueStorage() interfaces.QueueStorage           { return m.queue }

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}

package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex // serializes compare-and-set paths
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{db: db, logger: logger}
}

func (s *DocumentStorage) Save(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.SourceID == "" || doc.URL == "" {
		return fmt.Errorf("document source ID and URL are required")
	}

	// (SourceID, URL) uniqueness: a different document for the same pair is
	// a rejected write, not an overwrite.
	existing, err := s.GetByURL(ctx, doc.SourceID, doc.URL)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	if existing != nil && existing.ID != doc.ID {
		return fmt.Errorf("%w: document already exists for source %s url %s",
			models.ErrDataIntegrity, doc.SourceID, doc.URL)
	}

	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	if err := s.db.Store().Upsert(doc.ID, *doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) GetByURL(ctx context.Context, sourceID, url string) (*models.Document, error) {
	var docs []models.Document
	query := badgerhold.Where("SourceID").Eq(sourceID).And("URL").Eq(url)
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to query document by URL: %w", err)
	}
	if len(docs) == 0 {
		return nil, models.ErrNotFound
	}
	return &docs[0], nil
}

func (s *DocumentStorage) ExistsByURL(ctx context.Context, url string) (bool, error) {
	count, err := s.db.Store().Count(&models.Document{}, badgerhold.Where("URL").Eq(url))
	if err != nil {
		return false, fmt.Errorf("failed to count documents by URL: %w", err)
	}
	return count > 0, nil
}

func (s *DocumentStorage) ListBySource(ctx context.Context, sourceID string) ([]*models.Document, error) {
	var docs []models.Document
	if err := s.db.Store().Find(&docs, badgerhold.Where("SourceID").Eq(sourceID)); err != nil {
		return nil, fmt.Errorf("failed to list documents by source: %w", err)
	}
	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

// CompareAndSetEnriched marks the document enriched only when its content
// hash still matches. Two workers racing on the same unchanged document
// resolve here: the loser gets ErrDataIntegrity and skips its provider call.
func (s *DocumentStorage) CompareAndSetEnriched(ctx context.Context, id, expectedHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if doc.ContentHash != expectedHash {
		return fmt.Errorf("%w: content hash changed for document %s", models.ErrDataIntegrity, id)
	}
	if doc.EnrichedHash == expectedHash && doc.EnrichmentStatus == models.EnrichmentEnriched {
		return fmt.Errorf("%w: document %s already enriched for this hash", models.ErrDataIntegrity, id)
	}

	doc.EnrichmentStatus = models.EnrichmentEnriched
	doc.EnrichedHash = expectedHash
	doc.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(doc.ID, *doc); err != nil {
		return fmt.Errorf("failed to mark document enriched: %w", err)
	}
	return nil
}

func (s *DocumentStorage) MarkEnrichmentFailed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	doc.EnrichmentStatus = models.EnrichmentFailed
	doc.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(doc.ID, *doc); err != nil {
		return fmt.Errorf("failed to mark enrichment failed: %w", err)
	}
	return nil
}

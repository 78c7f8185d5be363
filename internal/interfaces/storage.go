package interfaces

import (
	"context"
	"time"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// SourceStorage persists monitored sources.
type SourceStorage interface {
	Save(ctx context.Context, source *models.Source) error
	Get(ctx context.Context, id string) (*models.Source, error)
	GetByDomain(ctx context.Context, domain string) (*models.Source, error)
	List(ctx context.Context) ([]*models.Source, error)
	ListByStatus(ctx context.Context, statuses ...string) ([]*models.Source, error)
	// UpdateStatus transitions a source's status, rejecting invalid
	// transitions (promotion monotonicity is enforced here).
	UpdateStatus(ctx context.Context, id, fromStatus, toStatus string) error
}

// DocumentStorage persists documents. The (SourceID, URL) pair is unique.
type DocumentStorage interface {
	Save(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	GetByURL(ctx context.Context, sourceID, url string) (*models.Document, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	ListBySource(ctx context.Context, sourceID string) ([]*models.Document, error)
	// CompareAndSetEnriched marks a document enriched only if its stored
	// content hash still equals expectedHash. Returns ErrDataIntegrity on
	// mismatch, preserving the original state.
	CompareAndSetEnriched(ctx context.Context, id, expectedHash string) error
	MarkEnrichmentFailed(ctx context.Context, id string) error
}

// EnrichmentStorage persists AI annotations, one current result per document.
type EnrichmentStorage interface {
	Upsert(ctx context.Context, result *models.EnrichmentResult) error
	Get(ctx context.Context, documentID string) (*models.EnrichmentResult, error)
	// CountHighUrgencyBySource counts documents of a source whose urgency
	// reached the floor since the given instant. Drives promotion.
	CountHighUrgencyBySource(ctx context.Context, sourceID string, floor int, since time.Time) (int, error)
}

// PromotionStorage records why sources were promoted.
type PromotionStorage interface {
	Save(ctx context.Context, record *models.PromotionRecord) error
	ListBySource(ctx context.Context, sourceID string) ([]*models.PromotionRecord, error)
}

// HealthStorage is the shared provider-health table. Read-mostly; brief
// staleness between workers is acceptable.
type HealthStorage interface {
	Get(ctx context.Context, name string) (*models.ProviderHealth, error)
	Upsert(ctx context.Context, health *models.ProviderHealth) error
	// Reset returns a provider to healthy. Operator action only.
	Reset(ctx context.Context, name string) error
}

// VectorStorage is the opaque embedding store: upsert and similarity search.
type VectorStorage interface {
	Upsert(ctx context.Context, documentID string, embedding []float32, metadata map[string]string) error
	Search(ctx context.Context, embedding []float32, k int) ([]VectorHit, error)
}

// VectorHit is one ranked similarity-search result.
type VectorHit struct {
	DocumentID string
	Score      float64
}

// QueueStorage persists stage queue messages with visibility semantics.
type QueueStorage interface {
	Enqueue(ctx context.Context, msg *models.QueueMessage) error
	// Claim atomically receives the next visible message for a stage and
	// hides it for the visibility timeout. Returns ErrNoMessage when empty.
	Claim(ctx context.Context, stage string, visibility time.Duration, maxReceive int) (*models.QueueMessage, error)
	Delete(ctx context.Context, id string) error
	// Release makes a claimed message visible again after a delay.
	Release(ctx context.Context, id string, delay time.Duration) error
	Depth(ctx context.Context, stage string) (int, error)
}

// StorageManager aggregates all storage interfaces over one database.
type StorageManager interface {
	SourceStorage() SourceStorage
	DocumentStorage() DocumentStorage
	EnrichmentStorage() EnrichmentStorage
	PromotionStorage() PromotionStorage
	HealthStorage() HealthStorage
	VectorStorage() VectorStorage
	QueueStorage() QueueStorage
	Close() error
}

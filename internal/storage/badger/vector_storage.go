package badger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

// vectorRecord is the stored form of one document embedding.
type vectorRecord struct {
	DocumentID string `badgerhold:"key"`
	Embedding  []float32
	Metadata   map[string]string
	UpdatedAt  time.Time
}

// VectorStorage implements the opaque vector-store boundary over Badger:
// upsert plus brute-force cosine similarity search. Corpus sizes here are
// thousands of documents, so a linear scan is adequate.
type VectorStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVectorStorage creates a new VectorStorage instance
func NewVectorStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VectorStorage {
	return &VectorStorage{db: db, logger: logger}
}

func (s *VectorStorage) Upsert(ctx context.Context, documentID string, embedding []float32, metadata map[string]string) error {
	if documentID == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding is required")
	}

	record := vectorRecord{
		DocumentID: documentID,
		Embedding:  embedding,
		Metadata:   metadata,
		UpdatedAt:  time.Now(),
	}
	if err := s.db.Store().Upsert(documentID, record); err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	return nil
}

func (s *VectorStorage) Search(ctx context.Context, embedding []float32, k int) ([]interfaces.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	var records []vectorRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to scan embeddings: %w", err)
	}

	hits := make([]interfaces.VectorHit, 0, len(records))
	for i := range records {
		score := cosineSimilarity(embedding, records[i].Embedding)
		if math.IsNaN(score) {
			continue
		}
		hits = append(hits, interfaces.VectorHit{
			DocumentID: records[i].DocumentID,
			Score:      score,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return math.NaN()
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

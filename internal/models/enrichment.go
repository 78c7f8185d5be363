package models

import "time"

// Categories accepted from providers. Anything outside this vocabulary is
// treated as malformed provider output and triggers failover.
var KnownCategories = []string{
	"Technology", "Politics", "Science", "Business", "Health",
	"Sports", "Entertainment", "World", "Environment", "Other",
}

// EnrichmentResult holds the AI annotations for one document. Exactly one
// current result exists per document; re-enrichment overwrites it.
type EnrichmentResult struct {
	DocumentID string `badgerhold:"key" json:"document_id"`
	Provider   string `json:"provider"`

	Urgency  int      `json:"urgency" validate:"min=1,max=10"`
	Category string   `json:"category" validate:"required"`
	Summary  string   `json:"summary" validate:"required,max=2000"`
	Tags     []string `json:"tags"`

	// EmbeddingRef keys the vector store entry for this document.
	EmbeddingRef string `json:"embedding_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsKnownCategory reports whether the category belongs to the controlled
// vocabulary.
func IsKnownCategory(category string) bool {
	for _, c := range KnownCategories {
		if c == category {
			return true
		}
	}
	return false
}

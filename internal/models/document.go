package models

import "time"

// Document processing states. Extraction and enrichment advance independently
// so a fetch worker and an enrich worker never contend on the same field.
const (
	ExtractionPending   = "pending"
	ExtractionExtracted = "extracted"
	ExtractionFailed    = "failed"

	EnrichmentPending  = "pending"
	EnrichmentEnriched = "enriched"
	EnrichmentFailed   = "failed"
)

// Document represents one page materialized from a discovery frontier.
// The (SourceID, URL) pair is unique; ContentHash gates re-enrichment.
type Document struct {
	ID       string `badgerhold:"key" json:"id"`
	SourceID string `badgerhold:"index" json:"source_id"`
	URL      string `badgerhold:"index" json:"url"`

	Title           string     `json:"title,omitempty"`
	ContentMarkdown string     `json:"content_markdown,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`

	// ContentHash is the SHA-256 of the extracted markdown. An unchanged
	// hash on re-fetch skips the enrichment stage entirely.
	ContentHash string `json:"content_hash,omitempty"`

	ExtractionStatus string `badgerhold:"index" json:"extraction_status"`
	EnrichmentStatus string `badgerhold:"index" json:"enrichment_status"`

	// EnrichedHash records the hash the current enrichment result was
	// computed from. Compare-and-set against this prevents two workers
	// enriching the same unchanged document concurrently.
	EnrichedHash string `json:"enriched_hash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NeedsEnrichment reports whether the current content hash has not yet been
// enriched.
func (d *Document) NeedsEnrichment() bool {
	return d.ExtractionStatus == ExtractionExtracted &&
		d.ContentHash != "" &&
		d.ContentHash != d.EnrichedHash
}

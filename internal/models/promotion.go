package models

import "time"

// PromotionRecord links a promoted source back to the search event that
// justified recurring monitoring. A source reaches promoted status only
// after its value signal crossed the configured threshold.
type PromotionRecord struct {
	ID            string    `badgerhold:"key" json:"id"`
	SourceID      string    `badgerhold:"index" json:"source_id"`
	Query         string    `json:"query,omitempty"`
	Trigger       string    `json:"trigger"` // e.g. "value_threshold", "operator"
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
}

package models

import (
	"encoding/json"
	"time"
)

// Queue stages. Each stage is an independent queue and the unit of retry.
const (
	StageDiscovery = "discovery"
	StageFetch     = "fetch"
	StageEnrich    = "enrich"
)

// QueueMessage is one unit of work in a stage queue. Delivery is
// at-least-once: a claimed message becomes re-claimable after its
// visibility timeout elapses without deletion.
type QueueMessage struct {
	ID      string          `badgerhold:"key" json:"id"`
	Stage   string          `badgerhold:"index" json:"stage"`
	Payload json.RawMessage `json:"payload"`

	// Receipts counts deliveries. Messages past the max-receive limit are
	// parked for operator review instead of being redelivered.
	Receipts int  `json:"receipts"`
	Parked   bool `badgerhold:"index" json:"parked"`

	// VisibleAt is the next instant the message may be claimed.
	VisibleAt  time.Time `json:"visible_at"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// DiscoveryPayload asks the discovery stage to resolve a frontier for a source.
type DiscoveryPayload struct {
	SourceID  string `json:"source_id"`
	ForceMode string `json:"force_mode,omitempty"` // operator override, empty = use source mode
}

// FetchPayload asks the fetch stage to retrieve and extract one document.
type FetchPayload struct {
	DocumentID string `json:"document_id"`
}

// EnrichPayload asks the enrich stage to annotate one document. Hash carries
// the content hash observed at extraction time for the idempotence check.
type EnrichPayload struct {
	DocumentID string `json:"document_id"`
	Hash       string `json:"hash"`
}

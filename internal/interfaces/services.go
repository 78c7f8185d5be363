package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// FetchResult is the outcome of a single HTTP retrieval.
type FetchResult struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	FinalURL   string
}

// Fetcher performs a single policy-compliant HTTP retrieval.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// Extraction is the output of the HTML extraction boundary.
type Extraction struct {
	Title       string
	Markdown    string
	PublishedAt *time.Time
}

// Extractor converts raw HTML into clean text. Treated as a black box by
// the pipeline.
type Extractor interface {
	Extract(html []byte, pageURL string) (*Extraction, error)
}

// DiscoveryRun is the outcome of one frontier-building run.
type DiscoveryRun struct {
	Strategy string // strategy actually used: sitemap or recursive
	Frontier []models.FrontierEntry
	Partial  bool // deadline or budget cut the run short; frontier still valid
}

// DiscoveryService resolves a URL frontier for a source.
type DiscoveryService interface {
	// Discover runs the selected strategy. forceMode overrides the source's
	// discovery mode when non-empty (operator boundary).
	Discover(ctx context.Context, source *models.Source, forceMode string) (*DiscoveryRun, error)
}

// SchedulerService runs recurring dispatch and the evolution loop.
type SchedulerService interface {
	Start() error
	Stop()
	// TriggerSource enqueues an immediate discovery run (operator boundary).
	TriggerSource(ctx context.Context, sourceID string) error
	// RecordEnrichment feeds an enrichment outcome into source evaluation.
	RecordEnrichment(ctx context.Context, sourceID string, urgency int) error
	// RecordRunOutcome tracks discovery success/failure streaks.
	RecordRunOutcome(ctx context.Context, sourceID string, runErr error) error
}

// Answer is the orchestrator's user-facing result. The orchestrator always
// returns an answer; insufficient context sets LowConfidence instead of
// raising an error.
type Answer struct {
	Text             string
	LowConfidence    bool
	CitedDocumentIDs []string
}

// Orchestrator ties audit, gap-fill and synthesis into one flow.
type Orchestrator interface {
	Answer(ctx context.Context, question string) (*Answer, error)
}

package models

// Frontier entry classifications. Navigation pages are crawled deeper,
// content pages become document stubs, excluded pages are dropped.
const (
	ClassNavigation = "navigation"
	ClassContent    = "content"
	ClassExcluded   = "excluded"
)

// FrontierEntry is one discovered URL within a single discovery run. Entries
// never outlive their run; accepted ones are materialized into documents.
type FrontierEntry struct {
	URL            string `json:"url"`
	ParentURL      string `json:"parent_url,omitempty"`
	Depth          int    `json:"depth"`
	Classification string `json:"classification"`
}

package discovery

import "sync"

// visitedSet is the per-run deduplication set, keyed by normalized URL.
// Check-and-insert is atomic relative to all workers crawling the run.
type visitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[string]struct{})}
}

// CheckAndInsert inserts the URL and reports whether it was new.
func (v *visitedSet) CheckAndInsert(normalizedURL string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[normalizedURL]; ok {
		return false
	}
	v.seen[normalizedURL] = struct{}{}
	return true
}

// Len returns the number of distinct URLs seen in this run.
func (v *visitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

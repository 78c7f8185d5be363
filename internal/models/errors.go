package models

import (
	"errors"
	"fmt"
)

// Error taxonomy. The queue layer keys retry behavior off these categories;
// the waterfall keys failover off the provider pair.
var (
	// ErrRobotsDisallowed marks a URL permanently excluded for its domain.
	// Never retried.
	ErrRobotsDisallowed = errors.New("blocked by robots.txt")

	// ErrTransientNetwork covers timeouts and connection resets. Retried
	// with backoff at the queue layer.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrProviderRecoverable triggers waterfall failover to the next
	// provider: 429, 5xx, timeout, connection refused, malformed output.
	ErrProviderRecoverable = errors.New("recoverable provider error")

	// ErrProviderFatal marks a provider unavailable until operator action:
	// auth failure or a non-429 4xx.
	ErrProviderFatal = errors.New("non-recoverable provider error")

	// ErrWaterfallExhausted means every provider for a capability failed.
	// Surfaced as a failed unit of work and re-queued with backoff.
	ErrWaterfallExhausted = errors.New("all providers exhausted")

	// ErrDataIntegrity marks a rejected document state transition. The
	// original state is preserved.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrFatalConfiguration means a capability has no configured provider.
	// Surfaced immediately, never retried.
	ErrFatalConfiguration = errors.New("fatal configuration error")

	// ErrNoMessage is returned when a stage queue is empty.
	ErrNoMessage = errors.New("no messages in queue")

	// ErrNotFound is returned by storage lookups for missing keys.
	ErrNotFound = errors.New("not found")
)

// FetchError is a typed failure from the fetcher boundary.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ProviderError wraps a provider failure with its failover classification.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Recoverable reports whether the error should trigger failover with
// cooldown rather than marking the provider unavailable.
func (e *ProviderError) Recoverable() bool {
	return errors.Is(e.Err, ErrProviderRecoverable)
}

package providers

import (
	"fmt"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// classifyStatus maps an HTTP status from a provider API into the failover
// taxonomy: 429 and 5xx are recoverable, any other 4xx is fatal.
func classifyStatus(provider string, status int) error {
	if status == 429 || status >= 500 {
		return &models.ProviderError{
			Provider:   provider,
			StatusCode: status,
			Err:        fmt.Errorf("%w: status %d", models.ErrProviderRecoverable, status),
		}
	}
	if status >= 400 {
		return &models.ProviderError{
			Provider:   provider,
			StatusCode: status,
			Err:        fmt.Errorf("%w: status %d", models.ErrProviderFatal, status),
		}
	}
	return nil
}

// classifyTransport maps transport-level failures. Timeouts and connection
// errors are recoverable and trigger failover.
func classifyTransport(provider string, err error) error {
	// Timeouts, refused connections and any other transport failure are
	// recoverable: the provider gets a cooldown, not a lockout.
	return &models.ProviderError{
		Provider: provider,
		Err:      fmt.Errorf("%w: %v", models.ErrProviderRecoverable, err),
	}
}

// malformedOutput marks structured output that failed normalization. By
// contract this is a recoverable failure, never accepted as-is.
func malformedOutput(provider string, err error) error {
	return &models.ProviderError{
		Provider: provider,
		Err:      fmt.Errorf("%w: malformed output: %v", models.ErrProviderRecoverable, err),
	}
}

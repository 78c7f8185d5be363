package models

import "time"

// Provider capabilities. A provider may expose more than one.
const (
	CapabilityReasoning = "reasoning"
	CapabilityEmbedding = "embedding"
	CapabilitySearch    = "search"
)

// Provider health states. Degraded providers are skipped until their
// cooldown expires; unavailable providers stay down until operator reset.
const (
	ProviderHealthy     = "healthy"
	ProviderDegraded    = "degraded"
	ProviderUnavailable = "unavailable"
)

// ProviderHealth is the shared, read-mostly health record for one provider.
// Cooldowns always carry an expiry; there is no permanent lockout without
// an explicit operator transition to unavailable.
type ProviderHealth struct {
	Name                string     `badgerhold:"key" json:"name"`
	State               string     `json:"state"`
	CooldownUntil       *time.Time `json:"cooldown_until,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Available reports whether the waterfall may dispatch to this provider now.
func (h *ProviderHealth) Available(now time.Time) bool {
	switch h.State {
	case ProviderUnavailable:
		return false
	case ProviderDegraded:
		return h.CooldownUntil == nil || now.After(*h.CooldownUntil)
	default:
		return true
	}
}

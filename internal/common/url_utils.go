package common

import (
	"net/url"
	"strings"
)

// Tracking query parameters stripped during URL normalization so the
// visited-set and document table key on canonical URLs.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"ref":          true,
	"source":       true,
}

// NormalizeURL canonicalizes a URL for deduplication: lowercases scheme and
// host, drops fragments and tracking parameters, trims trailing slashes.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		query := u.Query()
		for param := range query {
			if trackingParams[strings.ToLower(param)] {
				query.Del(param)
			}
		}
		u.RawQuery = query.Encode()
	}

	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), nil
}

// RegistrableDomain returns the host with any "www." prefix removed. Two
// URLs share a source when their registrable domains match.
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// SameDomain reports whether two URLs belong to the same registrable domain.
func SameDomain(a, b string) bool {
	da := RegistrableDomain(a)
	return da != "" && da == RegistrableDomain(b)
}

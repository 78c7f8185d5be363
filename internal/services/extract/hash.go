package extract

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash fingerprints extracted content. Matching hashes mean the page
// is unchanged and re-enrichment can be skipped.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

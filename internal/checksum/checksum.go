// Package checksum computes content digests and their HTTP entity-tag form.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes sum as a strong entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// MatchesAny reports whether an If-None-Match header value names sum.
// It accepts "*", a comma-separated list, and weak tags.
func MatchesAny(header, sum string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		tag = strings.TrimPrefix(tag, "W/")
		if strings.Trim(tag, `"`) == sum {
			return true
		}
	}
	return false
}

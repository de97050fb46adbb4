package parser

import (
	"encoding/base64"
	"fmt"
)

// EncodeID turns an absolute note path into its opaque id. The encoding is
// unpadded URL-safe base64, so ids can be used as URL path segments.
func EncodeID(absPath string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(absPath))
}

// DecodeID returns the absolute path an id was derived from.
func DecodeID(id string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", fmt.Errorf("parser: decode id: %w", err)
	}
	return string(b), nil
}

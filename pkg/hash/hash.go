package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// Prefix returns the first n characters of SHA256Hex(input), or the whole hash
// when n exceeds its length. Used to correlate values in logs without storing them.
func Prefix(input string, n int) string {
	full := SHA256Hex(input)
	if n > len(full) {
		return full
	}
	return full[:n]
}

// NormalizeQuery lowercases a free-text query and collapses its whitespace, so
// trivially different spellings share cache entries.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// QueryKey is the stable hash of a normalized query.
func QueryKey(q string) string {
	return SHA256Hex(NormalizeQuery(q))
}

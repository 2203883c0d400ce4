package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns the short content hash used for anonymised identifiers.
func HashString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:16]
}

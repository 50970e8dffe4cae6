package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DependentsKey builds the key of a dependent-field list. Columns match
// case-sensitively, so the column is hashed as given.
func DependentsKey(scope, column string) string {
	return hashed("deps:", scope, column)
}

func hashed(prefix string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return prefix + hex.EncodeToString(hash[:16])
}

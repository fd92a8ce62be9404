// Package incremental decides which source documents need reconversion by
// comparing content fingerprints against the records kept in the state tree.
package incremental

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes content fingerprints.
type Hasher interface {
	Hash(content []byte) string
}

// SHA256Hasher fingerprints content as the lowercase hex SHA-256 digest of the
// exact bytes. Identical bytes always yield identical fingerprints.
type SHA256Hasher struct{}

// Hash implements Hasher.
func (SHA256Hasher) Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

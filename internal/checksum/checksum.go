// Package checksum fingerprints uploaded files so repeat uploads can be found
// in the audit trail.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex SHA-256 of an uploaded file's bytes.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

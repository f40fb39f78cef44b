package media

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash computes the hex SHA-256 digest of data.
// The digest is computed over the exact bytes handed to ingestion,
// before any transformation, and doubles as the de-duplication key,
// so a cryptographic-strength hash is required rather than a fast
// checksum.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

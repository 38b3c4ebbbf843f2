package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRetryID computes a deterministic retry_id using SHA256.
// Formula: SHA256(originalSignature|maxAttempts|createdAtMs)
// Returns hex-encoded hash (64 characters).
func ComputeRetryID(originalSignature string, maxAttempts int, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%d|%d", originalSignature, maxAttempts, createdAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeMonitoringID computes a deterministic monitoring_id using SHA256.
// Formula: SHA256(signature|startedAtMs)
// Returns hex-encoded hash (64 characters).
func ComputeMonitoringID(signature string, startedAtMs int64) string {
	data := fmt.Sprintf("%s|%d", signature, startedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

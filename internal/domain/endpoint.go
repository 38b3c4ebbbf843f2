package domain

import "time"

// RPCEndpoint is one candidate in the ranked endpoint list.
// Priority is immutable; liveness metadata is updated by the selector.
type RPCEndpoint struct {
	URL           string
	Priority      int
	LastKnownGood *time.Time
}

package domain

import "time"

// TxStatus is the lifecycle status of a monitored transaction.
// Transitions are monotone: Pending -> {Confirmed | Failed | Unknown}.
// A record never returns to Pending after leaving it.
type TxStatus string

const (
	TxPending   TxStatus = "PENDING"
	TxConfirmed TxStatus = "CONFIRMED"
	TxFailed    TxStatus = "FAILED"
	TxUnknown   TxStatus = "UNKNOWN"
)

// Terminal reports whether the status permits no further transitions.
// Unknown is terminal for a single poll run but a fresh run may resolve it.
func (s TxStatus) Terminal() bool {
	return s == TxConfirmed || s == TxFailed
}

// TransactionRecord tracks one monitored signature.
// Mutated only by the status poller; evicted on process restart (no persistence).
type TransactionRecord struct {
	MonitoringID  string      `json:"monitoringId"`
	Signature     string      `json:"signature"`
	Status        TxStatus    `json:"status"`
	ChainError    interface{} `json:"chainError,omitempty"`
	StartTime     time.Time   `json:"startTime"`
	CheckCount    int         `json:"checkCount"`
	LastCheckTime time.Time   `json:"lastCheckTime"`
}

package domain

import "time"

// RetryStatus is the lifecycle status of a retry record.
// Succeeded and Exhausted are terminal.
type RetryStatus string

const (
	RetryWaiting   RetryStatus = "WAITING"
	RetryRetrying  RetryStatus = "RETRYING"
	RetryExhausted RetryStatus = "EXHAUSTED"
	RetrySucceeded RetryStatus = "SUCCEEDED"
)

// Terminal reports whether the scheduler will take no further action.
func (s RetryStatus) Terminal() bool {
	return s == RetrySucceeded || s == RetryExhausted
}

// RetryRecord tracks re-submission attempts for a failed transaction.
// Invariant: Attempts <= MaxAttempts at all times.
type RetryRecord struct {
	RetryID           string        `json:"retryId"`
	OriginalSignature string        `json:"originalSignature"`
	Attempts          int           `json:"attempts"`
	MaxAttempts       int           `json:"maxAttempts"`
	BackoffFactor     float64       `json:"backoffFactor"`
	InitialDelay      time.Duration `json:"initialDelay"`
	Status            RetryStatus   `json:"status"`
	RetrySignatures   []string      `json:"retrySignatures,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
}

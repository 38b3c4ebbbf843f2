package domain

import "time"

// TokenRecord is the durable audit record written after each mint attempt.
// It mirrors the MintResult plus enough request context for operators to
// reconcile partial failures against on-chain state.
type TokenRecord struct {
	MintAddress         string    `json:"mintAddress"`
	Name                string    `json:"name"`
	Symbol              string    `json:"symbol"`
	Decimals            uint8     `json:"decimals"`
	Supply              uint64    `json:"supply"`
	CreatorAddress      string    `json:"creatorAddress"`
	CreatorTokenAccount string    `json:"creatorTokenAccount"`
	MintSignature       string    `json:"mintSignature"`
	MintAuthorityNone   bool      `json:"mintAuthorityNone"`
	FreezeAuthorityNone bool      `json:"freezeAuthorityNone"`
	PartialFailure      string    `json:"partialFailure,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// TransactionEvent is one row in the append-only transaction event archive.
type TransactionEvent struct {
	Signature  string    `json:"signature"`
	EventType  string    `json:"eventType"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

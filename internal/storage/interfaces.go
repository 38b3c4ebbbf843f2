package storage

import (
	"context"

	"solana-token-service/internal/domain"
)

// TokenRecordStore provides access to the durable token mint audit records.
type TokenRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if mint_address exists.
	Insert(ctx context.Context, r *domain.TokenRecord) error

	// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mintAddress string) (*domain.TokenRecord, error)

	// GetByCreator retrieves all records for a creator wallet, newest first.
	GetByCreator(ctx context.Context, creatorAddress string) ([]*domain.TokenRecord, error)
}

// WebhookStore provides access to registered webhooks.
type WebhookStore interface {
	// Insert adds a new webhook. Returns ErrDuplicateKey if webhook_id exists.
	Insert(ctx context.Context, w *domain.Webhook) error

	// GetByID retrieves a webhook by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, webhookID string) (*domain.Webhook, error)

	// GetAll retrieves all webhooks, enabled or not.
	GetAll(ctx context.Context) ([]*domain.Webhook, error)

	// SetEnabled enables or disables a webhook. Returns ErrNotFound if not exists.
	SetEnabled(ctx context.Context, webhookID string, enabled bool) error
}

// TransactionEventStore is the append-only archive of transaction lifecycle
// events. Best-effort: write failures must never fail the triggering operation.
type TransactionEventStore interface {
	// InsertBulk appends multiple events.
	InsertBulk(ctx context.Context, events []*domain.TransactionEvent) error

	// GetBySignature retrieves all archived events for a signature, oldest first.
	GetBySignature(ctx context.Context, signature string) ([]*domain.TransactionEvent, error)
}

package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// TransactionEventStore implements storage.TransactionEventStore using ClickHouse.
// The archive is append-only: MergeTree does not enforce uniqueness and the
// lifecycle events never need it.
type TransactionEventStore struct {
	conn *Conn
}

// NewTransactionEventStore creates a new TransactionEventStore.
func NewTransactionEventStore(conn *Conn) *TransactionEventStore {
	return &TransactionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransactionEventStore = (*TransactionEventStore)(nil)

// InsertBulk appends multiple events.
func (s *TransactionEventStore) InsertBulk(ctx context.Context, events []*domain.TransactionEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	defer observeQuery("transaction_event_insert_bulk", time.Now(), &err)

	for _, e := range events {
		if e == nil || e.Signature == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transaction_events (
			signature, event_type, status, detail, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.Signature, e.EventType, e.Status, e.Detail, e.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySignature retrieves all archived events for a signature, oldest first.
func (s *TransactionEventStore) GetBySignature(ctx context.Context, signature string) (_ []*domain.TransactionEvent, err error) {
	defer observeQuery("transaction_event_get_by_signature", time.Now(), &err)

	query := `
		SELECT signature, event_type, status, detail, occurred_at
		FROM transaction_events
		WHERE signature = ?
		ORDER BY occurred_at ASC
	`

	rows, err := s.conn.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("query by signature: %w", err)
	}
	defer rows.Close()

	return scanTransactionEvents(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTransactionEvents scans multiple rows into a slice.
func scanTransactionEvents(rows chRows) ([]*domain.TransactionEvent, error) {
	var events []*domain.TransactionEvent

	for rows.Next() {
		var e domain.TransactionEvent
		var occurredAt time.Time

		err := rows.Scan(
			&e.Signature, &e.EventType, &e.Status, &e.Detail, &occurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction event row: %w", err)
		}

		e.OccurredAt = occurredAt
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction event rows: %w", err)
	}

	return events, nil
}

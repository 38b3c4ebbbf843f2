package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// TransactionEventStore is an in-memory implementation of storage.TransactionEventStore.
type TransactionEventStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TransactionEvent // keyed by signature
}

// NewTransactionEventStore creates a new in-memory transaction event store.
func NewTransactionEventStore() *TransactionEventStore {
	return &TransactionEventStore{
		data: make(map[string][]*domain.TransactionEvent),
	}
}

// Compile-time interface check.
var _ storage.TransactionEventStore = (*TransactionEventStore)(nil)

// InsertBulk appends multiple events.
func (s *TransactionEventStore) InsertBulk(_ context.Context, events []*domain.TransactionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil || e.Signature == "" {
			return storage.ErrInvalidInput
		}
		eventCopy := *e
		s.data[e.Signature] = append(s.data[e.Signature], &eventCopy)
	}
	return nil
}

// GetBySignature retrieves all archived events for a signature, oldest first.
func (s *TransactionEventStore) GetBySignature(_ context.Context, signature string) ([]*domain.TransactionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.data[signature]
	result := make([]*domain.TransactionEvent, 0, len(events))
	for _, e := range events {
		eventCopy := *e
		result = append(result, &eventCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})

	return result, nil
}

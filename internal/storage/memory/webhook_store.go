package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// WebhookStore is an in-memory implementation of storage.WebhookStore.
type WebhookStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Webhook // keyed by webhook_id
}

// NewWebhookStore creates a new in-memory webhook store.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		data: make(map[string]*domain.Webhook),
	}
}

// Compile-time interface check.
var _ storage.WebhookStore = (*WebhookStore)(nil)

// Insert adds a new webhook. Returns ErrDuplicateKey if webhook_id exists.
func (s *WebhookStore) Insert(_ context.Context, w *domain.Webhook) error {
	if w == nil || w.WebhookID == "" || w.URL == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[w.WebhookID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[w.WebhookID] = copyWebhook(w)
	return nil
}

// GetByID retrieves a webhook by its ID. Returns ErrNotFound if not exists.
func (s *WebhookStore) GetByID(_ context.Context, webhookID string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[webhookID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyWebhook(w), nil
}

// GetAll retrieves all webhooks, ordered by creation time ASC.
func (s *WebhookStore) GetAll(_ context.Context) ([]*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Webhook, 0, len(s.data))
	for _, w := range s.data {
		result = append(result, copyWebhook(w))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// SetEnabled enables or disables a webhook. Returns ErrNotFound if not exists.
func (s *WebhookStore) SetEnabled(_ context.Context, webhookID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.data[webhookID]
	if !exists {
		return storage.ErrNotFound
	}
	w.Enabled = enabled
	return nil
}

// copyWebhook deep-copies a webhook so callers cannot mutate stored state.
func copyWebhook(w *domain.Webhook) *domain.Webhook {
	c := *w
	if w.Addresses != nil {
		c.Addresses = make(map[string]bool, len(w.Addresses))
		for k, v := range w.Addresses {
			c.Addresses[k] = v
		}
	}
	if w.NotificationTypes != nil {
		c.NotificationTypes = append([]domain.NotificationType(nil), w.NotificationTypes...)
	}
	if w.Filters != nil {
		c.Filters = make(map[string]string, len(w.Filters))
		for k, v := range w.Filters {
			c.Filters[k] = v
		}
	}
	return &c
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// WebhookStore implements storage.WebhookStore using PostgreSQL.
type WebhookStore struct {
	pool *Pool
}

// NewWebhookStore creates a new WebhookStore.
func NewWebhookStore(pool *Pool) *WebhookStore {
	return &WebhookStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WebhookStore = (*WebhookStore)(nil)

// Insert adds a new webhook. Returns ErrDuplicateKey if webhook_id exists.
func (s *WebhookStore) Insert(ctx context.Context, w *domain.Webhook) (err error) {
	defer observeQuery("webhook_insert", time.Now(), &err)

	addresses := make([]string, 0, len(w.Addresses))
	for addr := range w.Addresses {
		addresses = append(addresses, addr)
	}

	types := make([]string, 0, len(w.NotificationTypes))
	for _, nt := range w.NotificationTypes {
		types = append(types, string(nt))
	}

	filters, err := json.Marshal(w.Filters)
	if err != nil {
		return fmt.Errorf("marshal webhook filters: %w", err)
	}

	query := `
		INSERT INTO webhooks (
			webhook_id, url, addresses, notification_types, filters, enabled, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		w.WebhookID,
		w.URL,
		addresses,
		types,
		filters,
		w.Enabled,
		w.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

// GetByID retrieves a webhook by its ID. Returns ErrNotFound if not exists.
func (s *WebhookStore) GetByID(ctx context.Context, webhookID string) (_ *domain.Webhook, err error) {
	defer observeQuery("webhook_get_by_id", time.Now(), &err)

	query := `
		SELECT webhook_id, url, addresses, notification_types, filters, enabled, created_at
		FROM webhooks
		WHERE webhook_id = $1
	`

	row := s.pool.QueryRow(ctx, query, webhookID)
	w, err := scanWebhook(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get webhook by id: %w", err)
	}
	return w, nil
}

// GetAll retrieves all webhooks, enabled or not, ordered by creation time.
func (s *WebhookStore) GetAll(ctx context.Context) (_ []*domain.Webhook, err error) {
	defer observeQuery("webhook_get_all", time.Now(), &err)

	query := `
		SELECT webhook_id, url, addresses, notification_types, filters, enabled, created_at
		FROM webhooks
		ORDER BY created_at ASC, webhook_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*domain.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook row: %w", err)
		}
		webhooks = append(webhooks, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook rows: %w", err)
	}

	return webhooks, nil
}

// SetEnabled enables or disables a webhook. Returns ErrNotFound if not exists.
func (s *WebhookStore) SetEnabled(ctx context.Context, webhookID string, enabled bool) (err error) {
	defer observeQuery("webhook_set_enabled", time.Now(), &err)

	query := `UPDATE webhooks SET enabled = $2 WHERE webhook_id = $1`

	tag, err := s.pool.Exec(ctx, query, webhookID, enabled)
	if err != nil {
		return fmt.Errorf("set webhook enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanWebhook scans a single row into a Webhook.
func scanWebhook(row pgx.Row) (*domain.Webhook, error) {
	var w domain.Webhook
	var addresses []string
	var types []string
	var filters []byte

	err := row.Scan(
		&w.WebhookID,
		&w.URL,
		&addresses,
		&types,
		&filters,
		&w.Enabled,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(addresses) > 0 {
		w.Addresses = make(map[string]bool, len(addresses))
		for _, addr := range addresses {
			w.Addresses[addr] = true
		}
	}
	for _, t := range types {
		w.NotificationTypes = append(w.NotificationTypes, domain.NotificationType(t))
	}
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &w.Filters); err != nil {
			return nil, fmt.Errorf("unmarshal webhook filters: %w", err)
		}
	}

	return &w, nil
}

// Package webhook stores callback registrations and delivers event
// notifications. Delivery is best-effort: failures are logged and counted,
// never retried, and never escalate into the triggering operation.
package webhook

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// Registry manages webhook registrations on top of an injected store.
type Registry struct {
	store storage.WebhookStore
}

// NewRegistry creates a Registry.
func NewRegistry(store storage.WebhookStore) *Registry {
	return &Registry{store: store}
}

// RegisterInput describes a webhook registration request.
type RegisterInput struct {
	URL               string
	Addresses         []string
	NotificationTypes []domain.NotificationType
	Filters           map[string]string
}

// Register validates the URL shape and persists the webhook. The URL is
// never probed for liveness; notification is fire-and-forget.
func (r *Registry) Register(ctx context.Context, in RegisterInput) (*domain.Webhook, error) {
	if err := ValidateURL(in.URL); err != nil {
		return nil, err
	}

	w := &domain.Webhook{
		WebhookID:         uuid.NewString(),
		URL:               in.URL,
		NotificationTypes: in.NotificationTypes,
		Filters:           in.Filters,
		Enabled:           true,
		CreatedAt:         time.Now().UTC(),
	}
	if len(in.Addresses) > 0 {
		w.Addresses = make(map[string]bool, len(in.Addresses))
		for _, addr := range in.Addresses {
			w.Addresses[addr] = true
		}
	}

	if err := r.store.Insert(ctx, w); err != nil {
		return nil, fmt.Errorf("insert webhook: %w", err)
	}
	return w, nil
}

// Get retrieves a webhook by id.
func (r *Registry) Get(ctx context.Context, webhookID string) (*domain.Webhook, error) {
	return r.store.GetByID(ctx, webhookID)
}

// SetEnabled toggles a webhook. Webhooks are never deleted, only disabled.
func (r *Registry) SetEnabled(ctx context.Context, webhookID string, enabled bool) error {
	return r.store.SetEnabled(ctx, webhookID, enabled)
}

// ValidateURL checks that the URL is well-formed http(s). Exported so
// callers can reject a bad callback URL before doing work the registration
// would follow.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid webhook url: scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("invalid webhook url: missing host")
	}
	return nil
}

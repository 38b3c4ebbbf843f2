package domain

import "time"

// NotificationType classifies webhook events.
type NotificationType string

const (
	NotifyTransactionStatus NotificationType = "transaction.status"
	NotifyTokenMint         NotificationType = "token.mint"
	NotifyRetryUpdate       NotificationType = "retry.update"
)

// Webhook is a registered callback target with filter criteria.
// Never auto-deleted; must be explicitly disabled.
type Webhook struct {
	WebhookID         string             `json:"webhookId"`
	URL               string             `json:"url"`
	Addresses         map[string]bool    `json:"-"`
	NotificationTypes []NotificationType `json:"notificationTypes,omitempty"`
	Filters           map[string]string  `json:"filters,omitempty"`
	Enabled           bool               `json:"enabled"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// WantsType reports whether the webhook subscribes to the given event type.
// An empty type list means all types.
func (w *Webhook) WantsType(t NotificationType) bool {
	if len(w.NotificationTypes) == 0 {
		return true
	}
	for _, nt := range w.NotificationTypes {
		if nt == t {
			return true
		}
	}
	return false
}

// WantsAddress reports whether the webhook subscribes to the given address.
// An empty address set means all addresses.
func (w *Webhook) WantsAddress(addr string) bool {
	if len(w.Addresses) == 0 {
		return true
	}
	return w.Addresses[addr]
}

// WebhookEvent is the JSON envelope POSTed to webhook URLs.
type WebhookEvent struct {
	Event     NotificationType `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
	Data      interface{}      `json:"data"`
	WebhookID string           `json:"webhookId"`
}

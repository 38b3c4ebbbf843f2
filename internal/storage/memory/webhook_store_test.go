package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

func TestWebhookStore_InsertAndGet(t *testing.T) {
	store := NewWebhookStore()
	ctx := context.Background()

	w := &domain.Webhook{
		WebhookID:         "hook1",
		URL:               "https://example.com/hook",
		NotificationTypes: []domain.NotificationType{domain.NotifyTransactionStatus},
		Addresses:         map[string]bool{"addr1": true},
		Enabled:           true,
		CreatedAt:         time.Now(),
	}

	if err := store.Insert(ctx, w); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "hook1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.URL != w.URL {
		t.Errorf("URL mismatch: got %s, want %s", got.URL, w.URL)
	}
	if !got.Enabled {
		t.Error("Expected webhook to be enabled")
	}
}

func TestWebhookStore_DuplicateKey(t *testing.T) {
	store := NewWebhookStore()
	ctx := context.Background()

	w := &domain.Webhook{WebhookID: "hook1", URL: "https://example.com/hook", CreatedAt: time.Now()}

	if err := store.Insert(ctx, w); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, w)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestWebhookStore_NotFound(t *testing.T) {
	store := NewWebhookStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	err = store.SetEnabled(ctx, "nonexistent", false)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from SetEnabled, got %v", err)
	}
}

func TestWebhookStore_SetEnabled(t *testing.T) {
	store := NewWebhookStore()
	ctx := context.Background()

	w := &domain.Webhook{WebhookID: "hook1", URL: "https://example.com/hook", Enabled: true, CreatedAt: time.Now()}
	if err := store.Insert(ctx, w); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.SetEnabled(ctx, "hook1", false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "hook1")
	if got.Enabled {
		t.Error("Expected webhook to be disabled")
	}
}

func TestWebhookStore_GetAll_CreationOrder(t *testing.T) {
	store := NewWebhookStore()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"hookA", "hookB", "hookC"} {
		w := &domain.Webhook{
			WebhookID: id,
			URL:       "https://example.com/" + id,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Insert(ctx, w); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}

	hooks, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(hooks) != 3 {
		t.Fatalf("Expected 3 webhooks, got %d", len(hooks))
	}
	if hooks[0].WebhookID != "hookA" || hooks[2].WebhookID != "hookC" {
		t.Errorf("Expected creation order, got %s..%s", hooks[0].WebhookID, hooks[2].WebhookID)
	}
}

func TestWebhookStore_ReturnsDeepCopies(t *testing.T) {
	store := NewWebhookStore()
	ctx := context.Background()

	w := &domain.Webhook{
		WebhookID: "hook1",
		URL:       "https://example.com/hook",
		Addresses: map[string]bool{"addr1": true},
		CreatedAt: time.Now(),
	}
	if err := store.Insert(ctx, w); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "hook1")
	got.Addresses["addr2"] = true

	again, _ := store.GetByID(ctx, "hook1")
	if len(again.Addresses) != 1 {
		t.Error("Store must deep-copy address sets")
	}
}

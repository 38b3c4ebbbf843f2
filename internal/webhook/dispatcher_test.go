package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage/memory"
)

// receiver collects webhook envelopes delivered to an httptest server.
type receiver struct {
	mu        sync.Mutex
	envelopes []domain.WebhookEvent
	status    int
}

func newReceiver(status int) (*receiver, *httptest.Server) {
	r := &receiver{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var env domain.WebhookEvent
		_ = json.NewDecoder(req.Body).Decode(&env)
		r.mu.Lock()
		r.envelopes = append(r.envelopes, env)
		r.mu.Unlock()
		w.WriteHeader(r.status)
	}))
	return r, srv
}

func (r *receiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.envelopes)
}

func (r *receiver) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.count() >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d deliveries, got %d", n, r.count())
}

func register(t *testing.T, reg *Registry, url string, types []domain.NotificationType, addresses []string) *domain.Webhook {
	t.Helper()
	w, err := reg.Register(context.Background(), RegisterInput{
		URL:               url,
		Addresses:         addresses,
		NotificationTypes: types,
	})
	require.NoError(t, err)
	return w
}

func TestDispatcher_DeliversMatchingEvent(t *testing.T) {
	store := memory.NewWebhookStore()
	reg := NewRegistry(store)
	recv, srv := newReceiver(http.StatusOK)
	defer srv.Close()

	hook := register(t, reg, srv.URL, []domain.NotificationType{domain.NotifyTokenMint}, nil)

	d := NewDispatcher(store, DispatcherOptions{Workers: 1})
	defer d.Close()

	d.Dispatch(context.Background(), Event{
		Type:    domain.NotifyTokenMint,
		Address: "MintX",
		Data:    map[string]string{"mintAddress": "MintX"},
	})

	recv.waitFor(t, 1)

	recv.mu.Lock()
	env := recv.envelopes[0]
	recv.mu.Unlock()

	assert.Equal(t, domain.NotifyTokenMint, env.Event)
	assert.Equal(t, hook.WebhookID, env.WebhookID)
	assert.NotZero(t, env.Timestamp)
}

func TestDispatcher_TypeFiltering(t *testing.T) {
	store := memory.NewWebhookStore()
	reg := NewRegistry(store)
	recv, srv := newReceiver(http.StatusOK)
	defer srv.Close()

	// Subscribed to token.mint only; must never see transaction.status.
	register(t, reg, srv.URL, []domain.NotificationType{domain.NotifyTokenMint}, nil)

	d := NewDispatcher(store, DispatcherOptions{Workers: 1})

	d.Dispatch(context.Background(), Event{Type: domain.NotifyTransactionStatus, Address: "MintX"})
	d.Close()

	assert.Zero(t, recv.count())
}

func TestDispatcher_AddressFiltering(t *testing.T) {
	store := memory.NewWebhookStore()
	reg := NewRegistry(store)
	recvX, srvX := newReceiver(http.StatusOK)
	defer srvX.Close()
	recvY, srvY := newReceiver(http.StatusOK)
	defer srvY.Close()

	register(t, reg, srvX.URL, nil, []string{"MintX"})
	register(t, reg, srvY.URL, nil, []string{"MintY"})

	d := NewDispatcher(store, DispatcherOptions{Workers: 1})

	d.Dispatch(context.Background(), Event{Type: domain.NotifyTokenMint, Address: "MintX"})
	d.Close()

	assert.Equal(t, 1, recvX.count())
	assert.Zero(t, recvY.count())
}

func TestDispatcher_DisabledWebhookSkipped(t *testing.T) {
	store := memory.NewWebhookStore()
	reg := NewRegistry(store)
	recv, srv := newReceiver(http.StatusOK)
	defer srv.Close()

	hook := register(t, reg, srv.URL, nil, nil)
	require.NoError(t, reg.SetEnabled(context.Background(), hook.WebhookID, false))

	d := NewDispatcher(store, DispatcherOptions{Workers: 1})

	d.Dispatch(context.Background(), Event{Type: domain.NotifyTokenMint, Address: "MintX"})
	d.Close()

	assert.Zero(t, recv.count())
}

func TestDispatcher_FieldFilters(t *testing.T) {
	store := memory.NewWebhookStore()
	recv, srv := newReceiver(http.StatusOK)
	defer srv.Close()

	reg := NewRegistry(store)
	_, err := reg.Register(context.Background(), RegisterInput{
		URL:     srv.URL,
		Filters: map[string]string{"status": "CONFIRMED"},
	})
	require.NoError(t, err)

	d := NewDispatcher(store, DispatcherOptions{Workers: 1})

	d.Dispatch(context.Background(), Event{
		Type:   domain.NotifyTransactionStatus,
		Fields: map[string]string{"status": "FAILED"},
	})
	d.Dispatch(context.Background(), Event{
		Type:   domain.NotifyTransactionStatus,
		Fields: map[string]string{"status": "CONFIRMED"},
	})
	d.Close()

	assert.Equal(t, 1, recv.count())
}

func TestDispatcher_FailureNeverEscalates(t *testing.T) {
	store := memory.NewWebhookStore()
	reg := NewRegistry(store)
	recv, srv := newReceiver(http.StatusInternalServerError)
	defer srv.Close()

	register(t, reg, srv.URL, nil, nil)

	d := NewDispatcher(store, DispatcherOptions{Workers: 1})

	// Dispatch must not panic or surface the 500; the failure is logged only.
	d.Dispatch(context.Background(), Event{Type: domain.NotifyTokenMint, Address: "MintX"})
	d.Close()

	// Delivered once, never retried.
	assert.Equal(t, 1, recv.count())
}

func TestRegistry_RejectsMalformedURL(t *testing.T) {
	reg := NewRegistry(memory.NewWebhookStore())

	cases := []string{
		"",
		"not-a-url",
		"ftp://example.com/hook",
		"http://",
	}
	for _, raw := range cases {
		_, err := reg.Register(context.Background(), RegisterInput{URL: raw})
		assert.Error(t, err, "url %q should be rejected", raw)
	}
}

func TestRegistry_RegisterAssignsID(t *testing.T) {
	reg := NewRegistry(memory.NewWebhookStore())

	w1, err := reg.Register(context.Background(), RegisterInput{URL: "https://example.com/a"})
	require.NoError(t, err)
	w2, err := reg.Register(context.Background(), RegisterInput{URL: "https://example.com/b"})
	require.NoError(t, err)

	assert.NotEmpty(t, w1.WebhookID)
	assert.NotEqual(t, w1.WebhookID, w2.WebhookID)
	assert.True(t, w1.Enabled)
}

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/observability"
	"solana-token-service/internal/storage"
)

const (
	// DefaultWorkers is the dispatch worker pool size.
	DefaultWorkers = 4
	// DefaultQueueSize bounds the pending delivery queue.
	DefaultQueueSize = 256
	// DefaultDeliveryTimeout bounds one webhook POST so a slow receiver
	// cannot stall the dispatch loop.
	DefaultDeliveryTimeout = 5 * time.Second
)

// Event is a state change to fan out to matching webhooks.
type Event struct {
	Type domain.NotificationType
	// Address is the mint or account the event concerns; matched against
	// each webhook's address set. Empty matches address-filtered webhooks
	// only when their set is empty.
	Address string
	// Fields are flat attributes matched against webhook filters.
	Fields map[string]string
	// Data is the payload delivered in the JSON envelope.
	Data interface{}
}

// delivery is one POST to one webhook.
type delivery struct {
	webhook *domain.Webhook
	event   Event
}

// Dispatcher fans events out to registered webhooks through a fixed-size
// worker pool over a buffered queue.
type Dispatcher struct {
	store   storage.WebhookStore
	client  *http.Client
	logger  *log.Logger
	queue   chan delivery
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Workers   int
	QueueSize int
	// Timeout bounds one delivery POST; defaults to DefaultDeliveryTimeout.
	Timeout time.Duration
	// HTTPClient overrides the delivery client (tests).
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewDispatcher creates a Dispatcher and starts its workers.
func NewDispatcher(store storage.WebhookStore, opts DispatcherOptions) *Dispatcher {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	d := &Dispatcher{
		store:  store,
		client: client,
		logger: logger,
		queue:  make(chan delivery, queueSize),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

// Dispatch enqueues the event for every matching webhook. It never blocks
// the caller: when the queue is full the delivery is dropped and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	webhooks, err := d.store.GetAll(ctx)
	if err != nil {
		d.logger.Printf("[webhook] list webhooks: %v", err)
		return
	}

	for _, w := range webhooks {
		if !matches(w, event) {
			continue
		}

		select {
		case d.queue <- delivery{webhook: w, event: event}:
			observability.SetWebhookQueueDepth(len(d.queue))
		default:
			observability.RecordWebhookDispatch("dropped")
			d.logger.Printf("[webhook] queue full, dropping %s for %s", event.Type, w.WebhookID)
		}
	}
}

// Close stops accepting deliveries and waits for in-flight ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

// matches applies the filter chain: enabled, notification type, address
// set, and flat field filters, in that order.
func matches(w *domain.Webhook, e Event) bool {
	if !w.Enabled {
		return false
	}
	if !w.WantsType(e.Type) {
		return false
	}
	if !w.WantsAddress(e.Address) {
		return false
	}
	for k, want := range w.Filters {
		if e.Fields[k] != want {
			return false
		}
	}
	return true
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for dl := range d.queue {
		d.deliver(dl)
	}
}

// deliver POSTs the JSON envelope. Non-2xx and network failures are logged
// and counted; they are never retried.
func (d *Dispatcher) deliver(dl delivery) {
	envelope := domain.WebhookEvent{
		Event:     dl.event.Type,
		Timestamp: time.Now().UTC(),
		Data:      dl.event.Data,
		WebhookID: dl.webhook.WebhookID,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		observability.RecordWebhookDispatch("failed")
		d.logger.Printf("[webhook] marshal envelope for %s: %v", dl.webhook.WebhookID, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, dl.webhook.URL, bytes.NewReader(body))
	if err != nil {
		observability.RecordWebhookDispatch("failed")
		d.logger.Printf("[webhook] build request for %s: %v", dl.webhook.WebhookID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		observability.RecordWebhookDispatch("failed")
		d.logger.Printf("[webhook] deliver %s to %s: %v", dl.event.Type, dl.webhook.WebhookID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.RecordWebhookDispatch("failed")
		d.logger.Printf("[webhook] deliver %s to %s: status %d", dl.event.Type, dl.webhook.WebhookID, resp.StatusCode)
		return
	}

	observability.RecordWebhookDispatch("delivered")
}

// Package monitor polls submitted transactions until finality, timeout, or
// chain error, and fans status transitions out through the webhook dispatcher.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/idhash"
	"solana-token-service/internal/observability"
	"solana-token-service/internal/solana"
	"solana-token-service/internal/webhook"
)

const (
	// DefaultInterval between poll attempts. Fixed, not exponential:
	// backoff growth belongs to the retry scheduler.
	DefaultInterval = 3 * time.Second
	// DefaultMaxAttempts bounds total wait time to MaxAttempts x Interval.
	DefaultMaxAttempts = 60
)

// ClientSelector resolves a live RPC client. Satisfied by endpoint.Selector.
type ClientSelector interface {
	Select(ctx context.Context) (solana.RPCClient, string, error)
}

// Notifier receives status transition events. Satisfied by webhook.Dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, event webhook.Event)
}

// PollOptions bounds a poll run.
type PollOptions struct {
	MaxAttempts int
	Interval    time.Duration
	// Address, when set, is attached to dispatched events for webhook
	// address filtering (typically the mint address).
	Address string
}

func (o PollOptions) withDefaults() PollOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Monitor tracks transaction records and runs poll loops. Records live in
// memory only; in-flight monitoring state is lost on restart.
type Monitor struct {
	selector ClientSelector
	notifier Notifier
	ws       solana.WSClient
	logger   *log.Logger

	mu      sync.Mutex
	records map[string]*domain.TransactionRecord
	cancels map[string]context.CancelFunc
}

// Options configures a Monitor.
type Options struct {
	Selector ClientSelector
	// Notifier is optional; nil disables webhook notification.
	Notifier Notifier
	// WS enables the signatureSubscribe fast path when non-nil.
	WS     solana.WSClient
	Logger *log.Logger
}

// New creates a Monitor.
func New(opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		selector: opts.Selector,
		notifier: opts.Notifier,
		ws:       opts.WS,
		logger:   logger,
		records:  make(map[string]*domain.TransactionRecord),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Poll runs the bounded attempt loop synchronously and returns the final
// record. The record is also retrievable by its monitoring id afterwards.
func (m *Monitor) Poll(ctx context.Context, signature string, opts PollOptions) (*domain.TransactionRecord, error) {
	rec := m.newRecord(signature)
	m.run(ctx, rec, opts.withDefaults())
	return m.Get(rec.MonitoringID)
}

// Start begins polling in the background and returns the monitoring id
// immediately. Polling is decoupled from the caller's lifetime; Cancel stops it.
func (m *Monitor) Start(signature string, opts PollOptions) string {
	rec := m.newRecord(signature)

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[rec.MonitoringID] = cancel
	observability.SetActiveMonitors(len(m.cancels))
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.cancels, rec.MonitoringID)
			observability.SetActiveMonitors(len(m.cancels))
			m.mu.Unlock()
			cancel()
		}()
		m.run(ctx, rec, opts.withDefaults())
	}()

	return rec.MonitoringID
}

// Cancel stops the background poll for a monitoring id, if one is running.
// The record keeps its last observed status.
func (m *Monitor) Cancel(monitoringID string) {
	m.mu.Lock()
	cancel, ok := m.cancels[monitoringID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Get returns a copy of the record for a monitoring id.
func (m *Monitor) Get(monitoringID string) (*domain.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[monitoringID]
	if !ok {
		return nil, ErrUnknownMonitoringID
	}
	cp := *rec
	return &cp, nil
}

func (m *Monitor) newRecord(signature string) *domain.TransactionRecord {
	now := time.Now().UTC()
	rec := &domain.TransactionRecord{
		MonitoringID: idhash.ComputeMonitoringID(signature, now.UnixMilli()),
		Signature:    signature,
		Status:       domain.TxPending,
		StartTime:    now,
	}

	m.mu.Lock()
	m.records[rec.MonitoringID] = rec
	m.mu.Unlock()
	return rec
}

// run executes the poll loop for one record. Polls for a given monitoring id
// are serialized: this is the only goroutine mutating the record.
func (m *Monitor) run(ctx context.Context, rec *domain.TransactionRecord, opts PollOptions) {
	wsCh := m.subscribe(ctx, rec.Signature)

	client, _, err := m.selector.Select(ctx)
	if err != nil {
		m.logger.Printf("[monitor] %s: no endpoint: %v", rec.Signature, err)
		m.transition(ctx, rec, domain.TxUnknown, nil, opts.Address)
		return
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		status, err := m.check(ctx, client, rec)
		if err != nil {
			// Endpoint went bad mid-run; re-select once per attempt.
			m.logger.Printf("[monitor] %s: status check failed: %v", rec.Signature, err)
			if fresh, _, selErr := m.selector.Select(ctx); selErr == nil {
				client = fresh
			}
		} else if status != nil {
			if status.Failed() {
				m.transition(ctx, rec, domain.TxFailed, status.Err, opts.Address)
				return
			}
			if status.Confirmed() {
				m.transition(ctx, rec, domain.TxConfirmed, nil, opts.Address)
				return
			}
		}

		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return
		case note, ok := <-wsCh:
			if !ok {
				// Connection dropped; fall back to HTTP polling alone.
				wsCh = nil
				continue
			}
			if note.Err != nil {
				m.transition(ctx, rec, domain.TxFailed, note.Err, opts.Address)
			} else {
				m.transition(ctx, rec, domain.TxConfirmed, nil, opts.Address)
			}
			return
		case <-time.After(opts.Interval):
		}
	}

	m.transition(ctx, rec, domain.TxUnknown, nil, opts.Address)
}

// check performs one getSignatureStatuses call and updates the attempt counters.
func (m *Monitor) check(ctx context.Context, client solana.RPCClient, rec *domain.TransactionRecord) (*solana.SignatureStatus, error) {
	observability.RecordPollAttempt()

	m.mu.Lock()
	rec.CheckCount++
	rec.LastCheckTime = time.Now().UTC()
	m.mu.Unlock()

	statuses, err := client.GetSignatureStatuses(ctx, rec.Signature)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	return statuses[0], nil
}

// transition applies a monotone status change and notifies the dispatcher.
// A record that already reached Confirmed or Failed never changes again.
func (m *Monitor) transition(ctx context.Context, rec *domain.TransactionRecord, next domain.TxStatus, chainErr interface{}, address string) {
	m.mu.Lock()
	if rec.Status.Terminal() || rec.Status == next {
		m.mu.Unlock()
		return
	}
	rec.Status = next
	rec.ChainError = chainErr
	cp := *rec
	m.mu.Unlock()

	observability.RecordStatusTransition(string(next))
	m.logger.Printf("[monitor] %s: %s", rec.Signature, next)

	if m.notifier != nil {
		m.notifier.Dispatch(ctx, webhook.Event{
			Type:    domain.NotifyTransactionStatus,
			Address: address,
			Fields:  map[string]string{"status": string(next), "signature": rec.Signature},
			Data:    &cp,
		})
	}
}

// subscribe opens the WS fast path when a WS client is configured.
func (m *Monitor) subscribe(ctx context.Context, signature string) <-chan solana.SignatureNotification {
	if m.ws == nil {
		return nil
	}
	ch, err := m.ws.SubscribeSignature(ctx, signature)
	if err != nil {
		m.logger.Printf("[monitor] %s: ws subscribe failed, polling only: %v", signature, err)
		return nil
	}
	return ch
}

// Package retry re-attempts failed transaction submissions with exponential
// backoff, up to a bounded attempt count.
package retry

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/idhash"
	"solana-token-service/internal/monitor"
	"solana-token-service/internal/observability"
	"solana-token-service/internal/webhook"
)

const (
	// DefaultMaxAttempts before a record is Exhausted.
	DefaultMaxAttempts = 3
	// DefaultBackoffFactor multiplies the delay between attempts.
	DefaultBackoffFactor = 2.0
	// DefaultInitialDelay before the first re-submission.
	DefaultInitialDelay = time.Second
	// DefaultMaxDelay caps the computed backoff delay.
	DefaultMaxDelay = time.Minute
)

// ErrUnknownRetryID is returned when no record exists for an id.
var ErrUnknownRetryID = errors.New("unknown retry id")

// ResubmitFunc re-submits the logical operation and returns the new signature.
type ResubmitFunc func(ctx context.Context) (string, error)

// Confirmer waits for a signature to resolve. Satisfied by monitor.Monitor.
type Confirmer interface {
	Poll(ctx context.Context, signature string, opts monitor.PollOptions) (*domain.TransactionRecord, error)
}

// ScheduleOptions configures one retry registration.
type ScheduleOptions struct {
	MaxAttempts   int
	BackoffFactor float64
	InitialDelay  time.Duration
	// Poll bounds the confirmation wait after each re-submission.
	Poll monitor.PollOptions
	// Address is attached to retry.update events for webhook filtering.
	Address string
}

func (o ScheduleOptions) withDefaults() ScheduleOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BackoffFactor <= 0 {
		o.BackoffFactor = DefaultBackoffFactor
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	return o
}

// Scheduler tracks retry records and runs the backoff loops. State lives in
// memory only and is lost on restart.
type Scheduler struct {
	confirmer Confirmer
	notifier  monitor.Notifier
	logger    *log.Logger
	maxDelay  time.Duration
	sleep     func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	records map[string]*domain.RetryRecord
	wg      sync.WaitGroup
}

// Options configures a Scheduler.
type Options struct {
	Confirmer Confirmer
	// Notifier is optional; nil disables retry.update events.
	Notifier monitor.Notifier
	Logger   *log.Logger
	// MaxDelay caps the backoff delay; defaults to DefaultMaxDelay.
	MaxDelay time.Duration
	// Sleep overrides the delay wait (tests).
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		}
	}
	return &Scheduler{
		confirmer: opts.Confirmer,
		notifier:  opts.Notifier,
		logger:    logger,
		maxDelay:  maxDelay,
		sleep:     sleep,
		records:   make(map[string]*domain.RetryRecord),
	}
}

// Schedule registers a retry and starts its backoff loop in the background.
// The returned record is a snapshot; progress is visible through Get.
func (s *Scheduler) Schedule(originalSignature string, opts ScheduleOptions, resubmit ResubmitFunc) *domain.RetryRecord {
	opts = opts.withDefaults()
	now := time.Now().UTC()

	rec := &domain.RetryRecord{
		RetryID:           idhash.ComputeRetryID(originalSignature, opts.MaxAttempts, now.UnixMilli()),
		OriginalSignature: originalSignature,
		MaxAttempts:       opts.MaxAttempts,
		BackoffFactor:     opts.BackoffFactor,
		InitialDelay:      opts.InitialDelay,
		Status:            domain.RetryWaiting,
		CreatedAt:         now,
	}

	s.mu.Lock()
	s.records[rec.RetryID] = rec
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(context.Background(), rec, opts, resubmit)
	}()

	cp := *rec
	return &cp
}

// Get returns a copy of the record for a retry id.
func (s *Scheduler) Get(retryID string) (*domain.RetryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[retryID]
	if !ok {
		return nil, ErrUnknownRetryID
	}
	cp := *rec
	cp.RetrySignatures = append([]string(nil), rec.RetrySignatures...)
	return &cp, nil
}

// Wait blocks until all background retry loops finish. Used in shutdown and tests.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Delay computes the wait before attempt n (1-indexed):
// initialDelay x factor^(n-1), capped at the scheduler maximum.
func (s *Scheduler) Delay(initial time.Duration, factor float64, attempt int) time.Duration {
	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if d > s.maxDelay {
		return s.maxDelay
	}
	return d
}

// run executes attempts sequentially: a new attempt never starts while a
// previous attempt's outcome is unknown.
func (s *Scheduler) run(ctx context.Context, rec *domain.RetryRecord, opts ScheduleOptions, resubmit ResubmitFunc) {
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		delay := s.Delay(opts.InitialDelay, opts.BackoffFactor, attempt)
		if err := s.sleep(ctx, delay); err != nil {
			return
		}

		s.update(ctx, rec, opts.Address, func() {
			rec.Status = domain.RetryRetrying
			rec.Attempts++
		})
		observability.RecordRetryAttempt()

		sig, err := resubmit(ctx)
		if err != nil {
			s.logger.Printf("[retry] %s attempt %d: resubmit failed: %v", rec.RetryID, attempt, err)
			continue
		}

		s.update(ctx, rec, opts.Address, func() {
			rec.RetrySignatures = append(rec.RetrySignatures, sig)
		})

		confirmed, err := s.confirm(ctx, sig, opts.Poll)
		if err != nil {
			s.logger.Printf("[retry] %s attempt %d: confirm %s: %v", rec.RetryID, attempt, sig, err)
			continue
		}
		if confirmed {
			s.update(ctx, rec, opts.Address, func() {
				rec.Status = domain.RetrySucceeded
			})
			return
		}
	}

	// Terminal: no attempt confirmed within MaxAttempts. Manual
	// intervention is required from here.
	observability.RecordRetryExhaustion()
	s.update(ctx, rec, opts.Address, func() {
		rec.Status = domain.RetryExhausted
	})
}

func (s *Scheduler) confirm(ctx context.Context, signature string, opts monitor.PollOptions) (bool, error) {
	tx, err := s.confirmer.Poll(ctx, signature, opts)
	if err != nil {
		return false, err
	}
	return tx.Status == domain.TxConfirmed, nil
}

// update mutates the record under lock and dispatches a retry.update event.
func (s *Scheduler) update(ctx context.Context, rec *domain.RetryRecord, address string, mutate func()) {
	s.mu.Lock()
	mutate()
	cp := *rec
	cp.RetrySignatures = append([]string(nil), rec.RetrySignatures...)
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, webhook.Event{
			Type:    domain.NotifyRetryUpdate,
			Address: address,
			Fields: map[string]string{
				"status":            string(cp.Status),
				"originalSignature": cp.OriginalSignature,
			},
			Data: &cp,
		})
	}
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/monitor"
)

// stubConfirmer maps signatures to final poll statuses.
type stubConfirmer struct {
	mu       sync.Mutex
	statuses map[string]domain.TxStatus
}

func (c *stubConfirmer) Poll(_ context.Context, signature string, _ monitor.PollOptions) (*domain.TransactionRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.statuses[signature]
	if !ok {
		status = domain.TxUnknown
	}
	return &domain.TransactionRecord{Signature: signature, Status: status}, nil
}

// recordedSleep captures requested delays without waiting.
type recordedSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *recordedSleep) all() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func TestSchedule_BackoffGrowthAndExhaustion(t *testing.T) {
	sleeper := &recordedSleep{}
	confirmer := &stubConfirmer{statuses: map[string]domain.TxStatus{}} // nothing confirms

	s := New(Options{Confirmer: confirmer, Sleep: sleeper.sleep})

	var resubmits int
	var mu sync.Mutex
	rec := s.Schedule("orig-sig", ScheduleOptions{
		MaxAttempts:   3,
		BackoffFactor: 2,
		InitialDelay:  time.Second,
	}, func(_ context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		resubmits++
		return fmt.Sprintf("retry-sig-%d", resubmits), nil
	})
	s.Wait()

	// Delays: 1000, 2000, 4000 ms for attempts 1..3; no 4th attempt.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeper.all())
	assert.Equal(t, 3, resubmits)

	final, err := s.Get(rec.RetryID)
	require.NoError(t, err)
	assert.Equal(t, domain.RetryExhausted, final.Status)
	assert.Equal(t, 3, final.Attempts)
	assert.Len(t, final.RetrySignatures, 3)
}

func TestSchedule_SucceedsOnFirstConfirmation(t *testing.T) {
	sleeper := &recordedSleep{}
	confirmer := &stubConfirmer{statuses: map[string]domain.TxStatus{
		"retry-sig-2": domain.TxConfirmed,
	}}

	s := New(Options{Confirmer: confirmer, Sleep: sleeper.sleep})

	var resubmits int
	var mu sync.Mutex
	rec := s.Schedule("orig-sig", ScheduleOptions{
		MaxAttempts:   5,
		BackoffFactor: 2,
		InitialDelay:  time.Second,
	}, func(_ context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		resubmits++
		return fmt.Sprintf("retry-sig-%d", resubmits), nil
	})
	s.Wait()

	final, err := s.Get(rec.RetryID)
	require.NoError(t, err)
	assert.Equal(t, domain.RetrySucceeded, final.Status)
	// Succeeded on attempt 2; attempts 3..5 never ran.
	assert.Equal(t, 2, final.Attempts)
	assert.Equal(t, []string{"retry-sig-1", "retry-sig-2"}, final.RetrySignatures)
}

func TestSchedule_ResubmitErrorCountsAsAttempt(t *testing.T) {
	sleeper := &recordedSleep{}
	confirmer := &stubConfirmer{statuses: map[string]domain.TxStatus{
		"retry-sig-ok": domain.TxConfirmed,
	}}

	s := New(Options{Confirmer: confirmer, Sleep: sleeper.sleep})

	calls := 0
	var mu sync.Mutex
	rec := s.Schedule("orig-sig", ScheduleOptions{
		MaxAttempts:   3,
		BackoffFactor: 2,
		InitialDelay:  100 * time.Millisecond,
	}, func(_ context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return "", errors.New("blockhash expired")
		}
		return "retry-sig-ok", nil
	})
	s.Wait()

	final, err := s.Get(rec.RetryID)
	require.NoError(t, err)
	assert.Equal(t, domain.RetrySucceeded, final.Status)
	assert.Equal(t, 2, final.Attempts)
	// The failed submission produced no signature.
	assert.Equal(t, []string{"retry-sig-ok"}, final.RetrySignatures)
}

func TestDelay_Capped(t *testing.T) {
	s := New(Options{Confirmer: &stubConfirmer{}, MaxDelay: 5 * time.Second})

	assert.Equal(t, time.Second, s.Delay(time.Second, 2, 1))
	assert.Equal(t, 4*time.Second, s.Delay(time.Second, 2, 3))
	// 8s computed, capped at 5s.
	assert.Equal(t, 5*time.Second, s.Delay(time.Second, 2, 4))
}

func TestGet_UnknownRetryID(t *testing.T) {
	s := New(Options{Confirmer: &stubConfirmer{}})

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownRetryID)
}

func TestSchedule_AttemptsNeverExceedMax(t *testing.T) {
	sleeper := &recordedSleep{}
	confirmer := &stubConfirmer{statuses: map[string]domain.TxStatus{}}

	s := New(Options{Confirmer: confirmer, Sleep: sleeper.sleep})

	rec := s.Schedule("orig-sig", ScheduleOptions{
		MaxAttempts:   2,
		BackoffFactor: 2,
		InitialDelay:  time.Second,
	}, func(_ context.Context) (string, error) {
		return "retry-sig", nil
	})
	s.Wait()

	final, err := s.Get(rec.RetryID)
	require.NoError(t, err)
	assert.Equal(t, domain.RetryExhausted, final.Status)
	assert.LessOrEqual(t, final.Attempts, final.MaxAttempts)
	assert.Len(t, sleeper.all(), 2)
}

//go:build !integration

package sched

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/infra/worker"
	"marketplace-payments/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type fakeReconciler struct {
	mu       sync.Mutex
	pending  []*model.Payment
	listErr  error
	failIDs  map[string]bool
	stuckIDs map[string]bool
	seen     []string
	inflight int32
	peak     int32
}

// Outstanding pages f.pending in order, resuming after the given row.
func (f *fakeReconciler) Outstanding(ctx context.Context, after *model.Payment, limit int) ([]*model.Payment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	from := 0
	if after != nil {
		for i, p := range f.pending {
			if p.ID == after.ID {
				from = i + 1
			}
		}
	}
	to := from + limit
	if to > len(f.pending) {
		to = len(f.pending)
	}
	return f.pending[from:to], nil
}

func (f *fakeReconciler) polls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.seen {
		if s == id {
			n++
		}
	}
	return n
}

func (f *fakeReconciler) Reconcile(ctx context.Context, p *model.Payment) (usecase.ReconcileOutcome, error) {
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		old := atomic.LoadInt32(&f.peak)
		if n <= old || atomic.CompareAndSwapInt32(&f.peak, old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.seen = append(f.seen, p.ID)
	f.mu.Unlock()
	if f.failIDs[p.ID] {
		return usecase.ReconcileError, errors.New("gateway down")
	}
	if f.stuckIDs[p.ID] {
		return usecase.ReconcilePending, nil
	}
	return usecase.ReconcileSucceeded, nil
}

func payments(ids ...string) []*model.Payment {
	out := make([]*model.Payment, 0, len(ids))
	for _, id := range ids {
		out = append(out, &model.Payment{ID: id, Status: model.PaymentStatusPending})
	}
	return out
}

func TestPaymentReconciler_Tick(t *testing.T) {
	t.Run("should poll every outstanding payment despite individual failures", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool := worker.NewPool("reconcile", 2, 2, newTestLogger())
		pool.Start(ctx)
		defer pool.Stop()
		uc := &fakeReconciler{pending: payments("a", "b", "c", "d", "e"), failIDs: map[string]bool{"b": true}}
		r := NewPaymentReconciler(uc, pool, ReconcilerOptions{Interval: time.Hour}, newTestLogger())

		// Act
		r.Tick(ctx)

		// Assert
		if len(uc.seen) != 5 {
			t.Fatalf("expected 5 polls, got %v", uc.seen)
		}
		if uc.peak > 2 {
			t.Fatalf("expected at most 2 concurrent polls, got %d", uc.peak)
		}
	})

	t.Run("should reach newer payments behind a full batch of stuck ones", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool := worker.NewPool("reconcile", 2, 2, newTestLogger())
		pool.Start(ctx)
		defer pool.Stop()
		stuck := map[string]bool{"old-0": true, "old-1": true, "old-2": true, "old-3": true, "old-4": true}
		uc := &fakeReconciler{
			pending:  payments("old-0", "old-1", "old-2", "old-3", "old-4", "new-paid"),
			stuckIDs: stuck,
		}
		r := NewPaymentReconciler(uc, pool, ReconcilerOptions{Interval: time.Hour, BatchSize: 5}, newTestLogger())

		// Act
		for i := 0; i < 3; i++ {
			r.Tick(ctx)
		}

		// Assert
		if n := uc.polls("new-paid"); n != 3 {
			t.Fatalf("expected the newer payment polled every cycle, got %d", n)
		}
		if n := uc.polls("old-0"); n != 3 {
			t.Fatalf("expected stuck payments still polled every cycle, got %d", n)
		}
	})

	t.Run("should page exactly when the last page is full", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool := worker.NewPool("reconcile", 1, 1, newTestLogger())
		pool.Start(ctx)
		defer pool.Stop()
		uc := &fakeReconciler{pending: payments("a", "b", "c", "d")}
		r := NewPaymentReconciler(uc, pool, ReconcilerOptions{Interval: time.Hour, BatchSize: 2}, newTestLogger())

		r.Tick(ctx)

		for _, id := range []string{"a", "b", "c", "d"} {
			if n := uc.polls(id); n != 1 {
				t.Errorf("expected %s polled once, got %d", id, n)
			}
		}
	})

	t.Run("should skip the cycle when listing fails", func(t *testing.T) {
		ctx := context.Background()
		pool := worker.NewPool("reconcile", 1, 1, newTestLogger())
		pool.Start(ctx)
		defer pool.Stop()
		uc := &fakeReconciler{listErr: errors.New("db down")}
		r := NewPaymentReconciler(uc, pool, ReconcilerOptions{}, newTestLogger())

		r.Tick(ctx)

		if len(uc.seen) != 0 {
			t.Fatalf("expected no polls, got %v", uc.seen)
		}
	})

	t.Run("should stop submitting once the pool is stopped", func(t *testing.T) {
		ctx := context.Background()
		pool := worker.NewPool("reconcile", 1, 1, newTestLogger())
		pool.Start(ctx)
		pool.Stop()
		uc := &fakeReconciler{pending: payments("a", "b")}
		r := NewPaymentReconciler(uc, pool, ReconcilerOptions{}, newTestLogger())

		done := make(chan struct{})
		go func() { r.Tick(ctx); close(done) }()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Tick should return when the pool refuses work")
		}
	})
}

type countingMaintainer struct {
	expired   int32
	reminders int32
}

func (c *countingMaintainer) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	atomic.AddInt32(&c.expired, 1)
	return 1, nil
}

func (c *countingMaintainer) SendExpiryReminders(ctx context.Context, now time.Time) (int, error) {
	atomic.AddInt32(&c.reminders, 1)
	return 0, errors.New("sink down")
}

func TestExpiryWorker_Run(t *testing.T) {
	t.Run("should check once on startup and stop with the context", func(t *testing.T) {
		m := &countingMaintainer{}
		w := NewExpiryWorker(time.Hour, m, m, newTestLogger())
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := w.Run(ctx)

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error, got %v", err)
		}
		if atomic.LoadInt32(&m.expired) != 1 || atomic.LoadInt32(&m.reminders) != 1 {
			t.Fatalf("expected one startup check, got expired=%d reminders=%d", m.expired, m.reminders)
		}
	})
}

type countingSweeper struct{ calls int32 }

func (c *countingSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	atomic.AddInt32(&c.calls, 1)
	return 2, nil
}

func TestPromotionSweeper_Run(t *testing.T) {
	t.Run("should sweep on every tick", func(t *testing.T) {
		s := &countingSweeper{}
		w := NewPromotionSweeper(10*time.Millisecond, s, newTestLogger())
		ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
		defer cancel()

		_ = w.Run(ctx)

		if atomic.LoadInt32(&s.calls) < 2 {
			t.Fatalf("expected several sweeps, got %d", s.calls)
		}
	})
}

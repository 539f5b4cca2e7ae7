//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/ports/adapter"
)

var _ adapter.TaskRunner = (*Pool)(nil)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestPool(t *testing.T) {
	t.Run("should run submitted tasks and survive panics", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := NewPool("test", 2, 4, newTestLogger())
		p.Start(ctx)
		defer p.Stop()

		var wg sync.WaitGroup
		wg.Add(2)
		_ = p.Submit(func(ctx context.Context) error { defer wg.Done(); panic("boom") })
		_ = p.Submit(func(ctx context.Context) error { defer wg.Done(); return errors.New("ignored") })

		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("tasks did not run")
		}
	})

	t.Run("should report a full queue", func(t *testing.T) {
		p := NewPool("test", 1, 1, newTestLogger())
		// not started, so nothing drains the queue
		if err := p.Submit(func(context.Context) error { return nil }); err != nil {
			t.Fatalf("first submit: %v", err)
		}
		if err := p.Submit(func(context.Context) error { return nil }); !errors.Is(err, ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
	})

	t.Run("should refuse work after stop", func(t *testing.T) {
		p := NewPool("test", 1, 1, newTestLogger())
		p.Start(context.Background())
		p.Stop()

		if err := p.Submit(func(context.Context) error { return nil }); !errors.Is(err, ErrPoolStopped) {
			t.Fatalf("expected ErrPoolStopped, got %v", err)
		}
		if err := p.SubmitWait(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, ErrPoolStopped) {
			t.Fatalf("expected ErrPoolStopped, got %v", err)
		}
	})
}

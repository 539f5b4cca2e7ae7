//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type counterClient struct {
	RedisClient
	counts  map[string]int64
	expires map[string]time.Duration
	incrErr error
}

func newCounterClient() *counterClient {
	return &counterClient{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (c *counterClient) IncrWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	if c.incrErr != nil {
		return 0, c.incrErr
	}
	c.counts[key]++
	if c.counts[key] == 1 {
		c.expires[key] = window
	}
	return c.counts[key], nil
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("should allow up to the limit inside one window", func(t *testing.T) {
		// --- Arrange ---
		cli := newCounterClient()
		rl := NewRateLimiter(cli)
		key := RefreshKey("user-1")

		// --- Act ---
		var allowed int
		for i := 0; i < 5; i++ {
			ok, err := rl.Allow(ctx, key, 3, time.Minute)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				allowed++
			}
		}

		// --- Assert ---
		if allowed != 3 {
			t.Errorf("expected 3 allowed calls, got %d", allowed)
		}
		if cli.expires[key] != time.Minute {
			t.Errorf("expected the window to be set once on first hit, got %v", cli.expires[key])
		}
		if key != "rate_limit:refresh:user-1" {
			t.Errorf("unexpected key %q", key)
		}
	})

	t.Run("should surface redis errors", func(t *testing.T) {
		cli := newCounterClient()
		cli.incrErr = errors.New("connection refused")

		ok, err := NewRateLimiter(cli).Allow(ctx, "k", 1, time.Second)

		if ok || err == nil {
			t.Fatalf("expected a denied call with an error, got %v / %v", ok, err)
		}
	})

	t.Run("should not touch redis when limiting is off", func(t *testing.T) {
		cli := newCounterClient()
		cli.incrErr = errors.New("must not be called")

		ok, err := NewRateLimiter(cli).Allow(ctx, "k", 0, time.Second)

		if !ok || err != nil {
			t.Fatalf("expected pass-through, got %v / %v", ok, err)
		}
	})
}

package redis

import (
	"context"
	"time"
)

// RateLimiter counts calls per key in fixed windows.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether one more call under key fits in limit per window.
// Errors are returned as-is; the caller decides whether to fail open.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	n, err := r.client.IncrWindow(ctx, key, window)
	if err != nil {
		return false, err
	}
	return n <= int64(limit), nil
}

// RefreshKey scopes manual payment refreshes per user.
func RefreshKey(userID string) string {
	return "rate_limit:refresh:" + userID
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/metrics"
	red "marketplace-payments/internal/infra/redis"
)

const defaultCacheTTL = time.Hour

// readThrough serves JSON snapshots of T from Redis and falls back to load.
// Calls made inside a transaction always go to the database: those reads
// take row locks and must see the transaction's own writes.
type readThrough[T any] struct {
	cache  red.RedisClient
	entity string
	ttl    time.Duration
}

func (c readThrough[T]) get(ctx context.Context, tx repository.Tx, key string, load func() (T, error)) (T, error) {
	if tx != repository.NoTX {
		return load()
	}
	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if json.Unmarshal([]byte(raw), &v) == nil {
			metrics.IncCacheRequest(c.entity, "hit")
			return v, nil
		}
	case !errors.Is(err, redis.Nil):
		metrics.IncCacheRequest(c.entity, "error")
	}
	metrics.IncCacheRequest(c.entity, "miss")

	v, err := load()
	if err != nil {
		return v, err
	}
	if b, merr := json.Marshal(v); merr == nil {
		_ = c.cache.Set(ctx, key, b, c.ttl)
	}
	return v, nil
}

func (c readThrough[T]) invalidate(ctx context.Context, keys ...string) {
	_ = c.cache.Del(ctx, keys...)
}

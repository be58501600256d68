package plans

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tokengate/pkg/logger"
)

// cacheKey is versioned so a Plan schema change invalidates old entries.
const cacheKey = "tokengate:plans:v1"

// RedisCmd is the subset of the go-redis client the cache needs.
// *redis.Client satisfies it.
type RedisCmd interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedSource wraps another Source with a redis JSON cache. The catalog is
// read-hot and changes rarely, so a short TTL removes most store reads.
// Cache failures fall through to the inner source: redis being down must
// never hide the pricing page.
type CachedSource struct {
	inner Source
	rdb   RedisCmd
	ttl   time.Duration
	log   *slog.Logger
}

// CachedSourceOption configures a CachedSource.
type CachedSourceOption func(*CachedSource)

// WithTTL overrides the default 5 minute cache lifetime.
func WithTTL(ttl time.Duration) CachedSourceOption {
	return func(c *CachedSource) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger for cache degradation events.
func WithCacheLogger(log *slog.Logger) CachedSourceOption {
	return func(c *CachedSource) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCachedSource wraps a Source. Panics on nil dependencies to fail fast
// during wiring.
func NewCachedSource(inner Source, rdb RedisCmd, opts ...CachedSourceOption) *CachedSource {
	if inner == nil {
		panic("plans: inner source is required")
	}
	if rdb == nil {
		panic("plans: redis client is required")
	}

	c := &CachedSource{
		inner: inner,
		rdb:   rdb,
		ttl:   5 * time.Minute,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedSource) Load(ctx context.Context) ([]Plan, error) {
	raw, err := c.rdb.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var items []Plan
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, nil
		}
		c.log.Warn("corrupted plan cache entry, reloading from source")
	case !errors.Is(err, redis.Nil):
		c.log.Warn("plan cache read failed, falling back to source", logger.Error(err))
	}

	items, err := c.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(items); err == nil {
		if err := c.rdb.Set(ctx, cacheKey, raw, c.ttl).Err(); err != nil {
			c.log.Warn("plan cache write failed", logger.Error(err))
		}
	}

	return items, nil
}

package bank

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// payloadStore is the part of *redis.Client the cache uses.
type payloadStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedSource keeps bank payloads in Redis in front of a slower source.
type CachedSource struct {
	next  Source
	store payloadStore
	ttl   time.Duration
}

var _ Source = (*CachedSource)(nil)

func NewCachedSource(next Source, store payloadStore, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedSource{next: next, store: store, ttl: ttl}
}

func (c *CachedSource) key(class string) string {
	return "bank:payload:" + ClassKey(class)
}

// Fetch serves from the cache when possible. Cache errors fall through to the source.
func (c *CachedSource) Fetch(ctx context.Context, class string) ([]byte, error) {
	data, err := c.store.Get(ctx, c.key(class)).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		return c.fill(ctx, class, false)
	}
	return c.fill(ctx, class, true)
}

// Warm refreshes the cached payload for class from the source.
func (c *CachedSource) Warm(ctx context.Context, class string) error {
	_, err := c.fill(ctx, class, true)
	return err
}

func (c *CachedSource) fill(ctx context.Context, class string, store bool) ([]byte, error) {
	data, err := c.next.Fetch(ctx, class)
	if err != nil {
		return nil, err
	}
	if store {
		_ = c.store.Set(ctx, c.key(class), data, c.ttl).Err()
	}
	return data, nil
}

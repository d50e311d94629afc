package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"

	"github.com/rentabot/rentabot/common"
)

// Cache is a typed wrapper around a gocache store. Lookups and writes never
// fail the caller: cache errors are logged and treated as misses, since
// every cached value can be recomputed from the coordinator state.
type Cache[T any] struct {
	cache     cache.CacheInterface[T]
	keyPrefix string
	logger    common.Logger
}

// NewCache creates a Cache on the given store. The key prefix is optional
// and namespaces this cache's keys within a shared store.
func NewCache[T any](cacheStore store.StoreInterface, keyPrefix string, logger common.Logger) *Cache[T] {
	return &Cache[T]{
		cache:     cache.New[T](cacheStore),
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Get retrieves the value for key. It returns the zero value and false on a
// miss or on any store error.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	key = c.keyPrefix + key

	value, err := c.cache.Get(ctx, key)
	if err != nil {
		if err.Error() != store.NOT_FOUND_ERR {
			c.logger.Errorf("Cache read failed: %s", err)
		}

		return *new(T), false
	}

	return value, true
}

// Set stores value under key for the given expiration.
func (c *Cache[T]) Set(ctx context.Context, key string, value T, expiration time.Duration) {
	key = c.keyPrefix + key

	if err := c.cache.Set(ctx, key, value, store.WithExpiration(expiration)); err != nil {
		c.logger.Errorf("Cache write failed: %s", err)
	}
}

// Delete removes the value for key. Unlike reads and writes, an explicit
// delete is expected to succeed, so its error is returned.
func (c *Cache[T]) Delete(ctx context.Context, key string) error {
	key = c.keyPrefix + key

	if err := c.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}

	return nil
}

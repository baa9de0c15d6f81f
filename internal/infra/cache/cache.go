package cache

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

var ErrUnexpectedType = errors.New("cached value has unexpected type")

// Cache is a keyed store with TTL support and de-duplicated loads.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	Delete(ctx context.Context, key string)
	GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) (any, error)
}

type Config struct {
	MaxCost     int64
	NumCounters int64
	BufferItems int64
}

// DefaultConfig sizes the cache for a few thousand schema entries.
func DefaultConfig() Config {
	return Config{
		MaxCost:     1 << 20,
		NumCounters: 1e5,
		BufferItems: 64,
	}
}

type RistrettoCache struct {
	store *ristretto.Cache
	group singleflight.Group
}

func New(config Config) (*RistrettoCache, error) {
	defaults := DefaultConfig()
	if config.MaxCost <= 0 {
		config.MaxCost = defaults.MaxCost
	}
	if config.NumCounters <= 0 {
		config.NumCounters = defaults.NumCounters
	}
	if config.BufferItems <= 0 {
		config.BufferItems = defaults.BufferItems
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{store: store}, nil
}

func (c *RistrettoCache) Get(ctx context.Context, key string) (any, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	return c.store.Get(key)
}

// Set stores value and waits for the write buffer so the value is visible
// to the next Get.
func (c *RistrettoCache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	ok := c.store.SetWithTTL(key, value, 1, ttl)
	c.store.Wait()
	return ok
}

func (c *RistrettoCache) Delete(ctx context.Context, key string) {
	if ctx.Err() != nil {
		return
	}
	c.store.Del(key)
}

// GetOrSet returns the cached value for key or runs loader once for all
// concurrent callers and caches its result.
func (c *RistrettoCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) (any, error) {
	if value, found := c.Get(ctx, key); found {
		return value, nil
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if value, found := c.Get(ctx, key); found {
			return value, nil
		}

		value, err := loader()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, value, ttl)
		return value, nil
	})
	return value, err
}

func (c *RistrettoCache) Close() {
	c.store.Close()
}

// Load is a typed GetOrSet.
func Load[T any](ctx context.Context, c Cache, key string, ttl time.Duration, loader func() (T, error)) (T, error) {
	var zero T
	value, err := c.GetOrSet(ctx, key, ttl, func() (any, error) {
		return loader()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, ErrUnexpectedType
	}
	return typed, nil
}

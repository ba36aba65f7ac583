// Package memory provides in-process query caches.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
)

var (
	_ driven.QueryCache = (*Cache)(nil)
	_ driven.QueryCache = Disabled{}
)

type entry struct {
	docs      []string
	expiresAt time.Time
}

// Cache is a map-backed driven.QueryCache. Expired entries are dropped on read.
type Cache struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

// Option configures the cache.
type Option func(*Cache)

// WithClock replaces time.Now. Tests use it to move time forward.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		items: make(map[string]entry),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for key if it has not expired.
func (c *Cache) Get(_ context.Context, key string) (domain.CachedRetrieval, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return domain.CachedRetrieval{}, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		return domain.CachedRetrieval{}, false, nil
	}
	return domain.CachedRetrieval{Docs: slices.Clone(e.docs)}, true, nil
}

// Set stores value under key until ttl elapses. A non-positive ttl deletes the key.
func (c *Cache) Set(_ context.Context, key string, value domain.CachedRetrieval, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.items, key)
		return nil
	}
	docs := slices.Clone(value.Docs)
	if docs == nil {
		docs = []string{}
	}
	c.items[key] = entry{docs: docs, expiresAt: c.now().Add(ttl)}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close drops all entries.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
	return nil
}

// Disabled is a cache that never stores anything.
type Disabled struct{}

// Get always misses.
func (Disabled) Get(context.Context, string) (domain.CachedRetrieval, bool, error) {
	return domain.CachedRetrieval{}, false, nil
}

// Set discards value.
func (Disabled) Set(context.Context, string, domain.CachedRetrieval, time.Duration) error {
	return nil
}

// Close is a no-op.
func (Disabled) Close() error { return nil }

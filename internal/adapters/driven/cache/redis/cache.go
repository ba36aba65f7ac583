// Package redis implements the query cache on a Redis server.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
)

// DefaultURL is used when no URL is configured.
const DefaultURL = "redis://localhost:6379/0"

// Ensure Cache implements the interface.
var _ driven.QueryCache = (*Cache)(nil)

// Cache stores retrieval results as JSON strings with a per-key expiry.
type Cache struct {
	client *goredis.Client
	prefix string
}

// Option configures the cache.
type Option func(*Cache)

// WithPrefix namespaces every key. Keys are otherwise the question verbatim.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New connects to the server at url (redis://host:port/db).
// The connection is lazy; use Ping to check reachability.
func New(url string, opts ...Option) (*Cache, error) {
	if url == "" {
		url = DefaultURL
	}
	options, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %w", domain.ErrInvalidInput, err)
	}
	return NewFromClient(goredis.NewClient(options), opts...), nil
}

// NewFromClient wraps an existing client. Close closes it.
func NewFromClient(client *goredis.Client, opts ...Option) *Cache {
	c := &Cache{client: client}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached docs for key. A missing or expired key is not an error.
func (c *Cache) Get(ctx context.Context, key string) (domain.CachedRetrieval, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.CachedRetrieval{}, false, nil
	}
	if err != nil {
		return domain.CachedRetrieval{}, false, fmt.Errorf("redis get: %w", err)
	}

	var value domain.CachedRetrieval
	if err := json.Unmarshal(raw, &value); err != nil {
		return domain.CachedRetrieval{}, false, fmt.Errorf("decode cached value: %w", err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value and expiry.
func (c *Cache) Set(ctx context.Context, key string, value domain.CachedRetrieval, ttl time.Duration) error {
	if value.Docs == nil {
		value.Docs = []string{}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the server is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

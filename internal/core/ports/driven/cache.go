package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/docsai/internal/core/domain"
)

// QueryCache memoises retrieval results per question for a bounded time.
// Expiry is enforced by the implementation; an expired entry reads as absent.
type QueryCache interface {
	// Get returns the entry for key and whether it was present.
	Get(ctx context.Context, key string) (domain.CachedRetrieval, bool, error)

	// Set stores value under key, replacing any existing entry and its expiry.
	Set(ctx context.Context, key string, value domain.CachedRetrieval, ttl time.Duration) error

	// Close releases resources.
	Close() error
}

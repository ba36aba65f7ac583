// Package embedding wraps a provider adapter with batching, pacing, retries
// and dimension checks. Provider adapters live in the subpackages.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
	"github.com/custodia-labs/docsai/internal/logger"
	"github.com/custodia-labs/docsai/internal/metrics"
	"github.com/custodia-labs/docsai/internal/retry"
)

// Ensure Client implements the interface.
var _ driven.EmbeddingService = (*Client)(nil)

// DefaultBatchSize is used when the configuration leaves it unset.
const DefaultBatchSize = 100

// Config controls the client's batching and retry behaviour.
type Config struct {
	// BatchSize caps texts per provider call; the provider's own cap also applies.
	BatchSize int

	// Dimensions is the length every vector must have. Zero uses the provider's.
	Dimensions int

	// Retry configures backoff for transient provider errors.
	Retry retry.Config

	// RequestsPerSecond paces provider calls. Zero or less means unlimited.
	RequestsPerSecond float64

	// Metrics records batches and retries. May be nil.
	Metrics *metrics.Metrics
}

// Client is the embedding service used by ingestion and retrieval.
type Client struct {
	provider   driven.EmbeddingService
	batchSize  int
	dimensions int
	retry      retry.Config
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

// NewClient wraps provider.
func NewClient(provider driven.EmbeddingService, cfg Config) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if limit := provider.MaxBatchSize(); limit > 0 && batchSize > limit {
		batchSize = limit
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = provider.Dimensions()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	rc := cfg.Retry
	rc.Retryable = domain.IsTransient

	c := &Client{
		provider:   provider,
		batchSize:  batchSize,
		dimensions: dims,
		limiter:    rate.NewLimiter(limit, 1),
		metrics:    cfg.Metrics,
	}
	rc.OnRetry = func(attempt int, err error) {
		logger.Warn("embedding: attempt %d failed, retrying: %v", attempt, err)
		c.metrics.EmbeddingRetry()
	}
	c.retry = rc
	return c
}

// EmbedBatch returns one vector per text in input order. Texts are sent in
// consecutive batches; the first failing batch aborts the call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: embedding mode %q", domain.ErrInvalidInput, mode)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vecs, err := c.embedOne(ctx, texts[start:end], mode)
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, vecs...)
	}

	logger.Debug("embedding: %d texts in %d batches (%s)", len(texts), batchCount(len(texts), c.batchSize), mode)
	return out, nil
}

func (c *Client) embedOne(ctx context.Context, batch []string, mode domain.EmbeddingMode) ([][]float32, error) {
	vecs, err := retry.DoWithResult(ctx, c.retry, func() ([][]float32, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, retry.NonRetryable(err)
		}
		return c.provider.EmbedBatch(ctx, batch, mode)
	})
	if err != nil {
		return nil, err
	}

	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
			domain.ErrDimensionMismatch, len(vecs), len(batch))
	}
	for _, v := range vecs {
		if err := domain.CheckDimension(v, c.dimensions); err != nil {
			return nil, err
		}
	}

	c.metrics.EmbeddingBatch()
	return vecs, nil
}

func batchCount(n, size int) int {
	return (n + size - 1) / size
}

// Dimensions returns the vector length every result is checked against.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// MaxBatchSize returns the effective batch size.
func (c *Client) MaxBatchSize() int {
	return c.batchSize
}

// ModelName returns the provider's model.
func (c *Client) ModelName() string {
	return c.provider.ModelName()
}

// Ping checks the provider.
func (c *Client) Ping(ctx context.Context) error {
	return c.provider.Ping(ctx)
}

// Close releases the provider.
func (c *Client) Close() error {
	return c.provider.Close()
}

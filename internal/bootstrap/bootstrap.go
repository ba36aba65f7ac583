// Package bootstrap wires adapters and services from a validated configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docsai/internal/adapters/driven/ai"
	memcache "github.com/custodia-labs/docsai/internal/adapters/driven/cache/memory"
	rediscache "github.com/custodia-labs/docsai/internal/adapters/driven/cache/redis"
	memstore "github.com/custodia-labs/docsai/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docsai/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/docsai/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docsai/internal/chunker"
	"github.com/custodia-labs/docsai/internal/config"
	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
	"github.com/custodia-labs/docsai/internal/core/services"
	"github.com/custodia-labs/docsai/internal/logger"
	"github.com/custodia-labs/docsai/internal/metrics"
	"github.com/custodia-labs/docsai/internal/normalisers/pdf"
)

const pingTimeout = 5 * time.Second

// Runtime owns every long-lived client. Close releases them in reverse order.
type Runtime struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Ingest   *services.IngestService
	Question *services.QuestionService

	store   driven.VectorStore
	cache   driven.QueryCache
	closers []func() error
}

type options struct {
	validate bool
	metrics  *metrics.Metrics
}

// Option configures New.
type Option func(*options)

// WithValidation pings the providers and the store before returning.
// Long-running commands use it to fail fast on bad credentials.
func WithValidation() Option {
	return func(o *options) { o.validate = true }
}

// WithMetrics records into m instead of a fresh registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New builds the runtime for cfg. On error every client opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Runtime, err error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}

	rt := &Runtime{Config: cfg, Metrics: o.metrics}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	embedSettings := cfg.EmbeddingSettings()
	llmSettings := cfg.LLMSettings()

	var embedder driven.EmbeddingService
	var llm driven.LLMService
	if o.validate {
		embedder, err = ai.CreateAndValidateEmbeddingService(ctx, &embedSettings, rt.Metrics)
	} else {
		embedder, err = ai.CreateEmbeddingService(&embedSettings, rt.Metrics)
	}
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	rt.closers = append(rt.closers, embedder.Close)
	logger.Debug("Embedding: %s %s (%d dims)", embedSettings.Provider, embedder.ModelName(), embedder.Dimensions())

	if o.validate {
		llm, err = ai.CreateAndValidateLLMService(ctx, &llmSettings)
	} else {
		llm, err = ai.CreateLLMService(&llmSettings)
	}
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	rt.closers = append(rt.closers, llm.Close)
	logger.Debug("LLM: %s %s", llmSettings.Provider, llm.ModelName())

	rt.store, err = NewStore(ctx, cfg.Store, embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	rt.closers = append(rt.closers, rt.store.Close)
	if o.validate {
		if err := rt.pingStore(ctx); err != nil {
			return nil, err
		}
	}

	rt.cache, err = NewCache(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	rt.closers = append(rt.closers, rt.cache.Close)

	ch := chunker.New(chunker.WithChunkSize(cfg.Chunker.Size), chunker.WithOverlap(cfg.Chunker.Overlap))
	rt.Ingest = services.NewIngestService(pdf.New(), ch, embedder, rt.store)
	rt.Ingest.SetMetrics(rt.Metrics)

	rt.Question = services.NewQuestionService(embedder, rt.store, rt.cache, llm, services.QuestionConfig{
		TopK:     cfg.RAG.TopK,
		CacheTTL: cfg.Cache.TTL.Duration,
		Generate: driven.GenerateOptions{
			MaxTokens:   cfg.RAG.MaxTokens,
			Temperature: cfg.RAG.Temperature,
		},
	})
	rt.Question.SetMetrics(rt.Metrics)

	return rt, nil
}

// NewStore opens the configured vector store for vectors of length dims.
func NewStore(ctx context.Context, cfg config.StoreConfig, dims int) (driven.VectorStore, error) {
	switch cfg.Driver {
	case config.StorePostgres:
		s, err := postgres.NewStore(ctx, postgres.Config{
			DSN:        cfg.DatabaseURL,
			Dimensions: dims,
			MaxConns:   cfg.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreSQLite:
		s, err := sqlite.NewStore(cfg.Path, dims)
		if err != nil {
			return nil, err
		}
		logger.Debug("SQLite store at %s", s.Path())
		return s, nil
	case config.StoreMemory:
		logger.Warn("Using the in-memory vector store; ingested documents are lost on exit")
		return memstore.NewVectorStore(dims), nil
	default:
		return nil, fmt.Errorf("%w: store driver %q", domain.ErrUnsupportedType, cfg.Driver)
	}
}

// NewCache opens the configured query cache. An unreachable redis server is
// reported but not fatal; lookups against it degrade to misses.
func NewCache(ctx context.Context, cfg config.CacheConfig) (driven.QueryCache, error) {
	switch cfg.Driver {
	case config.CacheRedis:
		c, err := rediscache.New(cfg.RedisURL, rediscache.WithPrefix(cfg.Prefix))
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			logger.Warn("Redis unreachable, questions will not be cached: %v", err)
		}
		return c, nil
	case config.CacheMemory:
		return memcache.New(), nil
	case config.CacheNone:
		return memcache.Disabled{}, nil
	default:
		return nil, fmt.Errorf("%w: cache driver %q", domain.ErrUnsupportedType, cfg.Driver)
	}
}

func (r *Runtime) pingStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Healthy reports whether the vector store answers.
func (r *Runtime) Healthy(ctx context.Context) error {
	return r.pingStore(ctx)
}

// Close releases clients in reverse order of creation.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

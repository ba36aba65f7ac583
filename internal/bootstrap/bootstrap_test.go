package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memcache "github.com/custodia-labs/docsai/internal/adapters/driven/cache/memory"
	rediscache "github.com/custodia-labs/docsai/internal/adapters/driven/cache/redis"
	memstore "github.com/custodia-labs/docsai/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docsai/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docsai/internal/config"
	"github.com/custodia-labs/docsai/internal/core/domain"
)

// fakeOllama serves the embedding, generation and tags endpoints.
type fakeOllama struct {
	*httptest.Server
	embeds     atomic.Int32
	generates  atomic.Int32
	lastPrompt atomic.Value
}

func newFakeOllama(t *testing.T, dims int) *fakeOllama {
	t.Helper()
	f := &fakeOllama{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, _ *http.Request) {
		f.embeds.Add(1)
		v := make([]float32, dims)
		v[0] = 1
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": v})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		f.generates.Add(1)
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.lastPrompt.Store(req.Prompt)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "Paris.", "done": true})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func ollamaConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Embedding.Provider = domain.AIProviderOllama
	cfg.Embedding.Model = "nomic-embed-text"
	cfg.Embedding.BaseURL = url
	cfg.Embedding.Dimensions = 4
	cfg.LLM.Provider = domain.AIProviderOllama
	cfg.LLM.Model = "llama3.2"
	cfg.LLM.BaseURL = url
	cfg.Store.Driver = config.StoreMemory
	cfg.Cache.Driver = config.CacheMemory
	return cfg
}

func TestNew_AskEndToEnd(t *testing.T) {
	srv := newFakeOllama(t, 4)
	ctx := context.Background()

	rt, err := New(ctx, ollamaConfig(srv.URL), WithValidation())
	require.NoError(t, err)
	defer rt.Close()

	answer, err := rt.Question.Ask(ctx, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
	assert.Contains(t, srv.lastPrompt.Load(), "(no context)")

	// second ask is served from the memory cache
	_, err = rt.Question.Ask(ctx, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.embeds.Load())
	assert.Equal(t, int32(2), srv.generates.Load())

	assert.NoError(t, rt.Healthy(ctx))
}

func TestNew_ValidationFailsOnUnreachableProvider(t *testing.T) {
	srv := newFakeOllama(t, 4)
	cfg := ollamaConfig(srv.URL)
	srv.Close()

	_, err := New(context.Background(), cfg, WithValidation())

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestNew_WithoutValidationDoesNotCallProviders(t *testing.T) {
	srv := newFakeOllama(t, 4)
	cfg := ollamaConfig(srv.URL)
	srv.Close()

	rt, err := New(context.Background(), cfg)

	require.NoError(t, err)
	assert.NoError(t, rt.Close())
}

func TestNew_UnsupportedEmbeddingProvider(t *testing.T) {
	cfg := ollamaConfig("http://unused")
	cfg.Embedding.Provider = domain.AIProviderAnthropic
	cfg.Embedding.APIKey = "k"

	_, err := New(context.Background(), cfg)

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := NewStore(ctx, config.StoreConfig{Driver: config.StoreMemory}, 4)
		require.NoError(t, err)
		assert.IsType(t, &memstore.VectorStore{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.db")
		s, err := NewStore(ctx, config.StoreConfig{Driver: config.StoreSQLite, Path: path}, 4)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &sqlite.Store{}, s)
	})

	t.Run("postgres without url", func(t *testing.T) {
		_, err := NewStore(ctx, config.StoreConfig{Driver: config.StorePostgres}, 4)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewStore(ctx, config.StoreConfig{Driver: "mongo"}, 4)
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := NewCache(ctx, config.CacheConfig{Driver: config.CacheRedis, RedisURL: "redis://" + mr.Addr()})
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &rediscache.Cache{}, c)
	})

	t.Run("redis unreachable is not fatal", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		c, err := NewCache(ctx, config.CacheConfig{Driver: config.CacheRedis, RedisURL: "redis://" + addr})
		require.NoError(t, err)
		_ = c.Close()
	})

	t.Run("memory", func(t *testing.T) {
		c, err := NewCache(ctx, config.CacheConfig{Driver: config.CacheMemory})
		require.NoError(t, err)
		assert.IsType(t, &memcache.Cache{}, c)
	})

	t.Run("none", func(t *testing.T) {
		c, err := NewCache(ctx, config.CacheConfig{Driver: config.CacheNone})
		require.NoError(t, err)
		assert.IsType(t, memcache.Disabled{}, c)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewCache(ctx, config.CacheConfig{Driver: "memcached"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
		assert.True(t, strings.Contains(err.Error(), "memcached"))
	})
}

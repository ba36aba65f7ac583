package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockExtractor implements driven.TextExtractor for testing.
type mockExtractor struct {
	text string
	err  error
}

func (m *mockExtractor) Extract(_ context.Context, _ []byte) (string, error) {
	return m.text, m.err
}

type embedCall struct {
	texts []string
	mode  domain.EmbeddingMode
}

// mockEmbedder implements driven.EmbeddingService for testing.
// Vectors count the letters a to z, which is enough to rank by topic.
type mockEmbedder struct {
	mu    sync.Mutex
	err   error
	short bool
	calls []embedCall
}

func letterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, embedCall{texts: append([]string(nil), texts...), mode: mode})
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	out := make([][]float32, 0, n)
	for _, t := range texts[:n] {
		out = append(out, letterVector(t))
	}
	return out, nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockEmbedder) Dimensions() int              { return 26 }
func (m *mockEmbedder) MaxBatchSize() int            { return 100 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockStore implements driven.VectorStore for testing.
type mockStore struct {
	inserted  [][]domain.Chunk
	searches  int
	lastK     int
	results   []string
	insertErr error
	searchErr error
}

func (m *mockStore) Insert(_ context.Context, chunks []domain.Chunk) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, chunks)
	return nil
}

func (m *mockStore) Search(_ context.Context, _ []float32, k int) ([]string, error) {
	m.searches++
	m.lastK = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockStore) Ping(_ context.Context) error { return nil }
func (m *mockStore) Close() error                 { return nil }

type cacheSet struct {
	key   string
	value domain.CachedRetrieval
	ttl   time.Duration
}

// mockCache implements driven.QueryCache for testing.
type mockCache struct {
	entries map[string]domain.CachedRetrieval
	getErr  error
	setErr  error
	gets    []string
	sets    []cacheSet
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]domain.CachedRetrieval)}
}

func (m *mockCache) Get(_ context.Context, key string) (domain.CachedRetrieval, bool, error) {
	m.gets = append(m.gets, key)
	if m.getErr != nil {
		return domain.CachedRetrieval{}, false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, value domain.CachedRetrieval, ttl time.Duration) error {
	m.sets = append(m.sets, cacheSet{key: key, value: value, ttl: ttl})
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = value
	return nil
}

func (m *mockCache) Close() error { return nil }

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	answer  string
	err     error
	prompts []string
	opts    []driven.GenerateOptions
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

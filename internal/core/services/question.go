package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
	"github.com/custodia-labs/docsai/internal/core/ports/driving"
	"github.com/custodia-labs/docsai/internal/logger"
	"github.com/custodia-labs/docsai/internal/metrics"
)

// Ensure QuestionService implements the interface.
var _ driving.QuestionService = (*QuestionService)(nil)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 4

	// DefaultCacheTTL is how long retrieval results stay cached.
	DefaultCacheTTL = time.Hour

	// NoContextPlaceholder stands in for the context block when nothing was retrieved.
	NoContextPlaceholder = "(no context)"

	instruction = "You answer strictly from the provided context. " +
		"If the answer isn't present, say you can't find it."
)

// QuestionConfig tunes the question pipeline. Zero values take the defaults.
type QuestionConfig struct {
	TopK     int
	CacheTTL time.Duration
	Generate driven.GenerateOptions
}

// QuestionService answers questions by retrieving context and then generating.
// It holds no per-question state; each call threads its own domain.PipelineState.
type QuestionService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	cache    driven.QueryCache
	llm      driven.LLMService
	cfg      QuestionConfig
	metrics  *metrics.Metrics
}

// NewQuestionService creates the pipeline. cache may be nil to disable caching.
func NewQuestionService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	cache driven.QueryCache,
	llm driven.LLMService,
	cfg QuestionConfig,
) *QuestionService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return &QuestionService{
		embedder: embedder,
		store:    store,
		cache:    cache,
		llm:      llm,
		cfg:      cfg,
	}
}

// SetMetrics enables instrumentation.
func (s *QuestionService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Ask answers question from retrieved context.
func (s *QuestionService) Ask(ctx context.Context, question string) (string, error) {
	state, err := s.Run(ctx, question)
	if err != nil {
		return "", err
	}
	return state.Answer, nil
}

// Run executes both stages and returns the final state.
// Blank questions are rejected before any collaborator is called.
func (s *QuestionService) Run(ctx context.Context, question string) (domain.PipelineState, error) {
	if strings.TrimSpace(question) == "" {
		return domain.PipelineState{}, domain.ErrEmptyQuestion
	}

	state, err := s.Retrieve(ctx, domain.NewPipelineState(question))
	if err == nil {
		state, err = s.Generate(ctx, state)
	}
	if err != nil {
		s.metrics.QuestionFailed()
		return domain.PipelineState{}, err
	}
	s.metrics.QuestionAnswered()
	return state, nil
}

// RetrieveContext runs only the retrieve stage and returns the docs.
func (s *QuestionService) RetrieveContext(ctx context.Context, question string) ([]string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	state, err := s.Retrieve(ctx, domain.NewPipelineState(question))
	if err != nil {
		return nil, err
	}
	return state.Docs, nil
}

// Retrieve moves state from Start to Retrieved. A cached entry for the trimmed
// question is used as is; otherwise the question is embedded, the store searched
// and the result cached.
func (s *QuestionService) Retrieve(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	if state.Stage != domain.StageStart {
		return state, fmt.Errorf("%w: retrieve from stage %q", domain.ErrInvalidInput, state.Stage)
	}
	key := strings.TrimSpace(state.Question)
	if key == "" {
		return state, domain.ErrEmptyQuestion
	}

	logger.Section("Retrieve")
	start := time.Now()
	defer s.metrics.Since(metrics.StageRetrieve, start)

	if docs, ok := s.cached(ctx, key); ok {
		logger.Debug("Cache hit: %d docs", len(docs))
		state.Docs = docs
		state.CacheHit = true
		state.Stage = domain.StageRetrieved
		return state, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{key}, domain.ModeQuery)
	if err != nil {
		return state, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return state, fmt.Errorf("%w: %d vectors for one question", domain.ErrDimensionMismatch, len(vectors))
	}

	docs, err := s.store.Search(ctx, vectors[0], s.cfg.TopK)
	if err != nil {
		return state, fmt.Errorf("search: %w", err)
	}
	if docs == nil {
		docs = []string{}
	}
	logger.Debug("Retrieved %d docs (k=%d)", len(docs), s.cfg.TopK)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, domain.CachedRetrieval{Docs: docs}, s.cfg.CacheTTL); err != nil {
			logger.Warn("Query cache write failed: %v", err)
			s.metrics.CacheWriteError()
		}
	}

	state.Docs = docs
	state.Stage = domain.StageRetrieved
	return state, nil
}

// cached looks key up. Read errors count as misses.
func (s *QuestionService) cached(ctx context.Context, key string) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	entry, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warn("Query cache read failed: %v", err)
		s.metrics.CacheError()
		return nil, false
	case !ok:
		s.metrics.CacheMiss()
		return nil, false
	}
	s.metrics.CacheHit()
	if entry.Docs == nil {
		return []string{}, true
	}
	return entry.Docs, true
}

// Generate moves state from Retrieved to Answered.
func (s *QuestionService) Generate(ctx context.Context, state domain.PipelineState) (domain.PipelineState, error) {
	if state.Stage != domain.StageRetrieved {
		return state, fmt.Errorf("%w: generate from stage %q", domain.ErrInvalidInput, state.Stage)
	}

	logger.Section("Generate")
	start := time.Now()
	defer s.metrics.Since(metrics.StageGenerate, start)

	prompt := BuildPrompt(state.Question, state.Docs)
	logger.Debug("Prompt: %d characters", len(prompt))

	answer, err := s.llm.Generate(ctx, prompt, s.cfg.Generate)
	if err != nil {
		return state, fmt.Errorf("generate: %w", err)
	}

	state.Answer = answer
	state.Stage = domain.StageAnswered
	return state, nil
}

// BuildPrompt assembles the generation prompt for question over docs.
func BuildPrompt(question string, docs []string) string {
	body := strings.Join(docs, "\n\n")
	if len(docs) == 0 {
		body = NoContextPlaceholder
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nContext:\n")
	b.WriteString(body)
	b.WriteString("\n\nQ: ")
	b.WriteString(question)
	b.WriteString("\nA:")
	return b.String()
}

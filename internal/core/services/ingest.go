package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsai/internal/chunker"
	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
	"github.com/custodia-labs/docsai/internal/core/ports/driving"
	"github.com/custodia-labs/docsai/internal/logger"
	"github.com/custodia-labs/docsai/internal/metrics"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService turns uploaded documents into stored, embedded chunks.
type IngestService struct {
	extractor driven.TextExtractor
	chunker   *chunker.Chunker
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	metrics   *metrics.Metrics
	newID     func() string
}

// NewIngestService creates an ingestion service. A nil chunker uses the defaults.
func NewIngestService(
	extractor driven.TextExtractor,
	ch *chunker.Chunker,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
) *IngestService {
	if ch == nil {
		ch = chunker.New()
	}
	return &IngestService{
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		newID:     uuid.NewString,
	}
}

// SetMetrics enables instrumentation.
func (s *IngestService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Ingest extracts, chunks, embeds and stores one document.
// A document with no usable text is stored as nothing and reported as zero chunks.
func (s *IngestService) Ingest(ctx context.Context, data []byte, source string) (int, error) {
	n, err := s.ingest(ctx, data, source)
	if err != nil {
		s.metrics.DocumentFailed()
		return 0, err
	}
	s.metrics.DocumentIngested(n)
	return n, nil
}

func (s *IngestService) ingest(ctx context.Context, data []byte, source string) (int, error) {
	logger.Section("Ingest")
	logger.Debug("Source: %q (%d bytes)", source, len(data))

	start := time.Now()
	text, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", source, err)
	}
	s.metrics.Since(metrics.StageExtract, start)

	texts := s.chunker.Chunks(text)
	logger.Debug("Extracted %d characters into %d chunks (size %d, overlap %d)",
		len(text), len(texts), s.chunker.ChunkSize(), s.chunker.Overlap())
	if len(texts) == 0 {
		logger.Info("No usable text in %s", source)
		return 0, nil
	}

	start = time.Now()
	vectors, err := s.embedder.EmbedBatch(ctx, texts, domain.ModeDocument)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	s.metrics.Since(metrics.StageEmbed, start)
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrDimensionMismatch, len(vectors), len(texts))
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			ID:        s.newID(),
			Text:      t,
			Source:    source,
			Embedding: vectors[i],
		}
	}

	start = time.Now()
	if err := s.store.Insert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}
	s.metrics.Since(metrics.StageInsert, start)

	logger.Info("Ingested %s: %d chunks", source, len(chunks))
	return len(chunks), nil
}

package driven

import (
	"context"

	"github.com/custodia-labs/docsai/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - Gemini (gemini-embedding-001, text-embedding-004)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// EmbedBatch returns one vector per text, in input order.
	// The mode tells the provider whether the texts are stored documents or a query.
	EmbedBatch(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This must match the VectorStore configuration.
	Dimensions() int

	// MaxBatchSize is the most texts one EmbedBatch call may carry.
	MaxBatchSize() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

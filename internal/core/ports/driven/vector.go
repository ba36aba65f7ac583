package driven

import (
	"context"

	"github.com/custodia-labs/docsai/internal/core/domain"
)

// VectorStore persists chunks and performs nearest-neighbour retrieval.
// The store only grows: there is no update or delete.
type VectorStore interface {
	// Insert persists all chunks atomically. Either every chunk commits or none does.
	Insert(ctx context.Context, chunks []domain.Chunk) error

	// Search returns the texts of the k chunks nearest to query by cosine
	// distance, nearest first. Fewer than k rows yields all of them.
	Search(ctx context.Context, query []float32, k int) ([]string, error)

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TextExtractor converts raw document bytes into plain text.
type TextExtractor interface {
	// Extract returns the document text with pages joined by newlines.
	Extract(ctx context.Context, data []byte) (string, error)
}

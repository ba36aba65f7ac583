// Package memory provides in-process implementations of the storage ports.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Contents are lost when the process exits.
type VectorStore struct {
	mu         sync.RWMutex
	dimensions int
	chunks     []domain.Chunk
	ids        map[string]struct{}
}

// NewVectorStore creates an empty store for vectors of the given length.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		dimensions: dimensions,
		ids:        make(map[string]struct{}),
	}
}

// Insert appends chunks. A duplicate ID or wrong dimension rejects the whole batch.
func (s *VectorStore) Insert(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if err := domain.CheckDimension(c.Embedding, s.dimensions); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		if _, dup := s.ids[c.ID]; dup {
			return fmt.Errorf("%w: duplicate chunk id %s", domain.ErrInvalidInput, c.ID)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate chunk id %s", domain.ErrInvalidInput, c.ID)
		}
		seen[c.ID] = struct{}{}
	}

	for _, c := range chunks {
		c.Embedding = slices.Clone(c.Embedding)
		s.chunks = append(s.chunks, c)
		s.ids[c.ID] = struct{}{}
	}
	return nil
}

// Search returns the texts of the k chunks nearest to query. Ties keep insertion order.
func (s *VectorStore) Search(_ context.Context, query []float32, k int) ([]string, error) {
	if err := domain.CheckDimension(query, s.dimensions); err != nil {
		return nil, err
	}

	s.mu.RLock()
	type scored struct {
		text     string
		distance float64
	}
	results := make([]scored, len(s.chunks))
	for i, c := range s.chunks {
		results[i] = scored{text: c.Text, distance: domain.CosineDistance(query, c.Embedding)}
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].distance < results[j].distance
	})

	n := max(0, min(k, len(results)))
	texts := make([]string, n)
	for i := range n {
		texts[i] = results[i].text
	}
	return texts, nil
}

// Len returns the number of stored chunks.
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Ping always succeeds.
func (s *VectorStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}

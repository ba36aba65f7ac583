package domain

import (
	"math"
	"strconv"
)

// Chunk is a contiguous window of an ingested document's extracted text.
// Chunks are created once during ingestion and never updated.
type Chunk struct {
	// ID is the globally unique identifier assigned at insert time.
	ID string

	// Text is the chunk content, non-empty after trimming.
	Text string

	// Source is the original document name.
	Source string

	// Embedding is the document-mode vector for Text.
	// Its length always equals the configured dimension.
	Embedding []float32
}

// EmbeddingMode tells the provider what the embedded text will be used for.
type EmbeddingMode string

const (
	// ModeDocument embeds text that will be stored and searched against.
	ModeDocument EmbeddingMode = "document"

	// ModeQuery embeds a question used to search stored documents.
	ModeQuery EmbeddingMode = "query"
)

// IsValid reports whether m is a known mode.
func (m EmbeddingMode) IsValid() bool {
	return m == ModeDocument || m == ModeQuery
}

// CachedRetrieval is the value stored in the query cache for one question.
type CachedRetrieval struct {
	Docs []string `json:"docs"`
}

// CheckDimension returns ErrDimensionMismatch when v does not have exactly want elements.
func CheckDimension(v []float32, want int) error {
	if len(v) != want {
		return &DimensionError{Want: want, Got: len(v)}
	}
	return nil
}

// DimensionError reports the lengths involved in a dimension mismatch.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return ErrDimensionMismatch.Error() + ": want " + strconv.Itoa(e.Want) + ", got " + strconv.Itoa(e.Got)
}

// Unwrap returns ErrDimensionMismatch.
func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// CosineDistance returns 1 - cos(a, b), matching pgvector's <=> operator.
// A zero vector has distance 1 to everything.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyQuestion indicates a question that is empty after trimming.
	ErrEmptyQuestion = fmt.Errorf("%w: question required", ErrInvalidInput)

	// ErrDocumentParse indicates the uploaded bytes could not be read as a document.
	ErrDocumentParse = errors.New("document parse error")

	// ErrDimensionMismatch indicates an embedding whose length differs from the
	// configured dimension. It is a configuration fault and is never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrTransientProvider indicates a rate limit or server-side failure from an
	// embedding or generation provider. Callers may retry.
	ErrTransientProvider = errors.New("transient provider error")

	// ErrPermanentProvider indicates a malformed request or authentication failure.
	// Retrying will not help.
	ErrPermanentProvider = errors.New("permanent provider error")

	// ErrStoreUnavailable indicates a connectivity or transaction failure in the vector store.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrLLMUnavailable indicates the generation provider is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding provider is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrUnsupportedType indicates an unknown provider or driver name.
	ErrUnsupportedType = errors.New("unsupported type")
)

// ProviderError describes a failed call to an external model provider.
// It unwraps to ErrTransientProvider or ErrPermanentProvider.
type ProviderError struct {
	// Provider is the adapter name, e.g. "gemini".
	Provider string

	// StatusCode is the HTTP status, or 0 when the request never got a response.
	StatusCode int

	// Message is the provider's error text.
	Message string

	// Transient reports whether the failure is worth retrying.
	Transient bool
}

// NewProviderError classifies a provider failure by HTTP status.
// 429 and 5xx are transient, as is status 0 (no response received).
func NewProviderError(provider string, status int, message string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Message:    message,
		Transient:  status == 0 || status == 429 || status >= 500,
	}
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match the transient/permanent sentinels.
func (e *ProviderError) Unwrap() error {
	if e.Transient {
		return ErrTransientProvider
	}
	return ErrPermanentProvider
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientProvider)
}

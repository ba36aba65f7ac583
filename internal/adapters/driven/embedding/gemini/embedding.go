// Package gemini provides an embedding service adapter using the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docsai/internal/adapters/driven/provider"
	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel      = "gemini-embedding-001"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 3072

	// MaxBatchSize is the most requests batchEmbedContents accepts in one call.
	MaxBatchSize = 100
)

const providerName = "gemini"

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL is the API base URL (default: generativelanguage v1beta).
	BaseURL string

	// Model is the embedding model to use (default: gemini-embedding-001).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is sent as outputDimensionality.
	Dimensions int
}

// EmbeddingService generates embeddings using the Gemini API.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type embedRequest struct {
	Model                string  `json:"model"`
	Content              content `json:"content"`
	TaskType             string  `json:"taskType,omitempty"`
	OutputDimensionality int     `json:"outputDimensionality,omitempty"`
}

type batchRequest struct {
	Requests []embedRequest `json:"requests"`
}

type batchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.Model = strings.TrimPrefix(cfg.Model, "models/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		if d, ok := domain.EmbeddingDimensions()[cfg.Model]; ok {
			cfg.Dimensions = d
		} else {
			cfg.Dimensions = DefaultDimensions
		}
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// taskType maps the embedding mode onto Gemini's retrieval task types.
func taskType(mode domain.EmbeddingMode) string {
	if mode == domain.ModeQuery {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}

// EmbedBatch embeds up to MaxBatchSize texts in one call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: gemini accepts at most %d texts per batch, got %d",
			domain.ErrInvalidInput, MaxBatchSize, len(texts))
	}

	modelRef := "models/" + s.model
	reqBody := batchRequest{Requests: make([]embedRequest, len(texts))}
	for i, text := range texts {
		reqBody.Requests[i] = embedRequest{
			Model:                modelRef,
			Content:              content{Parts: []part{{Text: text}}},
			TaskType:             taskType(mode),
			OutputDimensionality: s.dimensions,
		}
	}

	var resp batchResponse
	err := provider.DoJSON(ctx, s.client, provider.Request{
		Provider: providerName,
		URL:      s.baseURL + "/" + modelRef + ":batchEmbedContents",
		Headers:  map[string]string{"x-goog-api-key": s.apiKey},
		Body:     reqBody,
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// MaxBatchSize returns the batchEmbedContents cap.
func (s *EmbeddingService) MaxBatchSize() int {
	return MaxBatchSize
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by fetching the model description.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	err := provider.DoJSON(ctx, s.client, provider.Request{
		Provider: providerName,
		Method:   http.MethodGet,
		URL:      s.baseURL + "/models/" + s.model,
		Headers:  map[string]string{"x-goog-api-key": s.apiKey},
	}, nil)
	if err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

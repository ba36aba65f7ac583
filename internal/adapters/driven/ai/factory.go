// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docsai/internal/adapters/driven/embedding"
	geminiembed "github.com/custodia-labs/docsai/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/docsai/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docsai/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docsai/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/docsai/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/docsai/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docsai/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
	"github.com/custodia-labs/docsai/internal/metrics"
	"github.com/custodia-labs/docsai/internal/retry"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates the embedding client and checks
// the provider is reachable.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
	m *metrics.Metrics,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings, m)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService builds the provider adapter for settings and wraps
// it in the batching, retrying embedding client.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, m *metrics.Metrics) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider not configured", domain.ErrEmbeddingUnavailable)
	}

	var (
		provider driven.EmbeddingService
		err      error
	)
	switch settings.Provider {
	case domain.AIProviderGemini:
		provider, err = geminiembed.NewEmbeddingService(geminiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderOllama:
		provider = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderOpenAI:
		provider, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use gemini, ollama or openai",
			domain.ErrUnsupportedType)

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	rc := retry.DefaultConfig()
	if settings.MaxAttempts > 0 {
		rc.MaxAttempts = settings.MaxAttempts
	}
	if settings.BaseDelay > 0 {
		rc.InitialDelay = settings.BaseDelay
	}
	if settings.MaxDelay > 0 {
		rc.MaxDelay = settings.MaxDelay
	}
	if rc.MaxDelay < rc.InitialDelay {
		rc.MaxDelay = rc.InitialDelay
	}

	return embedding.NewClient(provider, embedding.Config{
		BatchSize:         settings.BatchSize,
		Dimensions:        settings.Dimensions,
		Retry:             rc,
		RequestsPerSecond: settings.RequestsPerSecond,
		Metrics:           m,
	}), nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider not configured", domain.ErrLLMUnavailable)
	}

	var (
		svc driven.LLMService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderGemini:
		svc, err = geminillm.NewLLMService(geminillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderOllama:
		svc = ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderOpenAI:
		svc, err = openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderAnthropic:
		svc, err = anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

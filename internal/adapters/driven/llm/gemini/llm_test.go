package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.Error(t, err)

	svc, err := NewLLMService(LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
}

func TestGenerate(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "Q: capital?\nA:", req.Contents[0].Parts[0].Text)
		assert.Nil(t, req.GenerationConfig)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Paris"},{"text":"."}]}}]}`))
	})

	answer, err := svc.Generate(context.Background(), "Q: capital?\nA:", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
}

func TestGenerate_Options(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.GenerationConfig)
		assert.Equal(t, 64, req.GenerationConfig.MaxOutputTokens)
		require.NotNil(t, req.GenerationConfig.Temperature)
		assert.InDelta(t, 0.2, *req.GenerationConfig.Temperature, 1e-9)
		assert.Equal(t, []string{"\n\n"}, req.GenerationConfig.StopSequences)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{
		MaxTokens: 64, Temperature: 0.2, StopWords: []string{"\n\n"},
	})
	require.NoError(t, err)
}

func TestGenerate_NoCandidates(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	answer, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "", answer)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})

			require.Error(t, err)
			assert.Equal(t, tt.transient, domain.IsTransient(err))
		})
	}
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/models/gemini-1.5-flash", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	})
	assert.NoError(t, svc.Ping(context.Background()))
}

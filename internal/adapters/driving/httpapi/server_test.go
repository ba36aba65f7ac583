package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsai/internal/core/domain"
	"github.com/custodia-labs/docsai/internal/metrics"
)

type mockIngest struct {
	chunks int
	err    error
	data   []byte
	source string
}

func (m *mockIngest) Ingest(_ context.Context, data []byte, source string) (int, error) {
	m.data = data
	m.source = source
	return m.chunks, m.err
}

type mockQuestion struct {
	answer   string
	err      error
	question string
	calls    int
}

func (m *mockQuestion) Ask(_ context.Context, question string) (string, error) {
	m.calls++
	m.question = question
	return m.answer, m.err
}

func newTestServer(ing *mockIngest, q *mockQuestion) *Server {
	return New(Config{Ingest: ing, Question: q, Metrics: metrics.New()})
}

func uploadRequest(t *testing.T, field, filename string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUpload_OK(t *testing.T) {
	ing := &mockIngest{chunks: 3}
	srv := newTestServer(ing, &mockQuestion{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", "report.PDF", []byte("%PDF-1.4")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"status": "ok", "chunks": float64(3)}, decode(t, rec))
	assert.Equal(t, "report.PDF", ing.source)
	assert.Equal(t, []byte("%PDF-1.4"), ing.data)
}

func TestUpload_ZeroChunksIsOK(t *testing.T) {
	srv := newTestServer(&mockIngest{}, &mockQuestion{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", "scan.pdf", []byte("x")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["chunks"])
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	ing := &mockIngest{chunks: 1}
	srv := newTestServer(ing, &mockQuestion{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", "notes.txt", []byte("hello")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only PDF supported", decode(t, rec)["detail"])
	assert.Nil(t, ing.data, "ingest must not run")
}

func TestUpload_MissingFile(t *testing.T) {
	srv := newTestServer(&mockIngest{}, &mockQuestion{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "document", "a.pdf", []byte("x")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file required", decode(t, rec)["detail"])
}

func TestUpload_TooLarge(t *testing.T) {
	srv := New(Config{Ingest: &mockIngest{}, Question: &mockQuestion{}, MaxUploadBytes: 64})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", "big.pdf", bytes.Repeat([]byte("a"), 4096)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUpload_IngestErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"parse", fmt.Errorf("extract a.pdf: %w", domain.ErrDocumentParse), http.StatusBadRequest},
		{"transient", domain.NewProviderError("gemini", 429, "slow down"), http.StatusServiceUnavailable},
		{"permanent", domain.NewProviderError("gemini", 401, "bad key"), http.StatusBadGateway},
		{"store", fmt.Errorf("insert chunks: %w", domain.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"dimension", domain.ErrDimensionMismatch, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockIngest{err: tt.err}, &mockQuestion{})

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, uploadRequest(t, "file", "a.pdf", []byte("x")))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.err.Error(), decode(t, rec)["detail"])
		})
	}
}

func TestAsk_OK(t *testing.T) {
	q := &mockQuestion{answer: "Paris."}
	srv := newTestServer(&mockIngest{}, q)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"What is the capital?"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"answer": "Paris."}, decode(t, rec))
	assert.Equal(t, "What is the capital?", q.question)
}

func TestAsk_BlankQuestion(t *testing.T) {
	for _, body := range []string{`{"question":""}`, `{"question":"   "}`, `{}`} {
		q := &mockQuestion{}
		srv := newTestServer(&mockIngest{}, q)

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "question required", decode(t, rec)["detail"])
		assert.Zero(t, q.calls, "pipeline must not run for %s", body)
	}
}

func TestAsk_InvalidJSON(t *testing.T) {
	srv := newTestServer(&mockIngest{}, &mockQuestion{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("question?")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", decode(t, rec)["detail"])
}

func TestAsk_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty question from service", domain.ErrEmptyQuestion, http.StatusBadRequest},
		{"transient", domain.NewProviderError("ollama", 503, "loading"), http.StatusServiceUnavailable},
		{"deadline", fmt.Errorf("generate: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockIngest{}, &mockQuestion{err: tt.err})

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"q"}`)))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&mockIngest{}, &mockQuestion{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ask", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := newTestServer(&mockIngest{}, &mockQuestion{})

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	})

	t.Run("store down", func(t *testing.T) {
		srv := New(Config{
			Ingest:   &mockIngest{},
			Question: &mockQuestion{},
			Health:   func(context.Context) error { return domain.ErrStoreUnavailable },
		})

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, false, decode(t, rec)["ok"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.QuestionAnswered()
	srv := New(Config{Ingest: &mockIngest{}, Question: &mockQuestion{}, Metrics: m})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `docsai_rag_questions_total{status="answered"} 1`)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(&mockIngest{}, &mockQuestion{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()
	cancel()

	assert.NoError(t, <-done)
}

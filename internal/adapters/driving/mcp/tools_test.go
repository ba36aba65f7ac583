package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsai/internal/core/domain"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the answer", func(t *testing.T) {
		question := &mockQuestionService{answer: "Paris."}
		server, err := NewServer(&Ports{Question: question})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "What is the capital of France?"})

		require.NoError(t, err)
		assert.Equal(t, "Paris.", output.Answer)
		assert.Equal(t, []string{"What is the capital of France?"}, question.questions)
	})

	t.Run("empty answer is not an error", func(t *testing.T) {
		server, err := NewServer(&Ports{Question: &mockQuestionService{}})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "q"})

		require.NoError(t, err)
		assert.Empty(t, output.Answer)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Question: &mockQuestionService{err: domain.ErrEmptyQuestion}})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: " "})

		assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	})
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "france.PDF")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0600))

	t.Run("ingests the file", func(t *testing.T) {
		ingest := &mockIngestService{chunks: 3}
		server, err := NewServer(&Ports{Question: &mockQuestionService{}, Ingest: ingest})
		require.NoError(t, err)

		_, output, err := server.handleIngest(ctx, nil, IngestInput{Path: pdfPath})

		require.NoError(t, err)
		assert.Equal(t, IngestOutput{Status: "ok", Chunks: 3}, output)
		assert.Equal(t, []string{"france.PDF"}, ingest.sources)
		assert.Equal(t, []int{13}, ingest.sizes)
	})

	t.Run("uses the given name", func(t *testing.T) {
		ingest := &mockIngestService{}
		server, err := NewServer(&Ports{Question: &mockQuestionService{}, Ingest: ingest})
		require.NoError(t, err)

		_, _, err = server.handleIngest(ctx, nil, IngestInput{Path: pdfPath, Name: "handbook.pdf"})

		require.NoError(t, err)
		assert.Equal(t, []string{"handbook.pdf"}, ingest.sources)
	})

	t.Run("rejects other extensions", func(t *testing.T) {
		ingest := &mockIngestService{}
		server, err := NewServer(&Ports{Question: &mockQuestionService{}, Ingest: ingest})
		require.NoError(t, err)

		_, _, err = server.handleIngest(ctx, nil, IngestInput{Path: filepath.Join(dir, "notes.txt")})

		assert.ErrorIs(t, err, ErrNotPDF)
		assert.Empty(t, ingest.sources)
	})

	t.Run("missing file", func(t *testing.T) {
		server, err := NewServer(&Ports{Question: &mockQuestionService{}, Ingest: &mockIngestService{}})
		require.NoError(t, err)

		_, _, err = server.handleIngest(ctx, nil, IngestInput{Path: filepath.Join(dir, "absent.pdf")})

		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("ingest failure", func(t *testing.T) {
		ingest := &mockIngestService{err: errors.New("store down")}
		server, err := NewServer(&Ports{Question: &mockQuestionService{}, Ingest: ingest})
		require.NoError(t, err)

		_, _, err = server.handleIngest(ctx, nil, IngestInput{Path: pdfPath})

		assert.EqualError(t, err, "store down")
	})
}

package mcp

import (
	"context"
)

// mockQuestionService is a mock implementation of driving.QuestionService.
type mockQuestionService struct {
	answer    string
	err       error
	questions []string
}

func (m *mockQuestionService) Ask(_ context.Context, question string) (string, error) {
	m.questions = append(m.questions, question)
	return m.answer, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	chunks  int
	err     error
	sources []string
	sizes   []int
}

func (m *mockIngestService) Ingest(_ context.Context, data []byte, source string) (int, error) {
	m.sources = append(m.sources, source)
	m.sizes = append(m.sizes, len(data))
	return m.chunks, m.err
}

// mockContextRetriever is a mock implementation of ContextRetriever.
type mockContextRetriever struct {
	docs      []string
	err       error
	questions []string
}

func (m *mockContextRetriever) RetrieveContext(_ context.Context, question string) ([]string, error) {
	m.questions = append(m.questions, question)
	return m.docs, m.err
}

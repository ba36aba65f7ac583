package mcp

import (
	"context"

	"github.com/custodia-labs/docsai/internal/core/ports/driving"
)

// ContextRetriever returns the chunks a question would be answered from.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, question string) ([]string, error)
}

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Question answers questions.
	Question driving.QuestionService

	// Ingest adds documents. Without it the ingest_pdf tool is not offered.
	Ingest driving.IngestService

	// Context exposes retrieved chunks as resources. Optional.
	Context ContextRetriever
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Question == nil {
		return ErrMissingQuestionService
	}
	return nil
}

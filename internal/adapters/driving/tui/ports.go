// Package tui provides an interactive terminal chat over ingested documents.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docsai/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Question answers questions. Required.
	Question driving.QuestionService

	// Ingest enables the /ingest command. Optional.
	Ingest driving.IngestService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Question == nil {
		return ErrMissingQuestionService
	}
	return nil
}

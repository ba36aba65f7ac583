// Package mcp provides an MCP (Model Context Protocol) server adapter for docsai.
// It lets AI assistants ask questions about ingested PDFs and add new ones.
package mcp

import "errors"

// ErrMissingQuestionService is returned when the question service is not provided.
var ErrMissingQuestionService = errors.New("mcp: question service is required")

// ErrNotPDF is returned when ingest_pdf is given a file without a .pdf extension.
var ErrNotPDF = errors.New("mcp: only PDF supported")

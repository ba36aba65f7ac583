package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the ingested documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer string `json:"answer"`
}

// IngestInput is the input schema for the ingest_pdf tool.
type IngestInput struct {
	Path string `json:"path" jsonschema:"absolute path of a PDF file on the server's filesystem"`
	Name string `json:"name,omitempty" jsonschema:"source label to store with the chunks (default: file name)"`
}

// IngestOutput is the output schema for the ingest_pdf tool.
type IngestOutput struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question strictly from the ingested PDF documents",
	}, s.handleAsk)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_pdf",
			Description: "Extract, chunk and embed a local PDF so later questions can use it",
		}, s.handleIngest)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Question.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: answer}, nil
}

// handleIngest handles the ingest_pdf tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	name := input.Name
	if name == "" {
		name = filepath.Base(input.Path)
	}
	if !strings.EqualFold(filepath.Ext(input.Path), ".pdf") {
		return nil, IngestOutput{}, ErrNotPDF
	}

	data, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}

	n, err := s.ports.Ingest.Ingest(ctx, data, name)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{Status: "ok", Chunks: n}, nil
}

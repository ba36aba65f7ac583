package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for docsai resources.
	uriScheme = "docsai://"

	contextPrefix = uriScheme + "context/"
)

// registerResources registers resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Context == nil {
		return
	}

	// Template for the chunks retrieved for a question.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: contextPrefix + "{question}",
		Name:        "question-context",
		Description: "Document chunks that would be used to answer a question, nearest first",
		MIMEType:    "application/json",
	}, s.handleContextResource)
}

// handleContextResource returns the retrieved chunks for the question in the URI.
func (s *Server) handleContextResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	question := extractQuestion(req.Params.URI)
	if strings.TrimSpace(question) == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docs, err := s.ports.Context.RetrieveContext(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	if docs == nil {
		docs = []string{}
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling context: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractQuestion extracts the question from docsai://context/{question}.
// The question is path-escaped in the URI.
func extractQuestion(uri string) string {
	if !strings.HasPrefix(uri, contextPrefix) {
		return ""
	}
	q, err := url.PathUnescape(strings.TrimPrefix(uri, contextPrefix))
	if err != nil {
		return ""
	}
	return q
}

// Package provider holds the JSON-over-HTTP plumbing shared by the embedding
// and generation adapters, and maps HTTP failures onto domain.ProviderError.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/docsai/internal/core/domain"
)

// maxErrorBody caps how much of an error response is kept in the message.
const maxErrorBody = 2048

// Request describes one JSON call.
type Request struct {
	Provider string
	Method   string
	URL      string
	Headers  map[string]string
	Body     any
}

// DoJSON sends req, decodes a 200 response into out and classifies everything
// else. Transport failures are transient unless the context ended.
func DoJSON(ctx context.Context, client *http.Client, req Request, out any) error {
	var body io.Reader = http.NoBody
	if req.Body != nil {
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", req.Provider, ctxErr)
		}
		return domain.NewProviderError(req.Provider, 0, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", req.Provider, ctxErr)
		}
		return domain.NewProviderError(req.Provider, 0, "read response: "+err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return domain.NewProviderError(req.Provider, resp.StatusCode, errorMessage(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.NewProviderError(req.Provider, resp.StatusCode, "decode response: "+err.Error())
	}
	return nil
}

// errorMessage pulls a message out of the common {"error":{"message":...}}
// and {"error":"..."} shapes, falling back to the raw body.
func errorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	return 0
}

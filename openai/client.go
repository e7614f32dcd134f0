package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://api.openai.com/v1"

// client wraps the HTTP client for chat completion calls against either
// api.openai.com or an Azure OpenAI resource.
type client struct {
	apiKey     string
	baseURL    string
	azure      bool
	apiVersion string
	deployment string
	httpClient *http.Client
}

// endpoint returns the chat completions URL for model.
func (c *client) endpoint(model string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if !c.azure {
		return base + "/chat/completions"
	}
	deployment := c.deployment
	if deployment == "" {
		deployment = model
	}
	q := url.Values{"api-version": {c.apiVersion}}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s",
		base, url.PathEscape(deployment), q.Encode())
}

// chatCompletion sends a chat completion request.
func (c *client) chatCompletion(ctx context.Context, req *chatCompletionRequest) (*chatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.Model), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.azure {
		httpReq.Header.Set("api-key", c.apiKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, parseError(httpResp.StatusCode, respBody)
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &resp, nil
}

// parseError parses an error response from the API.
func parseError(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return &APIError{
			StatusCode: statusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    errResp.Error.Message,
		Type:       errResp.Error.Type,
		Code:       errorCode(errResp.Error.Code),
	}
}

func errorCode(raw json.RawMessage) string {
	s := string(raw)
	if s == "" || s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}

// APIError represents an error from the chat completions API.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0:
		return "openai: " + e.Message
	case e.Type != "":
		return fmt.Sprintf("openai API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
	default:
		return fmt.Sprintf("openai API error (status %d): %s", e.StatusCode, e.Message)
	}
}

// Package algolia is a small REST client for the Algolia search API and a
// batched record uploader built on it.
package algolia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Index describes one index as returned by the list endpoint.
type Index struct {
	Name      string `json:"name"`
	Entries   int    `json:"entries"`
	DataSize  int64  `json:"dataSize,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Client calls the Algolia REST API of one application.
type Client struct {
	appID      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the application's default host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for application appID authenticated with an
// admin apiKey.
func NewClient(appID, apiKey string, opts ...Option) (*Client, error) {
	if appID == "" {
		return nil, errors.New("algolia: application id is required")
	}
	if apiKey == "" {
		return nil, errors.New("algolia: API key is required")
	}
	c := &Client{
		appID:      appID,
		apiKey:     apiKey,
		baseURL:    fmt.Sprintf("https://%s-dsn.algolia.net", appID),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AppID returns the application id.
func (c *Client) AppID() string {
	return c.appID
}

func (c *Client) indexURL(index string, suffix ...string) string {
	parts := append([]string{strings.TrimRight(c.baseURL, "/"), "1", "indexes", url.PathEscape(index)}, suffix...)
	return strings.Join(parts, "/")
}

// do sends a request and returns the status code and body of a 200 or 201
// answer. Other statuses yield an *APIError.
func (c *Client) do(ctx context.Context, method, target string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Algolia-API-Key", c.apiKey)
	req.Header.Set("X-Algolia-Application-Id", c.appID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return resp.StatusCode, respBody, parseError(resp.StatusCode, respBody)
	}
	return resp.StatusCode, respBody, nil
}

// ListIndices returns every index of the application.
func (c *Client) ListIndices(ctx context.Context) ([]Index, error) {
	_, body, err := c.do(ctx, http.MethodGet, strings.TrimRight(c.baseURL, "/")+"/1/indexes", nil)
	if err != nil {
		return nil, fmt.Errorf("listing indices: %w", err)
	}
	var out struct {
		Items []Index `json:"items"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parsing indices: %w", err)
	}
	return out.Items, nil
}

// Count returns the number of records in index, or -1 when the index does
// not exist.
func (c *Client) Count(ctx context.Context, index string) (int, error) {
	_, body, err := c.do(ctx, http.MethodPost, c.indexURL(index, "query"), map[string]any{
		"query":       "",
		"hitsPerPage": 0,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return -1, nil
		}
		return 0, fmt.Errorf("counting records of %s: %w", index, err)
	}
	var out struct {
		NbHits int `json:"nbHits"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("parsing search response: %w", err)
	}
	return out.NbHits, nil
}

// Clear removes every record of index.
func (c *Client) Clear(ctx context.Context, index string) error {
	if _, _, err := c.do(ctx, http.MethodPost, c.indexURL(index, "clear"), nil); err != nil {
		return fmt.Errorf("clearing %s: %w", index, err)
	}
	return nil
}

// BatchRequest is one write of a batch.
type BatchRequest struct {
	Action string         `json:"action"`
	Body   map[string]any `json:"body"`
}

// ActionAddObject adds or replaces a record.
const ActionAddObject = "addObject"

// BatchResponse is the answer to a batch write.
type BatchResponse struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs"`
}

// Batch sends writes to index in one request.
func (c *Client) Batch(ctx context.Context, index string, requests []BatchRequest) (*BatchResponse, error) {
	_, body, err := c.do(ctx, http.MethodPost, c.indexURL(index, "batch"), map[string]any{
		"requests": requests,
	})
	if err != nil {
		return nil, fmt.Errorf("batch write to %s: %w", index, err)
	}
	var out BatchResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("parsing batch response: %w", err)
		}
	}
	return &out, nil
}

func parseError(statusCode int, body []byte) error {
	var errResp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		return &APIError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: statusCode, Message: errResp.Message}
}

// APIError is a non-success answer of the Algolia API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("algolia: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("algolia: HTTP %d: %s", e.StatusCode, e.Message)
}

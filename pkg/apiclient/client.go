// Package apiclient provides a REST client for the Deuce API.
package apiclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Header names used by the wire protocol.
const (
	headerProjectID     = "X-Project-Id"
	headerBlockID       = "X-Block-ID"
	headerStorageID     = "X-Storage-ID"
	headerRefCount      = "X-Block-Reference-Count"
	headerRefModified   = "X-Ref-Modified"
	headerBlockOrphaned = "X-Block-Orphaned"
	headerBlockSize     = "X-Block-Size"
	headerFileLength    = "X-File-Length"
	headerNextBatch     = "X-Next-Batch"
)

// Client is the Deuce API client. Every request carries the project ID the
// client was created with; all methods are safe for concurrent use.
type Client struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
	token      string
}

// New creates a client for the given endpoint, scoped to one project.
func New(baseURL, projectID string) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		projectID: projectID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a new client with the given bearer token.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		baseURL:    c.baseURL,
		projectID:  c.projectID,
		httpClient: c.httpClient,
		token:      token,
	}
}

// SetToken sets the bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// do performs an HTTP request and returns the raw response. Most of the API
// speaks through headers as much as bodies, so callers get the full response
// and own resp.Body. Responses with status >= 400 are decoded into an
// *APIError and closed here.
//
// headers are extra request headers as alternating name, value pairs.
func (c *Client) do(method, path, contentType string, body io.Reader, headers ...string) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerProjectID, c.projectID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeAPIError(resp)
	}

	return resp, nil
}

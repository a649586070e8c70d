package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is an error response from the API.
type APIError struct {
	Status      int    `json:"-"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Title, e.Status, e.Description)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Description)
}

// IsAuthError returns true if the request was rejected by authentication.
func (e *APIError) IsAuthError() bool {
	return e.Status == http.StatusUnauthorized
}

// IsNotFound returns true if the resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsConflict returns true if the request was refused because references to
// the resource still exist.
func (e *APIError) IsConflict() bool {
	return e.Status == http.StatusConflict
}

// IsPreconditionFailed returns true for hash mismatches, length mismatches
// and reads of unfinalized files.
func (e *APIError) IsPreconditionFailed() bool {
	return e.Status == http.StatusPreconditionFailed
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// decodeAPIError turns a non-2xx response into an *APIError. HEAD responses
// carry no body, so the status text stands in for a missing description.
func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Description = strings.TrimSpace(string(body))
	}
	if apiErr.Description == "" {
		apiErr.Description = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

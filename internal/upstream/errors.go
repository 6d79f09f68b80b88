package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a non-2xx response from the upstream API. It keeps
// the status code so callers can distinguish absence (404) from failure.
type APIError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// Status is the HTTP status line (e.g., "404 Not Found")
	Status string

	// Endpoint is the request path that produced the error
	Endpoint string

	// Body is a truncated copy of the response body, for diagnostics
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream %s: %s", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("upstream %s: %s: %s", e.Endpoint, e.Status, e.Body)
}

// IsNotFound reports whether err is an upstream 404. Callers treat a 404
// on a by-id or by-slug lookup as expected absence rather than a failure.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

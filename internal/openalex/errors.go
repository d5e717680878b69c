package openalex

import (
	"errors"
	"fmt"
)

// Common errors returned by the OpenAlex client.
var (
	// ErrNotFound indicates the resource was not found.
	ErrNotFound = errors.New("not found in OpenAlex")

	// ErrRateLimited indicates the rate limit has been exceeded.
	// Callers may retry after backing off.
	ErrRateLimited = errors.New("OpenAlex rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with OpenAlex")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from OpenAlex")
)

// APIError represents an error response from the OpenAlex API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenAlex API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRetryable returns true if the error is transient (rate limit or network)
// and the operation may succeed on retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetworkError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

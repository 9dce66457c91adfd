// Package kanshi provides a Go client for the kanshi adjudication API.
package kanshi

import (
	"errors"
	"fmt"
)

// Error represents an error from the kanshi API with the HTTP status code
// and the server's error message.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("kanshi: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	return hasStatus(err, 404)
}

// IsUnauthorized returns true if the error is a 401.
func IsUnauthorized(err error) bool {
	return hasStatus(err, 401)
}

// IsBadRequest returns true if the error is a 400, e.g. a malformed
// customer ID.
func IsBadRequest(err error) bool {
	return hasStatus(err, 400)
}

// IsRateLimited returns true if the error is a 429 (Too Many Requests).
func IsRateLimited(err error) bool {
	return hasStatus(err, 429)
}

// IsUpstream returns true if the server could not reach the customer
// record API (502).
func IsUpstream(err error) bool {
	return hasStatus(err, 502)
}

func hasStatus(err error, status int) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == status
	}
	return false
}

// ErrIncomplete is returned by Stream.Err when the server closed the stream
// before a run_finished or error event.
var ErrIncomplete = errors.New("kanshi: stream ended before the run finished")

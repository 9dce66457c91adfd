// Package model holds the JSON shapes of kanshi's HTTP API.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// MaxCustomerIDLen bounds identifiers accepted on the path before they are
// forwarded to the record API or the engine prompt.
const MaxCustomerIDLen = 128

// ValidateCustomerID rejects identifiers that are empty, oversized, or carry
// whitespace or control characters.
func ValidateCustomerID(id string) error {
	if id == "" {
		return fmt.Errorf("customer_id is required")
	}
	if len(id) > MaxCustomerIDLen {
		return fmt.Errorf("customer_id exceeds maximum length of %d characters", MaxCustomerIDLen)
	}
	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return fmt.Errorf("customer_id must not contain whitespace or control characters")
	}
	return nil
}

// APIResponse is the standard success response envelope.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the envelope for list endpoints.
type ListResponse struct {
	Data  any          `json:"data"`
	Total int          `json:"total"`
	Meta  ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Uptime      int64  `json:"uptime_seconds"`
	Credentials int    `json:"credentials"`

	// Degraded is set when no engine credential is configured and runs use
	// the sentinel key.
	Degraded bool `json:"degraded"`
}

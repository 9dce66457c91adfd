// Package ratelimit throttles adjudication requests per client.
//
// Every adjudication holds a streaming connection to the reasoning engine
// and spends engine credit, so /adjudicate is limited per client IP with an
// in-memory token bucket (MemoryLimiter). The Limiter interface is the
// contract the HTTP middleware depends on.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if the request should proceed. Returning an error
	// signals a limiter malfunction; the middleware fails open on errors.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }

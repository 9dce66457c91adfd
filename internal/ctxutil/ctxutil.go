// Package ctxutil provides shared context key accessors.
//
// server populates the request ID and the authenticated principal; mcp reads
// them when logging profile lookups. Both import ctxutil instead of each
// other.
package ctxutil

import (
	"context"

	"github.com/ashita-ai/kanshi/internal/auth"
)

type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyPrincipal contextKey = "principal"
)

// WithRequestID returns a new context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(keyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithPrincipal returns a new context carrying the authenticated caller.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, keyPrincipal, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(keyPrincipal).(auth.Principal)
	return p, ok
}

// Subject returns the principal's subject, or "" for anonymous requests.
func Subject(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.Subject
	}
	return ""
}

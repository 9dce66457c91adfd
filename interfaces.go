package kanshi

import (
	"context"
	"net/http"
)

// EventHook receives a notification after every adjudication stream ends.
// Multiple hooks may be registered via multiple WithEventHook calls.
// Hook methods run in a goroutine with a 10 second deadline; they must not
// block indefinitely. Failures are logged and never reach the stream.
type EventHook interface {
	OnRunFinished(ctx context.Context, summary RunSummary) error
}

// RouteRegistrar registers additional routes on the shared HTTP mux.
// Extra routes share the auth chain and OTEL instrumentation with the
// built-in routes. Called once during New after the built-in routes.
type RouteRegistrar func(mux *http.ServeMux)

// Middleware wraps the root HTTP handler.
// Applied outermost (before routing), so it sees all requests including /health.
// Multiple middlewares are applied in registration order (first-registered = outermost).
type Middleware func(http.Handler) http.Handler

package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"
)

// KeyFunc extracts the rate limit key from a request. Returning an empty
// string skips rate limiting for the request.
type KeyFunc func(r *http.Request) string

// DenyFunc writes the response for a throttled request.
type DenyFunc func(w http.ResponseWriter, r *http.Request)

// retryAfterer is implemented by limiters that can estimate a wait.
type retryAfterer interface {
	RetryAfter(key string) time.Duration
}

// Middleware enforces limiter on every request keyed by keyFunc. Throttled
// requests get a Retry-After header and are handed to deny. Limiter errors
// are logged and the request is let through.
func Middleware(limiter Limiter, keyFunc KeyFunc, deny DenyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if limiter == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, err := limiter.Allow(r.Context(), key)
			if err != nil {
				if logger != nil {
					logger.Warn("ratelimit: limiter error, allowing request", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				retry := 1
				if ra, isRA := limiter.(retryAfterer); isRA {
					retry = max(1, int(math.Ceil(ra.RetryAfter(key).Seconds())))
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPKeyFunc keys requests by the client IP in RemoteAddr. X-Forwarded-For
// is not trusted; any client can set it.
func IPKeyFunc(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return "ip:" + host
}

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/kanshi/internal/auth"
	"github.com/ashita-ai/kanshi/internal/credential"
	"github.com/ashita-ai/kanshi/internal/model"
	"github.com/ashita-ai/kanshi/internal/ratelimit"
)

// Server is the kanshi HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger

	// cancelStreams cancels every request context once Shutdown's drain
	// deadline passes.
	cancelStreams context.CancelFunc
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Authenticator, Limiter, MCPServer and the
// extension points.
type ServerConfig struct {
	// Required dependencies.
	Customers   CustomerSource
	Adjudicator Adjudicator
	Pool        *credential.Pool
	Logger      *slog.Logger

	// Optional dependencies (nil = disabled).
	Authenticator *auth.Authenticator
	Limiter       ratelimit.Limiter
	MCPServer     *mcpserver.MCPServer

	// Extension points (see the root kanshi package).
	ExtraRoutes []func(*http.ServeMux)
	Middlewares []func(http.Handler) http.Handler
	RunHooks    []RunHook

	// HTTP server settings.
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	Version            string
	CORSAllowedOrigins []string
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := NewHandlers(HandlersDeps{
		Customers:   cfg.Customers,
		Adjudicator: cfg.Adjudicator,
		Pool:        cfg.Pool,
		Logger:      cfg.Logger,
		Version:     cfg.Version,
		RunHooks:    cfg.RunHooks,
	})

	// Each stream holds an engine credential for minutes, so only stream
	// starts are throttled.
	adjudicateRL := ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc, denyRateLimited, cfg.Logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /customers", h.HandleListCustomers)
	mux.HandleFunc("GET /customers/{customer_id}", h.HandleGetCustomer)
	mux.Handle("GET /adjudicate/{customer_id}", adjudicateRL(http.HandlerFunc(h.HandleAdjudicate)))

	// MCP StreamableHTTP transport for external agents.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Extra routes share the auth chain and instrumentation.
	for _, register := range cfg.ExtraRoutes {
		register(mux)
	}

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → CORS → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.Authenticator, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = corsMiddleware(cfg.CORSAllowedOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	// Registered middlewares wrap everything; the first registered is outermost.
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		handler = cfg.Middlewares[i](handler)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			BaseContext:  func(net.Listener) context.Context { return baseCtx },
		},
		handler:       handler,
		logger:        cfg.Logger,
		cancelStreams: cancel,
	}
}

func denyRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusTooManyRequests, model.ErrCodeRateLimited, "rate limit exceeded")
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done. Streams still open at that point are canceled; their
// sessions close and release their engine connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Warn("http drain deadline passed, canceling open streams", "error", err)
	}
	s.cancelStreams()
	return err
}

// Package kanshi is the public API for embedding the kanshi adjudication
// server.
//
// Integrators import this package to construct and extend the server without
// forking it:
//
//	app, err := kanshi.New(
//	    kanshi.WithVersion(version),
//	    kanshi.WithLogger(logger),
//	    kanshi.WithEventHook(caseManagementHook{}),
//	    kanshi.WithExtraRoutes(myRoutes),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph is one-way: kanshi (root) imports internal/*, but
// internal/* never imports kanshi (root). Public types (RunSummary) are
// standalone structs; the hook adapter lives here because this is the only
// file that sees both sides of the boundary.
package kanshi

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ashita-ai/kanshi/internal/adjudication"
	"github.com/ashita-ai/kanshi/internal/auth"
	"github.com/ashita-ai/kanshi/internal/config"
	"github.com/ashita-ai/kanshi/internal/credential"
	"github.com/ashita-ai/kanshi/internal/customer"
	"github.com/ashita-ai/kanshi/internal/engine"
	"github.com/ashita-ai/kanshi/internal/mcp"
	"github.com/ashita-ai/kanshi/internal/ratelimit"
	"github.com/ashita-ai/kanshi/internal/server"
	"github.com/ashita-ai/kanshi/internal/telemetry"
)

// App is the kanshi server lifecycle. Construct with New(), run with Run().
type App struct {
	cfg          config.Config
	srv          *server.Server
	limiter      ratelimit.Limiter
	otelShutdown func(context.Context) error
	logger       *slog.Logger
	version      string
}

// New loads configuration from the environment, wires every subsystem and
// returns a ready-to-run App. It does NOT accept HTTP connections; call Run.
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}

	logger.Info("kanshi starting", "version", version, "port", cfg.Port, "model", cfg.ModelID)

	otelShutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		Endpoint:       cfg.OTELEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Insecure:       cfg.OTELInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Engine credentials. An empty list degrades to the sentinel; the
	// service still starts and every run fails at the engine.
	pool := credential.New(cfg.EngineAPIKeys, logger)
	logger.Info("engine credentials loaded", "count", pool.Len(), "degraded", pool.Degraded())

	if cfg.RecordAPIKey == "" {
		logger.Warn("NESSIE_API_KEY is empty, record lookups will be rejected upstream")
	}
	var recordHTTP *http.Client
	if o.httpClient != nil {
		c := *o.httpClient
		c.Timeout = cfg.RecordTimeout
		recordHTTP = &c
	}
	records := customer.NewClient(cfg.RecordBaseURL, cfg.RecordAPIKey, cfg.RecordTimeout, recordHTTP)

	// One MCP server: its profile tool is both the engine's capability table
	// and the tool published at /mcp.
	mcpSrv := mcp.New(records, logger, version)

	adjudicator := adjudication.NewService(
		pool,
		engine.NewRunner(cfg.EngineURL, o.httpClient, logger),
		mcpSrv.Profiles().Tools(),
		adjudication.Config{
			Model:      cfg.ModelID,
			MCPServers: cfg.MCPServers,
			MaxSteps:   cfg.MaxSteps,
		},
		logger,
	)

	authn, err := newAuthenticator(cfg, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("auth: %w", err)
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	// Adapt public hooks, routes and middlewares to the server's types.
	var runHooks []server.RunHook
	for _, h := range o.eventHooks {
		runHooks = append(runHooks, &runHookAdapter{hook: h})
	}
	var extraRoutes []func(*http.ServeMux)
	for _, fn := range o.routeRegistrars {
		extraRoutes = append(extraRoutes, fn)
	}
	var middlewares []func(http.Handler) http.Handler
	for _, mw := range o.middlewares {
		middlewares = append(middlewares, mw)
	}

	srv := server.New(server.ServerConfig{
		Customers:          records,
		Adjudicator:        adjudicator,
		Pool:               pool,
		Logger:             logger,
		Authenticator:      authn,
		Limiter:            limiter,
		MCPServer:          mcpSrv.MCPServer(),
		ExtraRoutes:        extraRoutes,
		Middlewares:        middlewares,
		RunHooks:           runHooks,
		Port:               cfg.Port,
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		Version:            version,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	return &App{
		cfg:          cfg,
		srv:          srv,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Handler returns the root HTTP handler, for serving the App from a caller's
// own listener or from tests.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// server error occurs. On return, Shutdown has been called; callers should
// not call it again.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown drains the HTTP server for up to KANSHI_SHUTDOWN_TIMEOUT, cancels
// streams still open after that, then releases the rate limiter and the OTEL
// providers.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("kanshi shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownTimeout)
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}
	cancel()

	_ = a.limiter.Close()
	_ = a.otelShutdown(context.Background())

	a.logger.Info("kanshi stopped")
	return nil
}

// newAuthenticator builds the inbound authenticator. With no public key and
// no API key hashes configured, authentication is disabled.
func newAuthenticator(cfg config.Config, logger *slog.Logger) (*auth.Authenticator, error) {
	var pub ed25519.PublicKey
	if cfg.JWTPublicKeyPath != "" {
		k, err := auth.LoadPublicKey(cfg.JWTPublicKeyPath)
		if err != nil {
			return nil, err
		}
		pub = k
	}
	keys, err := auth.ParseKeySet(cfg.APIKeyHashes)
	if err != nil {
		return nil, err
	}

	authn := auth.NewAuthenticator(pub, keys)
	if authn.Enabled() {
		logger.Info("auth: enabled", "jwt", pub != nil, "api_keys", len(keys))
	} else {
		logger.Warn("auth: disabled (no KANSHI_JWT_PUBLIC_KEY or KANSHI_API_KEY_HASHES)")
	}
	return authn, nil
}

// runHookAdapter wraps a public EventHook into server.RunHook.
type runHookAdapter struct {
	hook EventHook
}

func (a *runHookAdapter) OnRunFinished(ctx context.Context, s server.RunSummary) error {
	return a.hook.OnRunFinished(ctx, RunSummary{
		SessionID:  s.SessionID,
		CustomerID: s.CustomerID,
		Subject:    s.Subject,
		Outcome:    Outcome(s.Outcome),
		Error:      s.Error,
		ToolCalls:  s.ToolCalls,
		Duration:   s.Duration,
	})
}

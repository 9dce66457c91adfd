// Package adjudication runs adverse-media investigations against the
// reasoning engine and translates their raw chunk streams into the outward
// event protocol.
package adjudication

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/kanshi/internal/credential"
	"github.com/ashita-ai/kanshi/internal/engine"
	"github.com/ashita-ai/kanshi/internal/telemetry"
)

// DefaultMaxSteps bounds model/tool round trips per run.
const DefaultMaxSteps = 10

// ErrMissingCustomerID is returned by Start for a blank identifier.
var ErrMissingCustomerID = errors.New("adjudication: customer id is required")

// Config holds the run parameters shared by every session.
type Config struct {
	Model      string
	MCPServers []string
	MaxSteps   int
	// Instructions defaults to SystemPrompt.
	Instructions string
}

// Service starts sessions. It is safe for concurrent use; sessions share
// only the credential pool.
type Service struct {
	pool   *credential.Pool
	engine engine.Engine
	tools  []mcpserver.ServerTool
	cfg    Config
	logger *slog.Logger

	tracer    trace.Tracer
	sessions  metric.Int64Counter
	toolCalls metric.Int64Counter
}

// NewService creates a Service. tools is the capability table registered
// with every run.
func NewService(pool *credential.Pool, eng engine.Engine, tools []mcpserver.ServerTool, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Instructions == "" {
		cfg.Instructions = SystemPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		pool:   pool,
		engine: eng,
		tools:  tools,
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("kanshi/adjudication"),
	}

	meter := telemetry.Meter("kanshi/adjudication")
	if c, err := meter.Int64Counter("kanshi.sessions",
		metric.WithDescription("Adjudication sessions by outcome")); err == nil {
		s.sessions = c
	}
	if c, err := meter.Int64Counter("kanshi.tool_calls",
		metric.WithDescription("Distinct tool calls announced by the engine")); err == nil {
		s.toolCalls = c
	}
	return s
}

// Start opens a session for customerID: it draws one credential, seeds the
// conversation with the investigation turn, and requests a streaming run.
// If the engine refuses the run, the session is returned already failed so
// the caller still observes a start and an error.
func (s *Service) Start(ctx context.Context, customerID string) (*Session, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, ErrMissingCustomerID
	}

	id := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "adjudication.session",
		trace.WithAttributes(
			attribute.String("kanshi.session_id", id),
			attribute.String("kanshi.customer_id", customerID),
		),
	)
	sess := newSession(id, customerID, span, s.sessionEnded)
	sess.toolCall = s.toolCallObserved

	stream, err := s.engine.Run(ctx, engine.Request{
		Instructions: s.cfg.Instructions,
		Messages:     []engine.Message{engine.UserMessage(Instruction(customerID))},
		MCPServers:   s.cfg.MCPServers,
		Model:        s.cfg.Model,
		MaxSteps:     s.cfg.MaxSteps,
		Tools:        s.tools,
		Credential:   s.pool.Next(),
	})
	if err != nil {
		s.logger.Warn("adjudication: engine refused run",
			"session_id", id, "customer_id", customerID, "error", err)
		sess.fail(err)
		return sess, nil
	}

	sess.run(stream)
	s.logger.Info("adjudication: session started",
		"session_id", id, "customer_id", customerID, "model", s.cfg.Model)
	return sess, nil
}

func (s *Service) sessionEnded(sess *Session) {
	outcome := sess.State().String()
	if sess.State() == StateFailed && engine.IsCanceled(sess.Err()) {
		outcome = "canceled"
	} else if sess.State() == StateRunning {
		outcome = "abandoned"
	}

	if s.sessions != nil {
		s.sessions.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}

	attrs := []any{"session_id", sess.ID, "customer_id", sess.CustomerID, "outcome", outcome}
	if err := sess.Err(); err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.Info("adjudication: session ended", attrs...)
}

func (s *Service) toolCallObserved(tool string) {
	if s.toolCalls != nil {
		s.toolCalls.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("tool", tool)))
	}
}

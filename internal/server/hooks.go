package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashita-ai/kanshi/internal/adjudication"
)

// RunHook receives a summary after every adjudication stream ends.
// Defined here (not in the root kanshi package) to avoid a circular import;
// the root package adapts kanshi.EventHook into RunHook.
//
// Hooks are called asynchronously. Implementations must not block
// indefinitely. Failures are logged and never reach the stream.
type RunHook interface {
	OnRunFinished(ctx context.Context, summary RunSummary) error
}

// Outcomes recorded in RunSummary.
const (
	OutcomeFinished = "finished"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// RunSummary describes one adjudication stream after it ended.
type RunSummary struct {
	SessionID  string
	CustomerID string
	Subject    string // authenticated caller, empty when auth is disabled
	Outcome    string
	Error      string
	ToolCalls  int
	Duration   time.Duration
}

// summaryRecorder folds the outward events of one stream into a RunSummary.
type summaryRecorder struct {
	summary RunSummary
	started time.Time
}

func newSummaryRecorder(sess *adjudication.Session, subject string) *summaryRecorder {
	return &summaryRecorder{
		summary: RunSummary{SessionID: sess.ID, CustomerID: sess.CustomerID, Subject: subject, Outcome: OutcomeCanceled},
		started: time.Now(),
	}
}

func (s *summaryRecorder) observe(ev adjudication.Event) {
	switch p := ev.Payload.(type) {
	case adjudication.ToolCallStarted:
		s.summary.ToolCalls++
	case adjudication.RunFinished:
		s.summary.Outcome = OutcomeFinished
	case adjudication.Failure:
		s.summary.Outcome = OutcomeFailed
		s.summary.Error = p.Message
	}
}

func (s *summaryRecorder) finish() RunSummary {
	s.summary.Duration = time.Since(s.started)
	return s.summary
}

func fireRunHooks(hooks []RunHook, summary RunSummary, logger *slog.Logger) {
	if len(hooks) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, h := range hooks {
			if err := h.OnRunFinished(ctx, summary); err != nil {
				logger.Warn("run hook failed", "error", err, "session_id", summary.SessionID)
			}
		}
	}()
}

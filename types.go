package kanshi

import "time"

// Outcome is how an adjudication stream ended.
type Outcome string

const (
	// OutcomeFinished: the run reached run_finished.
	OutcomeFinished Outcome = "finished"
	// OutcomeFailed: the run ended with an error event.
	OutcomeFailed Outcome = "failed"
	// OutcomeCanceled: the client went away or the server shut down first.
	OutcomeCanceled Outcome = "canceled"
)

// RunSummary describes one adjudication stream after it ended. It is the
// public mirror of the server's internal summary.
type RunSummary struct {
	SessionID  string
	CustomerID string
	Subject    string // authenticated caller; empty when auth is disabled
	Outcome    Outcome
	Error      string
	ToolCalls  int
	Duration   time.Duration
}

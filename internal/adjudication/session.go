package adjudication

import (
	"io"
	"sync"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/kanshi/internal/engine"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is one investigation of one customer. It is owned by a single
// request handler and is not safe for concurrent use.
type Session struct {
	ID         string
	CustomerID string

	state  State
	err    error
	stream engine.Stream
	span   trace.Span

	// ended is invoked once, on Close.
	ended     func(*Session)
	toolCall  func(tool string)
	closeOnce sync.Once
}

func newSession(id, customerID string, span trace.Span, ended func(*Session)) *Session {
	return &Session{
		ID:         id,
		CustomerID: customerID,
		state:      StateCreated,
		span:       span,
		ended:      ended,
	}
}

// run moves a created session to running over stream.
func (s *Session) run(stream engine.Stream) {
	s.stream = stream
	s.state = StateRunning
}

// fail captures err and moves the session to failed.
func (s *Session) fail(err error) {
	s.err = err
	s.state = StateFailed
	s.closeStream()
}

// Next pulls the next raw chunk. It returns false once the engine stream is
// exhausted (completed) or has failed; the failure is captured in Err and
// never returned to the caller. The sequence cannot be restarted.
func (s *Session) Next() (engine.Chunk, bool) {
	if s.state != StateRunning {
		return engine.Chunk{}, false
	}
	chunk, err := s.stream.Next()
	if err == io.EOF {
		s.state = StateCompleted
		s.closeStream()
		return engine.Chunk{}, false
	}
	if err != nil {
		s.fail(err)
		return engine.Chunk{}, false
	}
	return chunk, true
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Err returns the captured failure, or nil.
func (s *Session) Err() error { return s.err }

// Close releases the engine stream and ends the session's span. Safe to
// call more than once and on any state.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closeStream()
		if s.span != nil {
			if s.state == StateFailed && s.err != nil {
				s.span.RecordError(s.err)
				s.span.SetStatus(codes.Error, s.err.Error())
			}
			s.span.End()
		}
		if s.ended != nil {
			s.ended(s)
		}
	})
}

func (s *Session) observeToolCall(tool string) {
	if s.toolCall != nil {
		s.toolCall(tool)
	}
}

func (s *Session) closeStream() {
	if s.stream != nil {
		_ = s.stream.Close()
	}
}

package adjudication

import (
	"context"
	"time"
)

// Translator maps a session's raw chunks onto the outward event protocol.
// The zero value uses time.Now.
type Translator struct {
	Now func() time.Time
}

// Translate is Translator{}.Translate.
func Translate(ctx context.Context, sess *Session, emit func(Event) error) error {
	return Translator{}.Translate(ctx, sess, emit)
}

// Translate drains sess, calling emit for each outward event in order:
// one run_started, then token and tool_call_started events as chunks
// arrive, then exactly one of run_finished or error. Tool-call ids already
// announced in this session are dropped, as are announcements without an
// id.
//
// If ctx is done or emit fails, translation stops at once and the cause is
// returned; no terminal event is synthesized in that case.
func (t Translator) Translate(ctx context.Context, sess *Session, emit func(Event) error) error {
	now := t.Now
	if now == nil {
		now = time.Now
	}

	err := emit(Event{Type: EventRunStarted, Payload: RunStarted{
		CustomerID: sess.CustomerID,
		TS:         epochSeconds(now()),
	}})
	if err != nil {
		return err
	}

	seen := make(map[string]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, ok := sess.Next()
		if !ok {
			break
		}

		if chunk.Delta.Content != "" {
			if err := emit(Event{Type: EventToken, Payload: Token{Delta: chunk.Delta.Content}}); err != nil {
				return err
			}
		}
		for _, call := range chunk.Delta.ToolCalls {
			if call.ID == "" {
				continue
			}
			if _, dup := seen[call.ID]; dup {
				continue
			}
			seen[call.ID] = struct{}{}
			sess.observeToolCall(call.Name)

			err := emit(Event{Type: EventToolCallStarted, Payload: ToolCallStarted{
				ID:   call.ID,
				Tool: call.Name,
				TS:   epochSeconds(now()),
			}})
			if err != nil {
				return err
			}
		}
	}

	// A disconnect surfaces as a failed stream; the caller is gone, so no
	// terminal event.
	if err := ctx.Err(); err != nil {
		return err
	}

	if sess.State() == StateFailed {
		msg := "adjudication failed"
		if sess.Err() != nil {
			msg = sess.Err().Error()
		}
		return emit(Event{Type: EventError, Payload: Failure{Message: msg}})
	}
	return emit(Event{Type: EventRunFinished, Payload: RunFinished{
		CustomerID: sess.CustomerID,
		TS:         epochSeconds(now()),
	}})
}

package adjudication

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ashita-ai/kanshi/internal/sse"
)

// EventType names an outward stream event.
type EventType string

const (
	EventRunStarted      EventType = "run_started"
	EventToken           EventType = "token"
	EventToolCallStarted EventType = "tool_call_started"
	EventRunFinished     EventType = "run_finished"
	EventError           EventType = "error"
)

// Event is one outward event. Payload is one of RunStarted, Token,
// ToolCallStarted, RunFinished or Failure.
type Event struct {
	Type    EventType
	Payload any
}

// RunStarted is the first event of every session.
type RunStarted struct {
	CustomerID string  `json:"customer_id"`
	TS         float64 `json:"ts"`
}

// Token carries one text fragment verbatim.
type Token struct {
	Delta string `json:"delta"`
}

// ToolCallStarted announces the first sighting of a tool call.
type ToolCallStarted struct {
	ID   string  `json:"id"`
	Tool string  `json:"tool"`
	TS   float64 `json:"ts"`
}

// RunFinished is the terminal event of a completed session.
type RunFinished struct {
	CustomerID string  `json:"customer_id"`
	TS         float64 `json:"ts"`
}

// Failure is the terminal event of a failed session.
type Failure struct {
	Message string `json:"message"`
}

// Terminal reports whether e ends a session.
func (e Event) Terminal() bool {
	return e.Type == EventRunFinished || e.Type == EventError
}

// MarshalSSE renders e as one SSE frame.
func (e Event) MarshalSSE() ([]byte, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("adjudication: marshal %s: %w", e.Type, err)
	}
	return sse.Format(string(e.Type), data), nil
}

// WriteSSE writes e to w as one SSE frame.
func WriteSSE(w io.Writer, e Event) error {
	frame, err := e.MarshalSSE()
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// DecodeEvent parses a frame read back from the outward stream.
func DecodeEvent(raw sse.Event) (Event, error) {
	var payload any
	switch EventType(raw.Type) {
	case EventRunStarted:
		payload = &RunStarted{}
	case EventToken:
		payload = &Token{}
	case EventToolCallStarted:
		payload = &ToolCallStarted{}
	case EventRunFinished:
		payload = &RunFinished{}
	case EventError:
		payload = &Failure{}
	default:
		return Event{}, fmt.Errorf("adjudication: unknown event type %q", raw.Type)
	}
	if err := json.Unmarshal([]byte(raw.Data), payload); err != nil {
		return Event{}, fmt.Errorf("adjudication: decode %s: %w", raw.Type, err)
	}

	ev := Event{Type: EventType(raw.Type)}
	switch p := payload.(type) {
	case *RunStarted:
		ev.Payload = *p
	case *Token:
		ev.Payload = *p
	case *ToolCallStarted:
		ev.Payload = *p
	case *RunFinished:
		ev.Payload = *p
	case *Failure:
		ev.Payload = *p
	}
	return ev, nil
}

// epochSeconds encodes t as numeric epoch seconds with millisecond precision.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

package kanshi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Stream iterates the events of one adjudication.
//
//	stream, err := client.Adjudicate(ctx, "c1")
//	if err != nil { ... }
//	defer stream.Close()
//	for stream.Next() {
//	    ev := stream.Event()
//	}
//	if err := stream.Err(); err != nil { ... }
//
// Next returns false after the terminal event. Err is ErrIncomplete if the
// server closed the stream before one arrived. An error event is delivered
// through Event, not Err.
type Stream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	current Event
	done    bool
	err     error
}

// Next advances to the next event. Frames of unknown type are skipped.
func (s *Stream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for {
		eventType, data, err := s.readFrame()
		if err != nil {
			if err == io.EOF {
				err = ErrIncomplete
			}
			s.err = err
			return false
		}

		ev := Event{Type: EventType(eventType)}
		switch ev.Type {
		case EventRunStarted, EventToken, EventToolCallStarted, EventRunFinished, EventError:
		default:
			continue
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			s.err = fmt.Errorf("kanshi: decode %s: %w", eventType, err)
			return false
		}
		s.current = ev
		s.done = ev.Terminal()
		return true
	}
}

// Event returns the event read by the last successful Next.
func (s *Stream) Event() Event {
	return s.current
}

// Err returns the error that stopped iteration, if any.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the connection. Closing before the terminal event cancels
// the run.
func (s *Stream) Close() error {
	return s.body.Close()
}

// readFrame reads one "event:/data:" frame. Comment lines are ignored.
func (s *Stream) readFrame() (string, string, error) {
	var (
		eventType string
		data      []string
	)
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF && len(data) > 0 {
				return eventType, strings.Join(data, "\n"), nil
			}
			if err != io.EOF {
				err = fmt.Errorf("kanshi: read stream: %w", err)
			}
			return "", "", err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if len(data) > 0 {
				return eventType, strings.Join(data, "\n"), nil
			}
			eventType = ""
		case strings.HasPrefix(line, ":"):
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				eventType = value
			case "data":
				data = append(data, value)
			}
		}
	}
}

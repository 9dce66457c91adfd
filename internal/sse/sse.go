// Package sse reads and writes Server-Sent Events.
//
// Scanner parses an upstream SSE body (the reasoning engine's chat stream,
// or kanshi's own adjudication stream in kanshi-watch). Format produces the
// "event: <type>\ndata: <payload>\n\n" frames written to HTTP clients.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// Event is a single parsed Server-Sent Event.
type Event struct {
	// Type is the "event:" field; empty for the default event type.
	Type string
	// Data is the payload. Multiple data lines are joined with "\n".
	Data string
}

// Format renders one SSE frame.
func Format(eventType string, data []byte) []byte {
	buf := make([]byte, 0, len(eventType)+len(data)+16)
	buf = append(buf, "event: "...)
	buf = append(buf, eventType...)
	buf = append(buf, "\ndata: "...)
	buf = append(buf, data...)
	buf = append(buf, "\n\n"...)
	return buf
}

// Scanner reads events from an io.Reader. Comment lines (":keepalive") and
// unknown fields are ignored; a blank line terminates an event.
//
//	scanner := sse.NewScanner(body)
//	for scanner.Next() {
//	    ev := scanner.Event()
//	}
//	if err := scanner.Err(); err != nil { ... }
type Scanner struct {
	reader  *bufio.Reader
	current Event
	err     error
}

// NewScanner creates a Scanner over r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next event. It returns false at end of stream or on
// error; call Err to tell them apart.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.current = Event{}

	var dataLines []string
	var eventType string
	hasData := false

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF && hasData {
				s.current = Event{Type: eventType, Data: strings.Join(dataLines, "\n")}
				s.err = io.EOF
				return true
			}
			s.err = err
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData {
				s.current = Event{Type: eventType, Data: strings.Join(dataLines, "\n")}
				return true
			}
			eventType = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, hasColon := strings.Cut(line, ":")
		if !hasColon {
			field, value = line, ""
		} else {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			eventType = value
		}
	}
}

// Event returns the event parsed by the last successful Next.
func (s *Scanner) Event() Event {
	return s.current
}

// Err returns the first non-EOF error encountered.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string) []Event {
	t.Helper()
	s := NewScanner(strings.NewReader(input))
	var events []Event
	for s.Next() {
		events = append(events, s.Event())
	}
	require.NoError(t, s.Err())
	return events
}

func TestFormat(t *testing.T) {
	got := string(Format("run_started", []byte(`{"customer_id":"c1","ts":1}`)))
	assert.Equal(t, "event: run_started\ndata: {\"customer_id\":\"c1\",\"ts\":1}\n\n", got)
}

func TestScannerRoundTripsFormat(t *testing.T) {
	input := string(Format("token", []byte(`{"delta":"hi"}`))) + string(Format("run_finished", []byte(`{}`)))
	events := collect(t, input)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Type: "token", Data: `{"delta":"hi"}`}, events[0])
	assert.Equal(t, Event{Type: "run_finished", Data: `{}`}, events[1])
}

func TestScannerDataOnlyAndDone(t *testing.T) {
	events := collect(t, "data: {\"a\":1}\n\ndata: [DONE]\n\n")
	require.Len(t, events, 2)
	assert.Equal(t, "", events[0].Type)
	assert.Equal(t, "[DONE]", events[1].Data)
}

func TestScannerSkipsCommentsAndUnknownFields(t *testing.T) {
	events := collect(t, ":keepalive\n\nid: 7\nretry: 100\nevent: x\ndata: y\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, Event{Type: "x", Data: "y"}, events[0])
}

func TestScannerMultilineDataAndCRLF(t *testing.T) {
	events := collect(t, "data: one\r\ndata: two\r\n\r\n")
	require.Len(t, events, 1)
	assert.Equal(t, "one\ntwo", events[0].Data)
}

func TestScannerTrailingEventWithoutBlankLine(t *testing.T) {
	events := collect(t, "event: a\ndata: tail")
	require.Len(t, events, 1)
	assert.Equal(t, Event{Type: "a", Data: "tail"}, events[0])
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestScannerReportsReadError(t *testing.T) {
	s := NewScanner(io.MultiReader(strings.NewReader("data: a\n\n"), failingReader{}))
	require.True(t, s.Next())
	assert.False(t, s.Next())
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "connection reset")
}

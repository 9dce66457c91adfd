package adjudication

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kanshi/internal/sse"
)

func TestWriteSSEFrames(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{EventToken, Token{Delta: "he said \"no\"\n"}}, "event: token\ndata: {\"delta\":\"he said \\\"no\\\"\\n\"}\n\n"},
		{Event{EventError, Failure{Message: "boom"}}, "event: error\ndata: {\"message\":\"boom\"}\n\n"},
		{Event{EventRunFinished, RunFinished{CustomerID: "c9", TS: 12.5}}, "event: run_finished\ndata: {\"customer_id\":\"c9\",\"ts\":12.5}\n\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.event.Type), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteSSE(&buf, tt.event))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestDecodeEventReadsOwnFrames(t *testing.T) {
	var buf bytes.Buffer
	sent := []Event{
		{EventRunStarted, RunStarted{CustomerID: "c1", TS: 1.5}},
		{EventToolCallStarted, ToolCallStarted{ID: "t1", Tool: "get_customer_profile", TS: 2}},
		{EventToken, Token{Delta: "hi"}},
		{EventError, Failure{Message: "nope"}},
	}
	for _, e := range sent {
		require.NoError(t, WriteSSE(&buf, e))
	}

	sc := sse.NewScanner(&buf)
	var got []Event
	for sc.Next() {
		ev, err := DecodeEvent(sc.Event())
		require.NoError(t, err)
		got = append(got, ev)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, sent, got)
	assert.True(t, got[3].Terminal())
	assert.False(t, got[2].Terminal())
}

func TestDecodeEventRejectsUnknownAndMalformed(t *testing.T) {
	_, err := DecodeEvent(sse.Event{Type: "heartbeat", Data: "{}"})
	assert.Error(t, err)

	_, err = DecodeEvent(sse.Event{Type: "token", Data: "{"})
	assert.Error(t, err)
}

func TestEpochSecondsMillisecondPrecision(t *testing.T) {
	assert.Equal(t, 1700000000.123, epochSeconds(time.Unix(1700000000, 123_987_000)))
	assert.Equal(t, 0.0, epochSeconds(time.Unix(0, 0)))
}

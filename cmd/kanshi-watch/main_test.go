package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kanshi/internal/adjudication"
)

// streamServer answers /adjudicate/{id} with events and records the
// Authorization header it saw.
func streamServer(t *testing.T, events []adjudication.Event, gotAuth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotAuth != nil {
			*gotAuth = r.Header.Get("Authorization")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			assert.NoError(t, adjudication.WriteSSE(w, ev))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWatchRendersCompletedRun(t *testing.T) {
	var auth string
	srv := streamServer(t, []adjudication.Event{
		{Type: adjudication.EventRunStarted, Payload: adjudication.RunStarted{CustomerID: "c1", TS: 1}},
		{Type: adjudication.EventToken, Payload: adjudication.Token{Delta: "Looking up "}},
		{Type: adjudication.EventToolCallStarted, Payload: adjudication.ToolCallStarted{ID: "t1", Tool: "get_customer_profile", TS: 2}},
		{Type: adjudication.EventToken, Payload: adjudication.Token{Delta: "CLEAR"}},
		{Type: adjudication.EventRunFinished, Payload: adjudication.RunFinished{CustomerID: "c1", TS: 3}},
	}, &auth)

	var out bytes.Buffer
	err := watch(context.Background(), srv.Client(), options{server: srv.URL, apiKey: "k"}, "c1", newRenderer(&out, true))
	require.NoError(t, err)

	assert.Equal(t, "ApiKey k", auth)
	assert.Equal(t,
		"▶ adjudicating customer c1\n"+
			"Looking up \n"+
			"⚙ get_customer_profile (t1)\n"+
			"CLEAR\n"+
			"✓ finished (1 tool calls)\n",
		out.String())
}

func TestWatchReportsFailure(t *testing.T) {
	srv := streamServer(t, []adjudication.Event{
		{Type: adjudication.EventRunStarted, Payload: adjudication.RunStarted{CustomerID: "c1"}},
		{Type: adjudication.EventError, Payload: adjudication.Failure{Message: "engine: HTTP 401: invalid api key"}},
	}, nil)

	var out bytes.Buffer
	err := watch(context.Background(), srv.Client(), options{server: srv.URL}, "c1", newRenderer(&out, true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
	assert.Contains(t, out.String(), "✗ engine: HTTP 401")
}

func TestWatchTruncatedStream(t *testing.T) {
	srv := streamServer(t, []adjudication.Event{
		{Type: adjudication.EventRunStarted, Payload: adjudication.RunStarted{CustomerID: "c1"}},
	}, nil)

	err := watch(context.Background(), srv.Client(), options{server: srv.URL}, "c1", newRenderer(&bytes.Buffer{}, true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before the run finished")
}

func TestWatchHTTPError(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("Authorization")
		http.Error(w, `{"error":{"code":"UNAUTHORIZED"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	err := watch(context.Background(), srv.Client(), options{server: srv.URL, token: "jwt"}, "c1", newRenderer(&bytes.Buffer{}, true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.Equal(t, "Bearer jwt", gotToken)
}

func TestRunRequiresCustomerID(t *testing.T) {
	err := run(nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one customer id")
}

package customer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "nessie-key" {
			http.Error(w, `{"code":401}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"_id":"c1","first_name":"Ana","last_name":"Diaz","address":{"street_number":"1","street_name":"Elm || Age: 30","city":"Austin","state":"TX","zip":"73301"}},
			{"_id":"c2","first_name":"Bo","last_name":"Li","address":{"street_number":"2","street_name":"Oak","city":"Reno","state":"NV","zip":"89501"}}
		]`))
	})
	mux.HandleFunc("GET /customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "c1" {
			http.Error(w, `{"code":404,"message":"Invalid ID"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"_id":"c1","first_name":"Ana","last_name":"Diaz","address":{"street_number":"1","street_name":"Elm || Age: 30","city":"Austin","state":"TX","zip":"73301"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGet(t *testing.T) {
	srv := newRecordAPI(t)
	c := NewClient(srv.URL+"/", "nessie-key", 5*time.Second, srv.Client())

	rec, err := c.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", rec.ID)
	assert.Equal(t, "Ana Diaz", rec.FullName())
	// Get returns the raw record; normalization is the caller's job.
	assert.Equal(t, "Elm || Age: 30", rec.Address.StreetName)
}

func TestClientGetNotFound(t *testing.T) {
	srv := newRecordAPI(t)
	c := NewClient(srv.URL, "nessie-key", 5*time.Second, srv.Client())

	_, err := c.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestClientList(t *testing.T) {
	srv := newRecordAPI(t)
	c := NewClient(srv.URL, "nessie-key", 5*time.Second, srv.Client())

	recs, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c2", recs[1].ID)
}

func TestClientUnauthorizedIsNotNotFound(t *testing.T) {
	srv := newRecordAPI(t)
	c := NewClient(srv.URL, "wrong", 5*time.Second, srv.Client())

	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestClientTransportError(t *testing.T) {
	srv := newRecordAPI(t)
	url := srv.URL
	srv.Close()

	c := NewClient(url, "nessie-key", time.Second, nil)
	_, err := c.Get(context.Background(), "c1")
	require.Error(t, err)
}

func TestClientConcurrentGetsShareOneRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"_id":"c1","first_name":"Ana","last_name":"Diaz"}`))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "nessie-key", 5*time.Second, srv.Client())

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Record, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := c.Get(context.Background(), "c1")
			assert.NoError(t, err)
			results[i] = rec
		}()
	}

	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Let the other callers join the in-flight request before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, rec := range results {
		require.NotNil(t, rec)
		assert.Equal(t, "c1", rec.ID)
	}
	results[0].FirstName = "mutated"
	assert.Equal(t, "Ana", results[1].FirstName, "callers get independent copies")
}

func TestClientGetHonoursCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"_id":"c1"}`))
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	c := NewClient(srv.URL, "nessie-key", 5*time.Second, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, "c1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

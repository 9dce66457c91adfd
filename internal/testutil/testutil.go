// Package testutil provides shared fakes and helpers for kanshi tests.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ashita-ai/kanshi/internal/customer"
	"github.com/ashita-ai/kanshi/internal/engine"
)

// TestLogger returns a logger that only surfaces warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// ErrStreamClosed is returned by a ScriptStream read after Close.
var ErrStreamClosed = errors.New("testutil: stream closed")

// FakeEngine replays a fixed chunk script for every run.
type FakeEngine struct {
	// Chunks are returned in order by each stream.
	Chunks []engine.Chunk
	// StreamErr, if set, is returned after Chunks instead of io.EOF.
	StreamErr error
	// StartErr, if set, makes Run fail.
	StartErr error
	// Block makes streams wait for context cancellation after Chunks.
	Block bool

	mu       sync.Mutex
	requests []engine.Request
	streams  []*ScriptStream
}

// Run records req and returns a new ScriptStream.
func (f *FakeEngine) Run(ctx context.Context, req engine.Request) (engine.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	s := &ScriptStream{ctx: ctx, chunks: f.Chunks, err: f.StreamErr, block: f.Block}
	f.streams = append(f.streams, s)
	return s, nil
}

// Requests returns every request seen so far.
func (f *FakeEngine) Requests() []engine.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Request(nil), f.requests...)
}

// Streams returns every stream handed out so far.
func (f *FakeEngine) Streams() []*ScriptStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ScriptStream(nil), f.streams...)
}

// ScriptStream is the engine.Stream returned by FakeEngine.
type ScriptStream struct {
	ctx    context.Context
	chunks []engine.Chunk
	err    error
	block  bool
	pos    int
	closed atomic.Bool
}

func (s *ScriptStream) Next() (engine.Chunk, error) {
	if s.closed.Load() {
		return engine.Chunk{}, ErrStreamClosed
	}
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return engine.Chunk{}, s.err
	}
	if s.block {
		<-s.ctx.Done()
		return engine.Chunk{}, s.ctx.Err()
	}
	return engine.Chunk{}, io.EOF
}

func (s *ScriptStream) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (s *ScriptStream) Closed() bool {
	return s.closed.Load()
}

// TextChunk is a chunk carrying only text.
func TextChunk(text string) engine.Chunk {
	return engine.Chunk{Delta: engine.Delta{Content: text}}
}

// ToolChunk is a chunk announcing one tool call.
func ToolChunk(id, name string) engine.Chunk {
	return engine.Chunk{Delta: engine.Delta{ToolCalls: []engine.ToolCall{{ID: id, Name: name}}}}
}

// NewRecordAPI starts a fake customer record API serving records and
// requiring ?key=apiKey. Unknown ids answer 404.
func NewRecordAPI(t *testing.T, apiKey string, records ...customer.Record) *httptest.Server {
	t.Helper()
	byID := make(map[string]customer.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != apiKey {
			http.Error(w, `{"code":401,"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
	})
	mux.HandleFunc("GET /customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != apiKey {
			http.Error(w, `{"code":401,"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		rec, ok := byID[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"code":404,"message":"Invalid ID"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rec)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

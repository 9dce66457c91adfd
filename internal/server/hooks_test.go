package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kanshi/internal/engine"
	"github.com/ashita-ai/kanshi/internal/testutil"
)

type hookFunc func(ctx context.Context, s RunSummary) error

func (f hookFunc) OnRunFinished(ctx context.Context, s RunSummary) error { return f(ctx, s) }

func collectSummaries(cfg *ServerConfig) <-chan RunSummary {
	ch := make(chan RunSummary, 4)
	cfg.RunHooks = append(cfg.RunHooks,
		hookFunc(func(_ context.Context, _ RunSummary) error { return errors.New("first hook fails") }),
		hookFunc(func(_ context.Context, s RunSummary) error { ch <- s; return nil }),
	)
	return ch
}

func waitSummary(t *testing.T, ch <-chan RunSummary) RunSummary {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("run hook was not called")
		return RunSummary{}
	}
}

func TestRunHookReceivesFinishedSummary(t *testing.T) {
	eng := &testutil.FakeEngine{Chunks: []engine.Chunk{
		testutil.ToolChunk("t1", "get_customer_profile"),
		testutil.ToolChunk("t2", "exa_search"),
		testutil.TextChunk("CLEAR"),
	}}
	var summaries <-chan RunSummary
	env := newTestEnv(t, eng, func(cfg *ServerConfig) { summaries = collectSummaries(cfg) })

	rec := env.get("/adjudicate/" + hines.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	s := waitSummary(t, summaries)
	assert.Equal(t, OutcomeFinished, s.Outcome)
	assert.Equal(t, hines.ID, s.CustomerID)
	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, 2, s.ToolCalls)
	assert.Empty(t, s.Error)
	assert.Empty(t, s.Subject)
}

func TestRunHookReceivesFailure(t *testing.T) {
	eng := &testutil.FakeEngine{StartErr: errors.New("engine: HTTP 401: invalid api key")}
	var summaries <-chan RunSummary
	env := newTestEnv(t, eng, func(cfg *ServerConfig) { summaries = collectSummaries(cfg) })

	rec := env.get("/adjudicate/" + hines.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	s := waitSummary(t, summaries)
	assert.Equal(t, OutcomeFailed, s.Outcome)
	assert.Contains(t, s.Error, "invalid api key")
	assert.Zero(t, s.ToolCalls)
}

func TestExtraRoutesAndMiddlewares(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	env := newTestEnv(t, &testutil.FakeEngine{}, func(cfg *ServerConfig) {
		cfg.ExtraRoutes = append(cfg.ExtraRoutes, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /extra", func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "handler")
				w.WriteHeader(http.StatusTeapot)
			})
		})
		cfg.Middlewares = append(cfg.Middlewares, mark("outer"), mark("inner"))
	})

	rec := env.get("/extra")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), "extra routes run inside the standard chain")
}

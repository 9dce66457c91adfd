package adjudication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kanshi/internal/credential"
	"github.com/ashita-ai/kanshi/internal/engine"
	"github.com/ashita-ai/kanshi/internal/testutil"
)

func TestStartBuildsRunRequest(t *testing.T) {
	eng := &testutil.FakeEngine{}
	svc := newTestService(eng, "k1", "k2")

	for _, id := range []string{"c1", "c2", " c3 "} {
		sess, err := svc.Start(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, StateRunning, sess.State())
		assert.NotEmpty(t, sess.ID)
		sess.Close()
	}

	reqs := eng.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, []string{"k1", "k2", "k1"},
		[]string{reqs[0].Credential, reqs[1].Credential, reqs[2].Credential}, "one credential per session, round-robin")

	req := reqs[0]
	assert.Equal(t, SystemPrompt, req.Instructions)
	assert.Equal(t, []engine.Message{{Role: "user", Content: "Investigate Customer ID: c1"}}, req.Messages)
	assert.Equal(t, "anthropic/claude-opus-4-5", req.Model)
	assert.Equal(t, []string{"tsion/exa"}, req.MCPServers)
	assert.Equal(t, DefaultMaxSteps, req.MaxSteps)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "get_customer_profile", req.Tools[0].Tool.Name)

	assert.Equal(t, "Investigate Customer ID: c3", reqs[2].Messages[0].Content)
}

func TestStartHonoursConfig(t *testing.T) {
	eng := &testutil.FakeEngine{}
	svc := NewService(credential.New(nil, nil), eng, nil, Config{MaxSteps: 3, Instructions: "custom"}, nil)

	sess, err := svc.Start(context.Background(), "c1")
	require.NoError(t, err)
	defer sess.Close()

	req := eng.Requests()[0]
	assert.Equal(t, 3, req.MaxSteps)
	assert.Equal(t, "custom", req.Instructions)
	assert.Equal(t, "missing-key", req.Credential, "empty pool degrades to the sentinel")
}

func TestStartRejectsBlankCustomerID(t *testing.T) {
	eng := &testutil.FakeEngine{}
	_, err := newTestService(eng, "k1").Start(context.Background(), "  ")
	require.ErrorIs(t, err, ErrMissingCustomerID)
	assert.Empty(t, eng.Requests())
}

func TestSessionLifecycle(t *testing.T) {
	eng := &testutil.FakeEngine{Chunks: []engine.Chunk{testutil.TextChunk("x")}}
	sess, err := newTestService(eng, "k1").Start(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, sess.State())

	chunk, ok := sess.Next()
	require.True(t, ok)
	assert.Equal(t, "x", chunk.Delta.Content)

	_, ok = sess.Next()
	assert.False(t, ok)
	assert.Equal(t, StateCompleted, sess.State())
	assert.NoError(t, sess.Err())

	// Not restartable.
	_, ok = sess.Next()
	assert.False(t, ok)
	assert.Equal(t, StateCompleted, sess.State())

	sess.Close()
	sess.Close()
	assert.True(t, eng.Streams()[0].Closed())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}

package ctxutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashita-ai/kanshi/internal/auth"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Equal(t, "req-1", RequestIDFromContext(WithRequestID(ctx, "req-1")))
}

func TestPrincipal(t *testing.T) {
	ctx := context.Background()
	_, ok := PrincipalFromContext(ctx)
	assert.False(t, ok)
	assert.Empty(t, Subject(ctx))

	ctx = WithPrincipal(ctx, auth.Principal{Subject: "analyst-7", Method: "jwt"})
	p, ok := PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "jwt", p.Method)
	assert.Equal(t, "analyst-7", Subject(ctx))
}

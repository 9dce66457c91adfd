// Package credential rotates outbound API keys for the reasoning engine.
//
// A Pool holds an ordered set of equivalent bearer tokens and hands them out
// round-robin, one per adjudication session, so request volume and provider
// rate limits are spread across every configured key.
package credential

import (
	"log/slog"
	"strings"
	"sync/atomic"
)

// Missing is substituted when no usable credential is configured. Calls made
// with it fail at the engine's auth boundary; the service itself stays up.
const Missing = "missing-key"

// Pool is a fixed, non-empty set of credentials with a rotation cursor.
// Safe for concurrent use.
type Pool struct {
	keys     []string
	cursor   atomic.Uint64
	degraded bool
}

// New builds a pool from raw configuration values. Empty and whitespace-only
// entries are dropped. If nothing remains, the pool holds the Missing
// sentinel and a warning is logged; New never fails.
func New(raw []string, logger *slog.Logger) *Pool {
	keys := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		keys = append(keys, v)
	}

	p := &Pool{keys: keys}
	if len(keys) == 0 {
		p.keys = []string{Missing}
		p.degraded = true
		if logger != nil {
			logger.Warn("credential: no engine API keys configured, using placeholder (engine calls will fail)")
		}
	}
	return p
}

// Next returns the credential under the cursor and advances the cursor by one.
// Concurrent callers each observe a distinct cursor position.
func (p *Pool) Next() string {
	n := p.cursor.Add(1) - 1
	return p.keys[n%uint64(len(p.keys))]
}

// Len reports how many credentials are in rotation.
func (p *Pool) Len() int {
	return len(p.keys)
}

// Degraded reports whether the pool fell back to the Missing sentinel.
func (p *Pool) Degraded() bool {
	return p.degraded
}

// Split parses a comma-separated list of keys as found in environment
// variables. Blank entries are preserved here and filtered by New.
func Split(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}

// Package engine is the client side of the external reasoning engine: a
// tool-augmented LLM runtime that accepts instructions, a conversation, a set
// of remote MCP tool servers and a table of locally executed tools, and
// streams back incremental chunks until the run concludes.
//
// Engine is the contract the adjudication layer consumes. Runner is the
// production implementation against an OpenAI-compatible chat completions
// endpoint with the mcp_servers extension.
package engine

import (
	"context"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Engine starts streaming runs.
type Engine interface {
	// Run starts a run and returns its chunk stream. An error means the run
	// never started. The caller must Close the stream.
	Run(ctx context.Context, req Request) (Stream, error)
}

// Stream is a lazy, finite, non-restartable sequence of chunks.
type Stream interface {
	// Next returns the next chunk, or io.EOF once the run has concluded.
	Next() (Chunk, error)
	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// Request describes one run.
type Request struct {
	Instructions string
	Messages     []Message
	MCPServers   []string
	Model        string
	// MaxSteps bounds the model/tool round trips before the run is forced to end.
	MaxSteps int
	// Tools is the capability table the engine may invoke mid-stream.
	Tools []mcpserver.ServerTool
	// Credential is the bearer token for this run.
	Credential string
}

// Message is one conversation turn.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation announced by the model. Arguments is the raw
// JSON accumulated so far and may be incomplete in streamed announcements.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Delta is the incremental payload of a chunk.
type Delta struct {
	Content   string
	ToolCalls []ToolCall
}

// Chunk is one raw event from the engine.
type Chunk struct {
	Delta Delta
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// APIError is returned when the engine responds with a non-200 status or
// sends an error object mid-stream.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("engine: HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("engine: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether the engine rejected the credential for rate.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized reports whether the credential was rejected.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

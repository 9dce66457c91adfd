package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ashita-ai/kanshi/internal/sse"
)

// maxToolCallIndex bounds the parallel tool-call slots one step may open.
const maxToolCallIndex = 64

// Runner drives multi-step runs against an OpenAI-compatible chat
// completions endpoint. Each step is one streaming completion. When a step
// ends with calls to locally registered tools, Runner executes them, appends
// the results to the conversation, and starts the next step, until the model
// stops calling local tools or MaxSteps is reached.
type Runner struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRunner creates a Runner. If httpClient is nil an OTEL-instrumented
// client without an overall timeout is used; streams are bounded by the
// caller's context instead.
func NewRunner(baseURL string, httpClient *http.Client, logger *slog.Logger) *Runner {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Run starts the first step and returns the chunk stream.
func (r *Runner) Run(ctx context.Context, req Request) (Stream, error) {
	if req.MaxSteps <= 0 {
		return nil, fmt.Errorf("engine: max steps must be positive, got %d", req.MaxSteps)
	}
	tools, err := toChatTools(req.Tools)
	if err != nil {
		return nil, fmt.Errorf("engine: encode tool schemas: %w", err)
	}

	handlers := make(map[string]mcpserver.ToolHandlerFunc, len(req.Tools))
	for _, t := range req.Tools {
		handlers[t.Tool.Name] = t.Handler
	}

	s := &runStream{
		ctx:      ctx,
		runner:   r,
		req:      req,
		tools:    tools,
		handlers: handlers,
		messages: append([]Message(nil), req.Messages...),
	}
	if err := s.startStep(); err != nil {
		return nil, err
	}
	return s, nil
}

// runStream is the Stream for one Runner run. Not safe for concurrent use.
type runStream struct {
	ctx      context.Context
	runner   *Runner
	req      Request
	tools    []chatTool
	handlers map[string]mcpserver.ToolHandlerFunc
	messages []Message

	step    int
	body    io.ReadCloser
	scanner *sse.Scanner
	done    bool

	// Per-step accumulation.
	text     strings.Builder
	partials []*partialToolCall
}

func (s *runStream) Next() (Chunk, error) {
	chunk, err := s.next()
	if err != nil && err != io.EOF {
		s.done = true
		s.closeBody()
	}
	return chunk, err
}

func (s *runStream) next() (Chunk, error) {
	for {
		if s.done {
			return Chunk{}, io.EOF
		}

		if !s.scanner.Next() {
			if err := s.scanner.Err(); err != nil {
				return Chunk{}, fmt.Errorf("engine: read stream: %w", err)
			}
			if err := s.finishStep(); err != nil {
				return Chunk{}, err
			}
			continue
		}

		ev := s.scanner.Event()
		if ev.Data == "[DONE]" {
			if err := s.finishStep(); err != nil {
				return Chunk{}, err
			}
			continue
		}

		var wc streamChunk
		if err := json.Unmarshal([]byte(ev.Data), &wc); err != nil {
			return Chunk{}, fmt.Errorf("engine: parse stream chunk: %w", err)
		}
		if wc.Error != nil && wc.Error.Message != "" {
			return Chunk{}, &APIError{StatusCode: http.StatusOK, Type: wc.Error.Type, Message: wc.Error.Message}
		}
		if len(wc.Choices) == 0 {
			continue
		}

		chunk, err := s.accumulate(wc.Choices[0].Delta)
		if err != nil {
			return Chunk{}, err
		}
		if chunk.Delta.Content == "" && len(chunk.Delta.ToolCalls) == 0 {
			continue
		}
		return chunk, nil
	}
}

// accumulate folds a wire delta into the step state and returns the chunk to
// surface. Tool-call fragments are announced with the id and name known so
// far for their index, so a call streamed over several fragments is
// announced once per fragment under the same id.
func (s *runStream) accumulate(d streamDelta) (Chunk, error) {
	var chunk Chunk
	if d.Content != "" {
		s.text.WriteString(d.Content)
		chunk.Delta.Content = d.Content
	}
	for _, frag := range d.ToolCalls {
		if frag.Index < 0 || frag.Index >= maxToolCallIndex {
			return Chunk{}, fmt.Errorf("engine: tool call index %d out of range", frag.Index)
		}
		for len(s.partials) <= frag.Index {
			s.partials = append(s.partials, &partialToolCall{})
		}
		p := s.partials[frag.Index]
		if frag.ID != "" {
			p.id = frag.ID
		}
		if frag.Function != nil {
			if frag.Function.Name != "" {
				p.name = frag.Function.Name
			}
			p.arguments.WriteString(frag.Function.Arguments)
		}
		chunk.Delta.ToolCalls = append(chunk.Delta.ToolCalls, ToolCall{ID: p.id, Name: p.name})
	}
	return chunk, nil
}

// finishStep closes the current step and either starts the next one or
// marks the run done.
func (s *runStream) finishStep() error {
	s.closeBody()
	s.step++

	var calls []ToolCall
	local := false
	for _, p := range s.partials {
		if p.id == "" && p.name == "" {
			continue
		}
		calls = append(calls, p.toolCall())
		if _, ok := s.handlers[p.name]; ok {
			local = true
		}
	}
	assistantText := s.text.String()
	s.text.Reset()
	s.partials = nil

	// Remote MCP tools are executed by the engine inside the step; only
	// local calls require another round trip.
	if !local || s.step >= s.req.MaxSteps {
		if local {
			s.runner.logger.Warn("engine: max steps reached with pending tool calls",
				"max_steps", s.req.MaxSteps, "tool_calls", len(calls))
		}
		s.done = true
		return nil
	}

	s.messages = append(s.messages, Message{Role: "assistant", Content: assistantText, ToolCalls: calls})
	for _, call := range calls {
		s.messages = append(s.messages, Message{
			Role:       "tool",
			ToolCallID: call.ID,
			Content:    s.invoke(call),
		})
	}
	if err := s.startStep(); err != nil {
		s.done = true
		return err
	}
	return nil
}

// invoke runs one local tool. Failures become textual results the model can
// read; they never abort the run.
func (s *runStream) invoke(call ToolCall) string {
	handler, ok := s.handlers[call.Name]
	if !ok {
		return fmt.Sprintf("Error: tool %s is not available.", call.Name)
	}

	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return fmt.Sprintf("Error: invalid arguments for %s: %v", call.Name, err)
		}
	}

	var req mcplib.CallToolRequest
	req.Params.Name = call.Name
	req.Params.Arguments = args

	s.runner.logger.Debug("engine: invoking local tool", "tool", call.Name, "tool_call_id", call.ID)
	res, err := handler(s.ctx, req)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return resultText(res)
}

func (s *runStream) startStep() error {
	body, err := json.Marshal(chatRequest{
		Model:      s.req.Model,
		Messages:   toChatMessages(s.req.Instructions, s.messages),
		Tools:      s.tools,
		MCPServers: s.req.MCPServers,
		Stream:     true,
	})
	if err != nil {
		return fmt.Errorf("engine: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(s.ctx, http.MethodPost,
		s.runner.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("engine: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+s.req.Credential)

	resp, err := s.runner.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("engine: send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return readAPIError(resp)
	}

	s.body = resp.Body
	s.scanner = sse.NewScanner(resp.Body)
	return nil
}

func (s *runStream) closeBody() {
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
}

func (s *runStream) Close() error {
	s.done = true
	s.closeBody()
	return nil
}

// resultText flattens the text content of a tool result.
func resultText(res *mcplib.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcplib.TextContent:
			parts = append(parts, tc.Text)
		case *mcplib.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// IsCanceled reports whether err stems from context cancellation, such as a
// caller disconnecting mid-stream.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

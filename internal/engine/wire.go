package engine

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Wire types for the OpenAI-compatible chat completions API. mcp_servers is
// the engine's extension naming remote tool servers it runs on our behalf.

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Tools      []chatTool    `json:"tools,omitempty"`
	MCPServers []string      `json:"mcp_servers,omitempty"`
	Stream     bool          `json:"stream"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string             `json:"type"`
	Function chatToolDefinition `json:"function"`
}

type chatToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type streamChunk struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Error   *wireError     `json:"error,omitempty"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamDelta struct {
	Role      string           `json:"role,omitempty"`
	Content   string           `json:"content,omitempty"`
	ToolCalls []streamToolCall `json:"tool_calls,omitempty"`
}

type streamToolCall struct {
	Index    int                 `json:"index"`
	ID       string              `json:"id,omitempty"`
	Type     string              `json:"type,omitempty"`
	Function *streamToolFunction `json:"function,omitempty"`
}

type streamToolFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type wireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// partialToolCall is a tool call being assembled from streamed fragments.
// The first fragment for an index carries the id and name; later ones append
// argument text.
type partialToolCall struct {
	id        string
	name      string
	arguments strings.Builder
}

func (p *partialToolCall) toolCall() ToolCall {
	return ToolCall{ID: p.id, Name: p.name, Arguments: p.arguments.String()}
}

func toChatMessages(instructions string, msgs []Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs)+1)
	if instructions != "" {
		out = append(out, chatMessage{Role: "system", Content: instructions})
	}
	for _, m := range msgs {
		cm := chatMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, chatToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: chatToolFunction{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, cm)
	}
	return out
}

// toChatTools exposes mcp-go tool definitions as function tools.
func toChatTools(tools []mcpserver.ServerTool) ([]chatTool, error) {
	out := make([]chatTool, 0, len(tools))
	for _, t := range tools {
		params, err := toolSchema(t.Tool)
		if err != nil {
			return nil, err
		}
		out = append(out, chatTool{
			Type: "function",
			Function: chatToolDefinition{
				Name:        t.Tool.Name,
				Description: t.Tool.Description,
				Parameters:  params,
			},
		})
	}
	return out, nil
}

func toolSchema(tool mcplib.Tool) (json.RawMessage, error) {
	if len(tool.RawInputSchema) > 0 {
		return tool.RawInputSchema, nil
	}
	return json.Marshal(tool.InputSchema)
}

// readAPIError parses {"error":{"type","message"}} bodies, falling back to
// the raw body text.
func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var env struct {
		Error wireError `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Type: env.Error.Type, Message: env.Error.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

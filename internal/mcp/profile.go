package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/kanshi/internal/ctxutil"
	"github.com/ashita-ai/kanshi/internal/customer"
)

// ProfileToolName is the capability name the reasoning engine calls.
const ProfileToolName = "get_customer_profile"

// RecordSource fetches raw customer records. *customer.Client satisfies it.
type RecordSource interface {
	Get(ctx context.Context, id string) (*customer.Record, error)
}

// ProfileTool resolves a customer identifier to a one-line profile the
// model can read before searching for adverse media.
type ProfileTool struct {
	records RecordSource
	logger  *slog.Logger
}

// NewProfileTool creates a ProfileTool backed by records.
func NewProfileTool(records RecordSource, logger *slog.Logger) *ProfileTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileTool{records: records, logger: logger}
}

// Lookup fetches, normalizes and renders the record for customerID. Every
// failure resolves to the textual not-found result so the model can reason
// over it; Lookup never returns an error.
func (p *ProfileTool) Lookup(ctx context.Context, customerID string) string {
	rec, err := p.records.Get(ctx, customerID)
	if err != nil || rec == nil {
		p.logger.Info("mcp: profile lookup failed",
			"customer_id", customerID,
			"error", err,
			"request_id", ctxutil.RequestIDFromContext(ctx),
			"subject", ctxutil.Subject(ctx))
		return NotFound(customerID)
	}
	return RenderProfile(customer.Normalize(rec))
}

// NotFound is the tool result for a customer that could not be fetched.
func NotFound(customerID string) string {
	return fmt.Sprintf("Error: Customer %s not found.", customerID)
}

// RenderProfile formats a normalized record as
// "Name: <first> <last>, Address: <address>[, Age: <n>][, Occupation: <x>]".
func RenderProfile(r *customer.Record) string {
	var b strings.Builder
	b.WriteString("Name: ")
	b.WriteString(r.FirstName)
	b.WriteString(" ")
	b.WriteString(r.LastName)
	b.WriteString(", Address: ")
	b.WriteString(r.Address.String())
	if r.Age != nil {
		b.WriteString(", Age: ")
		b.WriteString(strconv.Itoa(*r.Age))
	}
	if r.Occupation != "" {
		b.WriteString(", Occupation: ")
		b.WriteString(r.Occupation)
	}
	return b.String()
}

// Definition is the mcp-go schema for the profile capability.
func (p *ProfileTool) Definition() mcplib.Tool {
	return mcplib.NewTool(ProfileToolName,
		mcplib.WithDescription(`Retrieve the legal name and address of a customer from the bank's records.

WHEN TO USE: FIRST, before running any news searches. The returned name,
address, age and occupation are what you match adverse-media hits against.

Returns a single line of text. If the customer cannot be found the result
starts with "Error:".`),
		mcplib.WithReadOnlyHintAnnotation(true),
		mcplib.WithIdempotentHintAnnotation(true),
		mcplib.WithOpenWorldHintAnnotation(false),
		mcplib.WithString("customer_id",
			mcplib.Description("The bank's customer identifier"),
			mcplib.Required(),
		),
	)
}

// Handle is the mcp-go handler. It always returns a text result; a missing
// customer_id is reported as an error result rather than a Go error.
func (p *ProfileTool) Handle(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	customerID := strings.TrimSpace(request.GetString("customer_id", ""))
	if customerID == "" {
		return errorResult("customer_id is required"), nil
	}
	return mcplib.NewToolResultText(p.Lookup(ctx, customerID)), nil
}

// Tools is the capability table handed to the reasoning engine: exactly the
// profile lookup.
func (p *ProfileTool) Tools() []mcpserver.ServerTool {
	return []mcpserver.ServerTool{{Tool: p.Definition(), Handler: p.Handle}}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: "Error: " + msg},
		},
		IsError: true,
	}
}

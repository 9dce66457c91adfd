package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/kanshi/internal/adjudication"
)

func (s *Server) registerPrompts() {
	// adjudicate-customer: the Decision Card instructions plus the
	// investigation turn, for agents that run their own search tools.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("adjudicate-customer",
			mcplib.WithPromptDescription("Adverse-media adjudication instructions for one customer"),
			mcplib.WithArgument("customer_id",
				mcplib.ArgumentDescription("The bank's customer identifier"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleAdjudicatePrompt,
	)
}

func (s *Server) handleAdjudicatePrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	customerID := request.Params.Arguments["customer_id"]
	if customerID == "" {
		return nil, fmt.Errorf("customer_id argument is required")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Adjudicate adverse media for customer %s", customerID),
		Messages: []mcplib.PromptMessage{
			{
				Role:    mcplib.RoleAssistant,
				Content: mcplib.TextContent{Type: "text", Text: adjudication.SystemPrompt},
			},
			{
				Role:    mcplib.RoleUser,
				Content: mcplib.TextContent{Type: "text", Text: adjudication.Instruction(customerID)},
			},
		},
	}, nil
}

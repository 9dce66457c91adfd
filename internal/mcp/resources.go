package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/kanshi/internal/customer"
)

const customerURIPrefix = "kanshi://customer/"

func (s *Server) registerResources() {
	// kanshi://customer/{id}: one normalized customer record.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			customerURIPrefix+"{id}",
			"Customer Record",
			mcplib.WithTemplateDescription("Normalized customer record with decoded attributes"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleCustomerRecord,
	)
}

func (s *Server) handleCustomerRecord(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	customerID, ok := customerIDFromURI(uri)
	if !ok {
		return nil, fmt.Errorf("mcp: invalid customer URI: %s", uri)
	}

	rec, err := s.records.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, fmt.Errorf("mcp: customer %s not found", customerID)
		}
		return nil, fmt.Errorf("mcp: customer record: %w", err)
	}

	data, err := json.MarshalIndent(customer.Normalize(rec), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal customer: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func customerIDFromURI(uri string) (string, bool) {
	id, ok := strings.CutPrefix(uri, customerURIPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

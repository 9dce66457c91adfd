// Package mcp exposes kanshi's customer lookup as Model Context Protocol
// capabilities.
//
// ProfileTool is the single capability handed to the reasoning engine during
// an adjudication. Server publishes the same tool, plus a customer resource
// and the adjudication prompt, to external MCP clients over /mcp.
package mcp

import (
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with kanshi's customer lookup.
type Server struct {
	mcpServer *mcpserver.MCPServer
	profiles  *ProfileTool
	records   RecordSource
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources, tools and
// prompts.
func New(records RecordSource, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		profiles: NewProfileTool(records, logger),
		records:  records,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"kanshi",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Profiles returns the profile tool shared with the adjudication engine.
func (s *Server) Profiles() *ProfileTool {
	return s.profiles
}

func (s *Server) registerTools() {
	// get_customer_profile: the same capability the engine sees.
	s.mcpServer.AddTools(s.profiles.Tools()...)
}

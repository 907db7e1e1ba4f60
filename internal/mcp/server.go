// ABOUTME: MCP server implementation for amenity
// ABOUTME: Provides tools, resources, and prompts for AI agents to read and respond to prayer requests

package mcp

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"

	"github.com/harper/amenity/internal/appstate"
	"github.com/harper/amenity/internal/feedsync"
	"github.com/harper/amenity/internal/storage"
)

// DefaultUserID attributes prayers and encouragements made through MCP.
const DefaultUserID = "mcp-agent"

// Server wraps the MCP server with amenity-specific context
type Server struct {
	mcpServer *server.MCPServer
	store     storage.Store
	feed      *feedsync.Syncer
	state     *appstate.State
	log       *log.Logger
}

// NewServer creates a new MCP server instance. The syncer gives agents the
// same paging, count, and novelty behavior as the terminal UI.
func NewServer(store storage.Store, feed *feedsync.Syncer, state *appstate.State, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		store: store,
		feed:  feed,
		state: state,
		log:   logger,
	}

	// Writes made through tools bump the counter; record the starting value.
	feed.OnRefreshSignal(context.Background(), state.Counter())

	s.mcpServer = server.NewMCPServer(
		"amenity",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// afterWrite bumps the app-wide counter and lets the feed refresh its counts.
func (s *Server) afterWrite(ctx context.Context) {
	s.feed.OnRefreshSignal(ctx, s.state.Bump())
}

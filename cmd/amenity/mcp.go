// ABOUTME: MCP server command for amenity CLI
// ABOUTME: Starts stdio-based MCP server for AI agent integration

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/appstate"
	"github.com/harper/amenity/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agents",
	Long: `Start the Model Context Protocol (MCP) server on stdio.

This allows AI agents like Claude to read the prayer feed, page through it,
post requests, pray, and leave encouragement through structured tools.

The server communicates via JSON-RPC on stdin/stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		state := appstate.New()
		feed := newFeed(state)
		defer feed.Close()

		server := mcp.NewServer(store, feed, state, logger)

		// Follows the refresh counter, and polls when enabled in config.
		go feed.Watch(ctx, state)

		if err := server.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

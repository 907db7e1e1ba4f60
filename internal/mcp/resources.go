// ABOUTME: MCP resource providers for amenity
// ABOUTME: Exposes read-only views of the loaded feed and overall statistics

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs.
const (
	FeedResourceURI  = "amenity://feed"
	StatsResourceURI = "amenity://stats"
)

// ResourceData is the standard response format for all resources.
type ResourceData struct {
	Metadata ResourceMetadata  `json:"metadata"`
	Data     interface{}       `json:"data"`
	Links    map[string]string `json:"links"`
}

// ResourceMetadata contains metadata about the resource response.
type ResourceMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Count       int       `json:"count"`
	ResourceURI string    `json:"resource_uri"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         FeedResourceURI,
			Name:        "Prayer Feed",
			Description: "The currently loaded prayer request feed, newest first, with prayer and encouragement counts and new-arrival flags",
			MIMEType:    "application/json",
		},
		s.handleFeedResource,
	)
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         StatsResourceURI,
			Name:        "Statistics",
			Description: "Totals for requests (active and answered), prayers, and encouragements",
			MIMEType:    "application/json",
		},
		s.handleStatsResource,
	)
}

func (s *Server) handleFeedResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s.feed.OnFocus(ctx)
	feed := feedOutput(s.feed.Snapshot(), nil)

	return resourceJSON(request.Params.URI, ResourceData{
		Metadata: ResourceMetadata{
			Timestamp:   time.Now(),
			Count:       feed.Count,
			ResourceURI: FeedResourceURI,
		},
		Data:  feed,
		Links: map[string]string{"stats": StatsResourceURI},
	})
}

func (s *Server) handleStatsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return resourceJSON(request.Params.URI, ResourceData{
		Metadata: ResourceMetadata{
			Timestamp:   time.Now(),
			Count:       st.TotalRequests,
			ResourceURI: StatsResourceURI,
		},
		Data:  st,
		Links: map[string]string{"feed": FeedResourceURI},
	})
}

func resourceJSON(uri string, data ResourceData) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

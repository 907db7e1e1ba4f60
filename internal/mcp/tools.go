// ABOUTME: MCP tool definitions and handlers for the prayer feed
// ABOUTME: Provides tools for paging the feed, reading requests, posting, praying, and encouraging

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/amenity/internal/content"
	"github.com/harper/amenity/internal/feedsync"
	"github.com/harper/amenity/internal/models"
	"github.com/harper/amenity/internal/storage"
	"github.com/harper/amenity/internal/timeutil"
)

// Type definitions for input/output structures

type RequestOutput struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category"`
	Urgency        string    `json:"urgency"`
	Status         string    `json:"status"`
	Anonymous      bool      `json:"anonymous"`
	CreatedAt      time.Time `json:"created_at"`
	Age            string    `json:"age"`
	Prayers        int       `json:"prayers"`
	Encouragements int       `json:"encouragements"`
	New            bool      `json:"new,omitempty"`
}

type FeedOutput struct {
	Requests    []RequestOutput `json:"requests"`
	Count       int             `json:"count"`
	Offset      int             `json:"offset"`
	HasMore     bool            `json:"has_more"`
	LastRefresh *time.Time      `json:"last_refresh,omitempty"`
	Fetched     *bool           `json:"fetched,omitempty"`
}

type RefreshFeedInput struct {
	Force bool `json:"force,omitempty"`
}

type RequestRefInput struct {
	RequestID string `json:"request_id"`
}

type EncouragementOutput struct {
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type GetRequestOutput struct {
	RequestOutput
	RecentEncouragements []EncouragementOutput `json:"recent_encouragements"`
}

type CreateRequestInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Urgency     string `json:"urgency,omitempty"`
	Author      string `json:"author,omitempty"`
}

type PrayForInput struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id,omitempty"`
}

type EncourageInput struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
}

type MarkAnsweredInput struct {
	RequestID string `json:"request_id"`
	Reopen    bool   `json:"reopen,omitempty"`
}

type ActionOutput struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Request RequestOutput `json:"request"`
}

// Tool registration

func (s *Server) registerTools() {
	s.registerListFeedTool()
	s.registerLoadMoreTool()
	s.registerRefreshFeedTool()
	s.registerGetRequestTool()
	s.registerCreateRequestTool()
	s.registerPrayForTool()
	s.registerEncourageTool()
	s.registerMarkAnsweredTool()
}

func requestIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "The request ID or an ID prefix of at least 6 characters. Example: 'abc12345'",
	}
}

func (s *Server) registerListFeedTool() {
	tool := mcp.Tool{
		Name:        "list_feed",
		Description: "Show the prayer request feed as currently loaded, newest first, with prayer and encouragement counts. The feed reloads automatically when it is empty or stale. Requests flagged new=true arrived since the previous load. Use load_more to page further.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListFeed)
}

func (s *Server) registerLoadMoreTool() {
	tool := mcp.Tool{
		Name:        "load_more",
		Description: "Append the next page of older requests to the feed. Does nothing once has_more is false. Returns the whole loaded feed.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
	s.mcpServer.AddTool(tool, s.handleLoadMore)
}

func (s *Server) registerRefreshFeedTool() {
	tool := mcp.Tool{
		Name:        "refresh_feed",
		Description: "Reload the first page of the feed. With force=true the loaded pages and counts are discarded first and paging starts over.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Discard loaded pages before reloading. Default: false",
				},
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRefreshFeed)
}

func (s *Server) registerGetRequestTool() {
	tool := mcp.Tool{
		Name:        "get_request",
		Description: "Get one prayer request with its full description, counts, and the most recent encouragement messages.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"request_id": requestIDProperty(),
			},
			Required: []string{"request_id"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleGetRequest)
}

func (s *Server) registerCreateRequestTool() {
	tool := mcp.Tool{
		Name:        "create_request",
		Description: "Post a new prayer request. It appears at the top of the feed flagged as new. Leave author empty to post anonymously.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Short title. Example: 'Healing for my mother'",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Optional details, Markdown allowed.",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Optional category. Default: 'general'. Example: 'health'",
				},
				"urgency": map[string]interface{}{
					"type":        "string",
					"description": "One of low, normal, high, urgent. Default: normal",
				},
				"author": map[string]interface{}{
					"type":        "string",
					"description": "Optional author id. Omit for an anonymous request.",
				},
			},
			Required: []string{"title"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleCreateRequest)
}

func (s *Server) registerPrayForTool() {
	tool := mcp.Tool{
		Name:        "pray_for",
		Description: "Record that you prayed for a request. Increments its prayer count.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"request_id": requestIDProperty(),
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional user id to attribute the prayer to.",
				},
			},
			Required: []string{"request_id"},
		},
	}
	s.mcpServer.AddTool(tool, s.handlePrayFor)
}

func (s *Server) registerEncourageTool() {
	tool := mcp.Tool{
		Name:        "encourage",
		Description: "Leave a short encouragement message on a request. Increments its encouragement count.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"request_id": requestIDProperty(),
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The encouragement text. Example: 'Praying for you this week!'",
				},
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional user id to attribute the message to.",
				},
			},
			Required: []string{"request_id", "message"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleEncourage)
}

func (s *Server) registerMarkAnsweredTool() {
	tool := mcp.Tool{
		Name:        "mark_answered",
		Description: "Mark a request as answered, or set reopen=true to make it active again.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"request_id": requestIDProperty(),
				"reopen": map[string]interface{}{
					"type":        "boolean",
					"description": "Return an answered request to active. Default: false",
				},
			},
			Required: []string{"request_id"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleMarkAnswered)
}

// Handler implementations

func (s *Server) handleListFeed(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.feed.OnFocus(ctx)
	return jsonResult(feedOutput(s.feed.Snapshot(), nil))
}

func (s *Server) handleLoadMore(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if len(s.feed.Snapshot().Items) == 0 {
		s.feed.LoadInitial(ctx, false)
	}
	fetched := s.feed.LoadMore(ctx)
	return jsonResult(feedOutput(s.feed.Snapshot(), &fetched))
}

func (s *Server) handleRefreshFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RefreshFeedInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	// A failed reload keeps the previous page; the Syncer logs the error.
	s.feed.LoadInitial(ctx, input.Force)
	return jsonResult(feedOutput(s.feed.Snapshot(), nil))
}

func (s *Server) handleGetRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RequestRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	r, err := s.lookup(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	counts, err := s.countsFor(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	encs, err := s.store.ListEncouragements(ctx, r.ID, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to list encouragements: %w", err)
	}

	out := GetRequestOutput{
		RequestOutput:        requestOutput(r, counts, false, time.Now()),
		RecentEncouragements: make([]EncouragementOutput, 0, len(encs)),
	}
	out.Description = content.ToMarkdown(r.Description)
	for _, e := range encs {
		out.RecentEncouragements = append(out.RecentEncouragements, EncouragementOutput{
			Message:   e.Message,
			UserID:    e.UserID,
			CreatedAt: e.CreatedAt,
		})
	}
	return jsonResult(out)
}

func (s *Server) handleCreateRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CreateRequestInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	urgency, err := models.ParseUrgency(input.Urgency)
	if err != nil {
		return nil, err
	}

	r := models.NewRequest(strings.TrimSpace(input.Title), strings.TrimSpace(input.Description))
	r.Urgency = urgency
	if c := strings.TrimSpace(input.Category); c != "" {
		r.Category = strings.ToLower(c)
	}
	if input.Author != "" {
		author := input.Author
		r.AuthorID = &author
	}

	if err := s.store.CreateRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.state.SetHighlight(r.ID)
	s.state.Bump()
	s.feed.LoadInitial(ctx, false)

	return jsonResult(ActionOutput{
		Success: true,
		Message: fmt.Sprintf("Posted request %q", r.Title),
		Request: requestOutput(r, models.Counts{}, true, time.Now()),
	})
}

func (s *Server) handlePrayFor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input PrayForInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	r, err := s.lookup(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddPrayer(ctx, models.NewPrayer(r.ID, userOrDefault(input.UserID))); err != nil {
		return nil, fmt.Errorf("failed to record prayer: %w", err)
	}
	s.afterWrite(ctx)

	return s.actionResult(ctx, r, fmt.Sprintf("Prayed for %q", r.Title))
}

func (s *Server) handleEncourage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input EncourageInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	msg := strings.TrimSpace(input.Message)
	if msg == "" {
		return nil, fmt.Errorf("message is required")
	}

	r, err := s.lookup(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddEncouragement(ctx, models.NewEncouragement(r.ID, userOrDefault(input.UserID), msg)); err != nil {
		return nil, fmt.Errorf("failed to add encouragement: %w", err)
	}
	s.afterWrite(ctx)

	return s.actionResult(ctx, r, fmt.Sprintf("Encouraged %q", r.Title))
}

func (s *Server) handleMarkAnswered(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input MarkAnsweredInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	r, err := s.lookup(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	status, verb := models.StatusAnswered, "answered"
	if input.Reopen {
		status, verb = models.StatusActive, "reopened"
	}
	if err := s.store.UpdateRequestStatus(ctx, r.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	r.Status = status
	s.state.Bump()

	return s.actionResult(ctx, r, fmt.Sprintf("Marked %q as %s", r.Title, verb))
}

// Helpers

func (s *Server) lookup(ctx context.Context, ref string) (*models.Request, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("request_id is required")
	}
	r, err := storage.GetRequestByIDOrPrefix(ctx, s.store, ref)
	if err != nil {
		return nil, fmt.Errorf("request not found: %s", ref)
	}
	return r, nil
}

func (s *Server) countsFor(ctx context.Context, id string) (models.Counts, error) {
	var c models.Counts
	for _, kind := range models.CountKinds {
		n, err := s.store.CountAggregate(ctx, id, kind)
		if err != nil {
			return c, fmt.Errorf("failed to count %ss: %w", kind, err)
		}
		c = c.With(kind, n)
	}
	return c, nil
}

func (s *Server) actionResult(ctx context.Context, r *models.Request, msg string) (*mcp.CallToolResult, error) {
	counts, err := s.countsFor(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return jsonResult(ActionOutput{
		Success: true,
		Message: msg,
		Request: requestOutput(r, counts, false, time.Now()),
	})
}

func userOrDefault(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultUserID
	}
	return id
}

func requestOutput(r *models.Request, c models.Counts, isNew bool, now time.Time) RequestOutput {
	return RequestOutput{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		Urgency:        string(r.Urgency),
		Status:         string(r.Status),
		Anonymous:      r.IsAnonymous(),
		CreatedAt:      r.CreatedAt,
		Age:            timeutil.Ago(r.CreatedAt, now),
		Prayers:        c.Prayers,
		Encouragements: c.Encouragements,
		New:            isNew,
	}
}

func feedOutput(snap feedsync.Snapshot, fetched *bool) FeedOutput {
	now := time.Now()
	out := FeedOutput{
		Requests: make([]RequestOutput, 0, len(snap.Items)),
		Count:    len(snap.Items),
		Offset:   snap.Window.Offset,
		HasMore:  snap.Window.HasMore,
		Fetched:  fetched,
	}
	if !snap.LastRefresh.IsZero() {
		t := snap.LastRefresh
		out.LastRefresh = &t
	}
	for _, r := range snap.Items {
		ro := requestOutput(r, snap.CountsFor(r.ID), snap.IsNovel(r.ID), now)
		ro.Description = content.Excerpt(r.Description, 160)
		out.Requests = append(out.Requests, ro)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

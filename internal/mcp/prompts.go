// ABOUTME: MCP prompt definitions and handlers
// ABOUTME: Provides a daily prayer workflow template for agents

package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "daily_prayer",
			Description: "Walk through today's prayer requests: read the feed, pray, and leave encouragement",
			Arguments: []mcp.PromptArgument{
				{
					Name:        "focus",
					Description: "Optional category to focus on, e.g. health or family",
					Required:    false,
				},
			},
		},
		s.handleDailyPrayer,
	)
}

const dailyPrayerTemplate = `# Daily Prayer

## Overview
Spend a few minutes with the prayer feed. Read what people have shared, pray for them, and let them know they are not alone.

## Workflow Steps

### Step 1: Read the Feed
**Use the list_feed tool** (or the amenity://feed resource).
- Requests marked new=true arrived since the last load; start there.
- Note urgency: urgent and high requests come first.
- Requests with few prayers or encouragements may need attention most.

### Step 2: Go Deeper
**Use get_request** on the requests you want to pray for.
- Read the full description and recent encouragements.
- Use load_more when has_more is true and you want to see older requests.

### Step 3: Pray
**Use pray_for** for each request you prayed over.
- The prayer count updates immediately.

### Step 4: Encourage
**Use encourage** with a short, warm message.
- Be specific to the request. Avoid advice unless asked.
- Example: "Praying for a smooth recovery after Tuesday's surgery."

### Step 5: Celebrate Answers
If a request owner says their prayer was answered, **use mark_answered**.

## Tips
- Use refresh_feed with force=true if the feed looks out of date.
- Check amenity://stats to see how the community is doing overall.
`

func (s *Server) handleDailyPrayer(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := dailyPrayerTemplate
	if focus := req.Params.Arguments["focus"]; focus != "" {
		text += fmt.Sprintf("\n## Focus\nToday, give extra attention to requests in the %q category.\n", focus)
	}

	return &mcp.GetPromptResult{
		Description: "Daily prayer workflow for the request feed",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}, nil
}

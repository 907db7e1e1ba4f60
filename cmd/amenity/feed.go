// ABOUTME: Feed command for listing prayer requests one page at a time
// ABOUTME: Prints requests newest first with prayer and encouragement counts, or JSON with --json

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/config"
	"github.com/harper/amenity/internal/models"
)

type feedRequestJSON struct {
	*models.Request
	Prayers        int `json:"prayers"`
	Encouragements int `json:"encouragements"`
}

type feedPageJSON struct {
	Requests   []feedRequestJSON `json:"requests"`
	Offset     int               `json:"offset"`
	Limit      int               `json:"limit"`
	NextOffset int               `json:"next_offset"`
	HasMore    bool              `json:"has_more"`
}

var feedCmd = &cobra.Command{
	Use:     "feed",
	Aliases: []string{"ls", "list"},
	Short:   "List prayer requests",
	Long: `List one page of prayer requests, newest first, with prayer and encouragement counts.

Use --offset to page further; the footer shows the next offset while more remain.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		asJSON, _ := cmd.Flags().GetBool("json")

		if limit <= 0 || limit > config.MaxPageSize {
			return fmt.Errorf("--limit must be between 1 and %d", config.MaxPageSize)
		}
		if offset < 0 {
			return fmt.Errorf("--offset must not be negative")
		}

		ctx := cmd.Context()
		reqs, err := store.ListRequests(ctx, limit, offset)
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}

		ids := make([]string, len(reqs))
		for i, r := range reqs {
			ids[i] = r.ID
		}
		counts := loadCounts(ctx, ids)

		// A full page means there may be more.
		hasMore := len(reqs) == limit
		out := cmd.OutOrStdout()

		if asJSON {
			page := feedPageJSON{
				Requests:   make([]feedRequestJSON, 0, len(reqs)),
				Offset:     offset,
				Limit:      limit,
				NextOffset: offset + len(reqs),
				HasMore:    hasMore,
			}
			for _, r := range reqs {
				c := counts[r.ID]
				page.Requests = append(page.Requests, feedRequestJSON{Request: r, Prayers: c.Prayers, Encouragements: c.Encouragements})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(page)
		}

		if len(reqs) == 0 {
			if offset > 0 {
				fmt.Fprintln(out, "No more requests")
			} else {
				fmt.Fprintln(out, "No prayer requests yet. Post one with 'amenity post <title>'")
			}
			return nil
		}

		now := time.Now()
		for _, r := range reqs {
			printRequestRow(out, r, counts[r.ID], now)
		}

		if hasMore {
			faint := color.New(color.Faint).SprintFunc()
			fmt.Fprintln(out, faint(fmt.Sprintf("more: amenity feed --offset %d", offset+len(reqs))))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().IntP("limit", "n", config.DefaultListLimit, "requests per page")
	feedCmd.Flags().IntP("offset", "o", 0, "number of requests to skip (for pagination)")
	feedCmd.Flags().Bool("json", false, "print the page as JSON")
}

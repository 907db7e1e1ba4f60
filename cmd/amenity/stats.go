// ABOUTME: Stats and search commands for amenity CLI
// ABOUTME: Prints overall totals and runs text search over requests

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show overall statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		bold := color.New(color.Bold).SprintFunc()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, bold("amenity statistics"))
		fmt.Fprintf(out, "  Backend:         %s\n", cfg.GetBackend())
		fmt.Fprintf(out, "  Requests:        %d (%d active, %d answered)\n", st.TotalRequests, st.Active, st.Answered)
		fmt.Fprintf(out, "  Prayers:         %d\n", st.Prayers)
		fmt.Fprintf(out, "  Encouragements:  %d\n", st.Encouragements)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search request titles and descriptions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()

		results, err := store.Search(ctx, strings.Join(args, " "), limit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No matching requests")
			return nil
		}

		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		counts := loadCounts(ctx, ids)
		now := time.Now()
		for _, r := range results {
			printRequestRow(out, r, counts[r.ID], now)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntP("limit", "n", config.DefaultListLimit, "max results to show")
}

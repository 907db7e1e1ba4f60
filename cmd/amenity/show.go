// ABOUTME: Show command for reading a single prayer request
// ABOUTME: Renders the description with glamour and lists recent encouragements

package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/config"
	"github.com/harper/amenity/internal/content"
	"github.com/harper/amenity/internal/timeutil"
)

var showCmd = &cobra.Command{
	Use:     "show <request-id>",
	Aliases: []string{"read"},
	Short:   "Show a prayer request",
	Long:    "Display a request's full description, counts, and recent encouragements",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("encouragements")
		ctx := cmd.Context()

		req, err := lookupRequest(ctx, args[0])
		if err != nil {
			return err
		}
		counts := loadCounts(ctx, []string{req.ID})
		c := counts[req.ID]

		bold := color.New(color.Bold).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, separator())
		fmt.Fprintf(out, "%s\n\n", bold(req.Title))
		fmt.Fprintf(out, "%s %s\n", faint("ID:"), req.ID)
		fmt.Fprintf(out, "%s %s\n", faint("Category:"), req.Category)
		fmt.Fprintf(out, "%s %s\n", faint("Urgency:"), req.Urgency)
		fmt.Fprintf(out, "%s %s\n", faint("Status:"), req.Status)
		if !req.IsAnonymous() {
			fmt.Fprintf(out, "%s %s\n", faint("Author:"), *req.AuthorID)
		}
		fmt.Fprintf(out, "%s %s\n", faint("Posted:"), req.CreatedAt.Format(config.DateFormatLong))
		fmt.Fprintf(out, "%s %s\n", faint("Counts:"), cyan(fmt.Sprintf("%d prayers · %d encouragements", c.Prayers, c.Encouragements)))
		fmt.Fprintln(out, separator())

		if req.Description != "" {
			markdown := content.ToMarkdown(req.Description)
			rendered, err := glamour.Render(markdown, "dark")
			if err != nil {
				fmt.Fprintf(out, "%s\n", faint("(markdown rendering unavailable, showing plain text)"))
				fmt.Fprintf(out, "\n%s\n", markdown)
			} else {
				fmt.Fprint(out, rendered)
			}
		} else {
			fmt.Fprintln(out, "\n(No description)")
		}

		encs, err := store.ListEncouragements(ctx, req.ID, limit)
		if err != nil {
			return fmt.Errorf("failed to list encouragements: %w", err)
		}
		if len(encs) == 0 {
			return nil
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, bold("Encouragements"))
		now := time.Now()
		for _, e := range encs {
			fmt.Fprintf(out, "  %s %s\n", e.Message, faint(fmt.Sprintf("- %s, %s", e.UserID, timeutil.Ago(e.CreatedAt, now))))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().IntP("encouragements", "e", 10, "number of recent encouragements to show")
}

// ABOUTME: Post command for creating prayer requests
// ABOUTME: Validates urgency, stores the request, and optionally opens the browser with it highlighted

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/appstate"
	"github.com/harper/amenity/internal/config"
	"github.com/harper/amenity/internal/models"
)

var postCmd = &cobra.Command{
	Use:   "post <title>",
	Short: "Post a new prayer request",
	Long: `Post a new prayer request. The title may span several arguments.

Examples:
  amenity post "Healing for my mother" -d "Surgery on Tuesday" -c health -u high
  amenity post Safe travels this weekend --browse`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		category, _ := cmd.Flags().GetString("category")
		urgencyFlag, _ := cmd.Flags().GetString("urgency")
		author, _ := cmd.Flags().GetString("author")
		browse, _ := cmd.Flags().GetBool("browse")

		title := strings.TrimSpace(strings.Join(args, " "))
		if title == "" {
			return fmt.Errorf("title is required")
		}
		urgency, err := models.ParseUrgency(urgencyFlag)
		if err != nil {
			return err
		}

		req := models.NewRequest(title, strings.TrimSpace(description))
		req.Urgency = urgency
		if c := strings.TrimSpace(category); c != "" {
			req.Category = strings.ToLower(c)
		}
		if author != "" {
			req.AuthorID = &author
		}

		if err := store.CreateRequest(cmd.Context(), req); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Posted %s %s\n", green("v"), faint(req.ShortID(config.DisplayIDLength)), req.Title)

		if !browse {
			return nil
		}
		state := appstate.New()
		state.SetHighlight(req.ID)
		return runBrowser(cmd.Context(), state)
	},
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().StringP("description", "d", "", "request details (Markdown allowed)")
	postCmd.Flags().StringP("category", "c", "", "category (default: general)")
	postCmd.Flags().StringP("urgency", "u", "", "low, normal, high, or urgent (default: normal)")
	postCmd.Flags().String("author", "", "author id (omit to post anonymously)")
	postCmd.Flags().Bool("browse", false, "open the feed browser with the new request highlighted")
}

// ABOUTME: Browse command for the interactive feed TUI
// ABOUTME: Wires the configured store into a synchronizer and runs the bubbletea program

package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/appstate"
	"github.com/harper/amenity/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:     "browse",
	Aliases: []string{"ui"},
	Short:   "Browse the prayer feed interactively",
	Long: `Open the interactive feed browser.

Keys:
  j/k, arrows   move (older pages load as you reach the bottom)
  p             pray for the selected request
  e             leave an encouragement
  r             reload from the first page
  q             quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowser(cmd.Context(), appstate.New())
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

// runBrowser runs the feed TUI until the user quits. A highlight set on
// state is shown as new on the first load.
func runBrowser(ctx context.Context, state *appstate.State) error {
	feed := newFeed(state)
	defer feed.Close()

	model := tui.NewFeedModel(ctx, feed, store, state)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// ABOUTME: Pray and encourage commands for responding to prayer requests
// ABOUTME: Record an interaction by ID or prefix and print the updated counts

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/models"
)

var prayCmd = &cobra.Command{
	Use:   "pray <request-id>",
	Short: "Record that you prayed for a request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		ctx := cmd.Context()

		req, err := lookupRequest(ctx, args[0])
		if err != nil {
			return err
		}
		if err := store.AddPrayer(ctx, models.NewPrayer(req.ID, user)); err != nil {
			return fmt.Errorf("failed to record prayer: %w", err)
		}

		n, err := store.CountAggregate(ctx, req.ID, models.KindPrayer)
		if err != nil {
			return fmt.Errorf("failed to count prayers: %w", err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Prayed for %q (%d prayers)\n", green("v"), req.Title, n)
		return nil
	},
}

var encourageCmd = &cobra.Command{
	Use:   "encourage <request-id> <message>",
	Short: "Leave an encouragement on a request",
	Long: `Leave a short encouragement message on a request. The message may span several arguments.

Example:
  amenity encourage abc12345 Praying for a smooth recovery`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		ctx := cmd.Context()

		msg := strings.TrimSpace(strings.Join(args[1:], " "))
		if msg == "" {
			return fmt.Errorf("message is required")
		}

		req, err := lookupRequest(ctx, args[0])
		if err != nil {
			return err
		}
		if err := store.AddEncouragement(ctx, models.NewEncouragement(req.ID, user, msg)); err != nil {
			return fmt.Errorf("failed to add encouragement: %w", err)
		}

		n, err := store.CountAggregate(ctx, req.ID, models.KindEncouragement)
		if err != nil {
			return fmt.Errorf("failed to count encouragements: %w", err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Encouraged %q (%d encouragements)\n", green("v"), req.Title, n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prayCmd)
	rootCmd.AddCommand(encourageCmd)

	prayCmd.Flags().String("user", cliUserID, "user id to attribute the prayer to")
	encourageCmd.Flags().String("user", cliUserID, "user id to attribute the message to")
}

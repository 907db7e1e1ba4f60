// ABOUTME: Answer, reopen, and remove commands for managing a request's lifecycle
// ABOUTME: Status changes and deletion by full ID or prefix

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/models"
)

var answerCmd = &cobra.Command{
	Use:   "answer <request-id>",
	Short: "Mark a request as answered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args[0], models.StatusAnswered)
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <request-id>",
	Short: "Return an answered request to active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args[0], models.StatusActive)
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <request-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a request with its prayers and encouragements",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		req, err := lookupRequest(ctx, args[0])
		if err != nil {
			return err
		}
		if err := store.DeleteRequest(ctx, req.ID); err != nil {
			return fmt.Errorf("failed to delete request: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", req.Title)
		return nil
	},
}

func setStatus(cmd *cobra.Command, ref string, status models.Status) error {
	ctx := cmd.Context()
	req, err := lookupRequest(ctx, ref)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if req.Status == status {
		fmt.Fprintf(out, "%q is already %s\n", req.Title, status)
		return nil
	}
	if err := store.UpdateRequestStatus(ctx, req.ID, status); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(out, "%s %q is now %s\n", green("v"), req.Title, status)
	return nil
}

func init() {
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(removeCmd)
}

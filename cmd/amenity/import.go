// ABOUTME: Import command to create prayer requests from an RSS/Atom feed or YAML file
// ABOUTME: Discovers feeds behind URLs, parses drafts, and reports per-item results

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/config"
	"github.com/harper/amenity/internal/discover"
	"github.com/harper/amenity/internal/parse"
)

var importCmd = &cobra.Command{
	Use:   "import <url|file>",
	Short: "Import prayer requests from a feed or YAML file",
	Long: `Import prayer requests from an RSS/Atom feed URL, a web page that links
to one, or a local file.

Feed items become requests with their HTML converted to Markdown. YAML files
hold a list of requests:

  - title: Healing for my mother
    description: Surgery on Tuesday
    category: health
    urgency: high

Use --dry-run to see what would be imported without writing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		ctx := cmd.Context()
		src := args[0]

		drafts, err := readImportSource(ctx, cmd.OutOrStdout(), src)
		if err != nil {
			return err
		}
		return importDrafts(ctx, cmd.OutOrStdout(), drafts, dryRun)
	},
}

// readImportSource loads drafts from src. URLs go through discovery, so a
// church web page with a feed link works as well as the feed itself.
func readImportSource(ctx context.Context, out io.Writer, src string) ([]parse.Draft, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		found, err := discover.Discover(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", src, err)
		}
		if found.URL != src {
			fmt.Fprintf(out, "Found %s\n", found.URL)
		}
		return found.Drafts, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src, err)
	}
	drafts, err := parse.Parse(data, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", src, err)
	}
	return drafts, nil
}

func importDrafts(ctx context.Context, out io.Writer, drafts []parse.Draft, dryRun bool) error {
	if len(drafts) == 0 {
		fmt.Fprintln(out, "Nothing to import")
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	imported, failed := 0, 0
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			fmt.Fprintf(out, "%s %s: %s\n", red("x"), d.Title, err)
			failed++
			continue
		}
		req := d.ToRequest()
		if dryRun {
			fmt.Fprintf(out, "%s %s %s\n", faint("-"), req.Title, faint("(dry run)"))
			imported++
			continue
		}
		if err := store.CreateRequest(ctx, req); err != nil {
			fmt.Fprintf(out, "%s %s: %s\n", red("x"), req.Title, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s %s %s\n", green("v"), faint(req.ShortID(config.DisplayIDLength)), req.Title)
		imported++
	}

	fmt.Fprintln(out)
	verb := "imported"
	if dryRun {
		verb = "would be imported"
	}
	fmt.Fprintf(out, "Summary: %d request(s) %s", imported, verb)
	if failed > 0 {
		fmt.Fprintf(out, ", %s", red(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Fprintln(out)
	return nil
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Bool("dry-run", false, "parse and validate without creating requests")
}

// ABOUTME: Shared helpers for amenity commands
// ABOUTME: Request lookup, count loading, feed construction, and colored row output

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/harper/amenity/internal/appstate"
	"github.com/harper/amenity/internal/config"
	"github.com/harper/amenity/internal/feedsync"
	"github.com/harper/amenity/internal/models"
	"github.com/harper/amenity/internal/storage"
	"github.com/harper/amenity/internal/timeutil"
)

// cliUserID attributes prayers and encouragements made from the command line.
const cliUserID = "cli"

// lookupRequest resolves a full ID or an ID prefix.
func lookupRequest(ctx context.Context, ref string) (*models.Request, error) {
	req, err := storage.GetRequestByIDOrPrefix(ctx, store, ref)
	if err != nil {
		return nil, fmt.Errorf("request not found: %s", ref)
	}
	return req, nil
}

// loadCounts fetches every aggregate for ids. A failed batch falls back to
// per-request counts and failed counts read as zero, as in the feed browser.
func loadCounts(ctx context.Context, ids []string) map[string]models.Counts {
	opts := cfg.FeedOptions()
	opts.Logger = logger
	return feedsync.New(store, opts).FetchCounts(ctx, ids)
}

// newFeed builds a synchronizer over the open store using the config's feed settings.
func newFeed(state *appstate.State) *feedsync.Syncer {
	opts := cfg.FeedOptions()
	opts.Logger = logger
	opts.Highlighter = state
	return feedsync.New(store, opts)
}

// printRequestRow writes one feed line: short id, title, markers, counts, and age.
func printRequestRow(w io.Writer, r *models.Request, c models.Counts, now time.Time) {
	faint := color.New(color.Faint).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprint(w, faint(r.ShortID(config.DisplayIDLength)))
	fmt.Fprint(w, " ")

	if r.Status == models.StatusAnswered {
		fmt.Fprint(w, green("✓ "))
	} else {
		fmt.Fprint(w, "  ")
	}

	fmt.Fprint(w, r.Title)
	if r.Urgency == models.UrgencyHigh || r.Urgency == models.UrgencyUrgent {
		fmt.Fprint(w, " ")
		fmt.Fprint(w, red("!"+string(r.Urgency)))
	}

	fmt.Fprintf(w, " %s\n", faint(fmt.Sprintf("[%s] %d prayers · %d encouragements · %s",
		r.Category, c.Prayers, c.Encouragements, timeutil.Ago(r.CreatedAt, now))))
}

// separator returns the horizontal rule used around request details.
func separator() string {
	return strings.Repeat("─", config.SeparatorWidth)
}

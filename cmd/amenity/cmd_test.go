// ABOUTME: Tests for CLI commands
// ABOUTME: Tests command structure, flags, and end-to-end runs against a temporary SQLite store

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/harper/amenity/internal/config"
	"github.com/harper/amenity/internal/models"
	"github.com/harper/amenity/internal/storage"
	"github.com/harper/amenity/internal/tui"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "amenity" {
		t.Errorf("expected Use to be 'amenity', got %q", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected root command to have a short description")
	}
	for _, name := range []string{"data-dir", "backend"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s persistent flag", name)
		}
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"feed", "post", "pray", "encourage", "answer", "reopen", "remove",
		"show", "browse", "import", "mcp", "setup", "version", "stats", "search", "migrate"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

func TestFeedCommand(t *testing.T) {
	if feedCmd.Use != "feed" {
		t.Errorf("expected Use to be 'feed', got %q", feedCmd.Use)
	}
	if len(feedCmd.Aliases) == 0 {
		t.Error("expected feed command to have aliases")
	}
	for _, name := range []string{"limit", "offset", "json"} {
		if feedCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to exist", name)
		}
	}
}

func TestPostCommand(t *testing.T) {
	if postCmd.Use != "post <title>" {
		t.Errorf("expected Use to be 'post <title>', got %q", postCmd.Use)
	}
	for _, name := range []string{"description", "category", "urgency", "author", "browse"} {
		if postCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to exist", name)
		}
	}
}

func TestCommandsWithoutStore(t *testing.T) {
	for _, c := range []struct {
		name string
		ann  map[string]string
	}{
		{"version", versionCmd.Annotations},
		{"setup", setupCmd.Annotations},
	} {
		if c.ann[noStoreAnnotation] == "" {
			t.Errorf("expected %s to skip opening storage", c.name)
		}
	}
}

func TestApplySetup(t *testing.T) {
	c := &config.Config{Backend: config.BackendSQLite, DataDir: "/old"}
	applySetup(c, tui.SetupResult{Backend: config.BackendSupabase, DataDir: "/ignored", SupabaseURL: "https://p.supabase.co", SupabaseKey: "k"})
	if c.Backend != config.BackendSupabase || c.SupabaseURL != "https://p.supabase.co" || c.SupabaseKey != "k" {
		t.Errorf("unexpected config %+v", c)
	}
	if c.DataDir != "/old" {
		t.Errorf("expected data dir untouched for supabase, got %q", c.DataDir)
	}

	applySetup(c, tui.SetupResult{Backend: config.BackendKV, DataDir: "/new"})
	if c.Backend != config.BackendKV || c.DataDir != "/new" {
		t.Errorf("unexpected config %+v", c)
	}
}

func TestMigrateTarget(t *testing.T) {
	current := &config.Config{Backend: config.BackendSQLite, DataDir: "/data/amenity"}

	if _, err := migrateTarget(current, "markdown", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := migrateTarget(current, config.BackendSQLite, ""); err == nil {
		t.Error("expected error for same backend and directory")
	}

	target, err := migrateTarget(current, config.BackendSQLite, "/other")
	if err != nil {
		t.Fatalf("migrateTarget: %v", err)
	}
	if target.GetDataDir() != "/other" {
		t.Errorf("expected target dir /other, got %q", target.GetDataDir())
	}

	target, err = migrateTarget(current, config.BackendKV, "")
	if err != nil {
		t.Fatalf("migrateTarget: %v", err)
	}
	if target.Backend != config.BackendKV || current.Backend != config.BackendSQLite {
		t.Error("expected target to be a modified copy")
	}
}

// isolate points config, data, and state at temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv(config.EnvSupabaseURL, "")
	t.Setenv(config.EnvSupabaseKey, "")
	return dir
}

// resetFlags restores every flag to its default; cobra keeps values between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil && store != nil {
		store.Close()
		store = nil
	}
	return buf.String(), err
}

type feedPage struct {
	Requests []struct {
		ID             string `json:"id"`
		Title          string `json:"title"`
		Prayers        int    `json:"prayers"`
		Encouragements int    `json:"encouragements"`
	} `json:"requests"`
	NextOffset int  `json:"next_offset"`
	HasMore    bool `json:"has_more"`
}

func TestEndToEnd(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "post", "Healing", "for", "grandma", "-d", "Her **hip** surgery", "-c", "Health", "-u", "high")
	if err != nil {
		t.Fatalf("post: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Posted") || !strings.Contains(out, "Healing for grandma") {
		t.Errorf("unexpected post output %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "amenity", config.DefaultDBFilename)); err != nil {
		t.Errorf("expected sqlite database in data dir: %v", err)
	}

	if _, err := execute(t, "post", "New", "job"); err != nil {
		t.Fatalf("post: %v", err)
	}

	out, err = execute(t, "feed", "--json", "--limit", "1")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	var page feedPage
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("unmarshal feed: %v\n%s", err, out)
	}
	if len(page.Requests) != 1 || page.Requests[0].Title != "New job" || !page.HasMore || page.NextOffset != 1 {
		t.Fatalf("unexpected first page %+v", page)
	}

	out, err = execute(t, "feed", "--json", "--limit", "1", "--offset", "1")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	page = feedPage{}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("unmarshal feed: %v", err)
	}
	if len(page.Requests) != 1 || page.Requests[0].Title != "Healing for grandma" {
		t.Fatalf("unexpected second page %+v", page)
	}
	healing := page.Requests[0].ID

	out, err = execute(t, "pray", healing[:8])
	if err != nil || !strings.Contains(out, "(1 prayers)") {
		t.Fatalf("pray: %v %q", err, out)
	}
	out, err = execute(t, "encourage", healing[:8], "Praying", "for", "you")
	if err != nil || !strings.Contains(out, "(1 encouragements)") {
		t.Fatalf("encourage: %v %q", err, out)
	}

	out, err = execute(t, "show", healing)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Healing for grandma", "health", "1 prayers", "Praying for you"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected show output to contain %q\n%s", want, out)
		}
	}

	out, err = execute(t, "answer", healing)
	if err != nil || !strings.Contains(out, "is now answered") {
		t.Fatalf("answer: %v %q", err, out)
	}
	out, _ = execute(t, "answer", healing)
	if !strings.Contains(out, "already answered") {
		t.Errorf("expected already answered, got %q", out)
	}

	out, err = execute(t, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "2 (1 active, 1 answered)") {
		t.Errorf("unexpected stats %q", out)
	}

	out, err = execute(t, "search", "surgery")
	if err != nil || !strings.Contains(out, "Healing for grandma") {
		t.Errorf("search: %v %q", err, out)
	}

	if _, err := execute(t, "pray", "zzzzzzzz"); err == nil || !strings.Contains(err.Error(), "request not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestImportYAMLFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "requests.yaml")
	yaml := `- title: Safe travels
  category: travel
- title: Exams next week
  urgency: high
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "import", path)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Summary: 2 request(s) imported") || strings.Contains(out, "failed") {
		t.Errorf("unexpected import output %q", out)
	}

	out, err = execute(t, "feed")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !strings.Contains(out, "Safe travels") || !strings.Contains(out, "Exams next week") {
		t.Errorf("expected imported requests in feed, got %q", out)
	}
}

func TestImportRejectsInvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(path, []byte("- title: ok\n- title: \"\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "import", path)
	if err == nil || !strings.Contains(err.Error(), "entry 2") {
		t.Errorf("expected entry 2 error, got %v", err)
	}
}

func TestImportDryRun(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "one.yaml")
	if err := os.WriteFile(path, []byte("- title: Peace at home\n"), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "import", "--dry-run", path)
	if err != nil || !strings.Contains(out, "would be imported") {
		t.Fatalf("dry run: %v %q", err, out)
	}
	out, _ = execute(t, "feed")
	if !strings.Contains(out, "No prayer requests yet") {
		t.Errorf("expected dry run to write nothing, got %q", out)
	}
}

func TestImportDiscoversFeedLink(t *testing.T) {
	isolate(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><head><link rel="alternate" type="application/rss+xml" href="/prayers.xml"></head></html>`))
		case "/prayers.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>List</title>` +
				`<item><title>Rain for the farms</title><guid>1</guid></item></channel></rss>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	out, err := execute(t, "import", server.URL)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Found "+server.URL+"/prayers.xml") {
		t.Errorf("expected discovered feed URL, got %q", out)
	}
	if !strings.Contains(out, "Summary: 1 request(s) imported") {
		t.Errorf("unexpected import output %q", out)
	}
}

func TestFeedValidatesLimit(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "feed", "--limit", "0"); err == nil {
		t.Error("expected error for zero limit")
	}
}

// noBatchStore rejects batch counts so callers must count per request.
type noBatchStore struct {
	storage.Store
}

func (noBatchStore) CountBatch(context.Context, []string, models.CountKind) (map[string]int, error) {
	return nil, errors.New("batch endpoint unavailable")
}

func TestLoadCounts_FallsBackWhenBatchFails(t *testing.T) {
	isolate(t)
	ctx := context.Background()
	sqlite, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "counts.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer sqlite.Close()

	req := models.NewRequest("Safe travels", "")
	if err := sqlite.CreateRequest(ctx, req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if err := sqlite.AddPrayer(ctx, models.NewPrayer(req.ID, cliUserID)); err != nil {
		t.Fatalf("AddPrayer: %v", err)
	}

	prevStore, prevCfg := store, cfg
	store, cfg = noBatchStore{sqlite}, &config.Config{}
	defer func() { store, cfg = prevStore, prevCfg }()

	counts := loadCounts(ctx, []string{req.ID, "missing"})
	if got := counts[req.ID]; got.Prayers != 1 || got.Encouragements != 0 {
		t.Errorf("expected 1 prayer from the per-request fallback, got %+v", got)
	}
	if got := counts["missing"]; got != (models.Counts{}) {
		t.Errorf("expected zero counts for an unknown id, got %+v", got)
	}
}

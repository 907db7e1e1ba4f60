// ABOUTME: Migration command for copying amenity data between storage backends
// ABOUTME: Supports sqlite, kv, and supabase targets with safety checks

package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/config"
	"github.com/harper/amenity/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate data between storage backends",
	Long: `Migrate all amenity data from the currently configured backend to a different backend.

Reads requests, prayers, and encouragements from the current backend and writes
them to the target backend. Does NOT update the config file; verify the
migration was successful then run 'amenity setup' or edit config.json.

Examples:
  amenity migrate --to kv
  amenity migrate --to sqlite --target-dir ~/amenity-sqlite
  amenity migrate --to supabase`,
	RunE: runMigrate,
}

var (
	migrateTo        string
	migrateTargetDir string
	migrateForce     bool
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "target backend (sqlite, kv, or supabase)")
	migrateCmd.Flags().StringVar(&migrateTargetDir, "target-dir", "", "target data directory for sqlite (defaults to current data_dir)")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "allow writing into a non-empty target directory")
	_ = migrateCmd.MarkFlagRequired("to")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	sourceBackend := cfg.GetBackend()
	target, err := migrateTarget(cfg, migrateTo, migrateTargetDir)
	if err != nil {
		return err
	}

	if target.GetBackend() == config.BackendSQLite {
		nonEmpty, err := storage.IsDirNonEmpty(target.GetDataDir())
		if err != nil {
			return fmt.Errorf("check target directory: %w", err)
		}
		if nonEmpty && !migrateForce {
			return fmt.Errorf("target directory %q is not empty; use --force to overwrite", target.GetDataDir())
		}
	}

	dst, err := target.OpenStorage()
	if err != nil {
		return fmt.Errorf("open target storage (%s): %w", target.GetBackend(), err)
	}
	defer dst.Close()

	out := cmd.OutOrStdout()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintln(out, yellow("Migrating amenity data:"))
	fmt.Fprintf(out, "  Source:  %s\n", describeBackend(cfg))
	fmt.Fprintf(out, "  Target:  %s\n", describeBackend(target))
	fmt.Fprintln(out)

	summary, err := storage.MigrateData(cmd.Context(), store, dst)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, green("Migration complete!"))
	fmt.Fprintf(out, "  Requests:        %d\n", summary.Requests)
	fmt.Fprintf(out, "  Prayers:         %d\n", summary.Prayers)
	fmt.Fprintf(out, "  Encouragements:  %d\n", summary.Encouragements)
	fmt.Fprintln(out)
	fmt.Fprintln(out, yellow("Note: config.json was NOT updated. To switch to the new backend, edit:"))
	fmt.Fprintf(out, "  %s\n", config.GetConfigPath())
	fmt.Fprintf(out, "  Set \"backend\": %q (currently %q)\n", target.GetBackend(), sourceBackend)
	return nil
}

// migrateTarget derives the destination config from the current one.
func migrateTarget(current *config.Config, backend, dataDir string) (*config.Config, error) {
	switch backend {
	case config.BackendSQLite, config.BackendKV, config.BackendSupabase:
	default:
		return nil, fmt.Errorf("invalid target backend %q: must be sqlite, kv, or supabase", backend)
	}
	if backend == current.GetBackend() && (backend != config.BackendSQLite || dataDir == "" ||
		config.ExpandPath(dataDir) == current.GetDataDir()) {
		return nil, fmt.Errorf("target backend %q is the same as the current backend", backend)
	}

	target := *current
	target.Backend = backend
	if dataDir != "" {
		target.DataDir = dataDir
	}
	return &target, nil
}

func describeBackend(c *config.Config) string {
	switch c.GetBackend() {
	case config.BackendSQLite:
		return fmt.Sprintf("sqlite (%s)", filepath.Join(c.GetDataDir(), config.DefaultDBFilename))
	case config.BackendSupabase:
		u, _ := c.GetSupabase()
		return fmt.Sprintf("supabase (%s)", u)
	default:
		return c.GetBackend()
	}
}

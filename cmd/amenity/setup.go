// ABOUTME: Cobra command for interactive amenity storage configuration.
// ABOUTME: Launches a bubbletea TUI wizard to select backend, data directory, or Supabase project.

package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/config"
	"github.com/harper/amenity/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:         "setup",
	Short:       "Configure amenity storage backend",
	Long:        "Interactive wizard to configure the storage backend with its data directory or Supabase project.",
	Annotations: map[string]string{noStoreAnnotation: "true"},
	RunE:        runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	model := tui.NewSetupModel(tui.SetupResult{
		Backend:     cfg.Backend,
		DataDir:     cfg.DataDir,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
	})

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Fprintln(cmd.OutOrStdout(), "Setup canceled.")
		return nil
	}

	applySetup(cfg, final.Result())

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", config.GetConfigPath())
	return nil
}

// applySetup copies wizard results into c. Supabase credentials are copied only
// for the supabase backend, the data directory only for local ones.
func applySetup(c *config.Config, r tui.SetupResult) {
	c.Backend = r.Backend
	if r.Backend == config.BackendSupabase {
		c.SupabaseURL = r.SupabaseURL
		c.SupabaseKey = r.SupabaseKey
		return
	}
	c.DataDir = r.DataDir
}

// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads config, opens the logger, and opens the configured storage backend

package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harper/amenity/internal/config"
	"github.com/harper/amenity/internal/logging"
	"github.com/harper/amenity/internal/storage"
)

// noStoreAnnotation marks commands that run without opening storage.
const noStoreAnnotation = "amenity/no-store"

var (
	dataDirFlag string
	backendFlag string

	cfg       *config.Config
	store     storage.Store
	logger    *log.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "amenity",
	Short: "Prayer request feed for humans and AI agents",
	Long: `
 █████╗ ███╗   ███╗███████╗███╗   ██╗██╗████████╗██╗   ██╗
██╔══██╗████╗ ████║██╔════╝████╗  ██║██║╚══██╔══╝╚██╗ ██╔╝
███████║██╔████╔██║█████╗  ██╔██╗ ██║██║   ██║    ╚████╔╝
██╔══██║██║╚██╔╝██║██╔══╝  ██║╚██╗██║██║   ██║     ╚██╔╝
██║  ██║██║ ╚═╝ ██║███████╗██║ ╚████║██║   ██║      ██║
╚═╝  ╚═╝╚═╝     ╚═╝╚══════╝╚═╝  ╚═══╝╚═╝   ╚═╝      ╚═╝

Share prayer requests, pray for each other, and leave encouragement.

Browse the feed in your terminal or expose it via MCP for AI agents.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dataDirFlag != "" {
			cfg.DataDir = dataDirFlag
		}
		if backendFlag != "" {
			cfg.Backend = backendFlag
		}

		logger, logCloser, err = logging.OpenFile(config.GetLogPath(), cfg.GetLogLevel())
		if err != nil {
			// Logging is best effort; never block a command on it.
			logger, logCloser = logging.Discard(), nil
		}

		if cmd.Annotations[noStoreAnnotation] != "" {
			return nil
		}

		store, err = cfg.OpenStorage()
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			logCloser.Close()
		}
		if store != nil {
			if err := store.Close(); err != nil {
				return fmt.Errorf("failed to close storage: %w", err)
			}
			store = nil
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default: ~/.local/share/amenity)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend: sqlite, kv, or supabase (default from config)")
}

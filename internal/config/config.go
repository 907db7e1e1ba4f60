// ABOUTME: Configuration management with storage backend selection
// ABOUTME: Handles settings, feed tuning, environment overrides, and the storage factory

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/renameio"

	"github.com/harper/amenity/internal/feedsync"
	"github.com/harper/amenity/internal/logging"
	"github.com/harper/amenity/internal/storage"
	"github.com/harper/amenity/internal/supabase"
)

// Backend names.
const (
	BackendSQLite   = "sqlite"
	BackendKV       = "kv"
	BackendSupabase = "supabase"
)

// Environment overrides for the Supabase connection.
const (
	EnvSupabaseURL = "AMENITY_SUPABASE_URL"
	EnvSupabaseKey = "AMENITY_SUPABASE_KEY"
)

// FeedConfig tunes the feed synchronizer.
type FeedConfig struct {
	PageSize            int  `json:"page_size,omitempty"`
	NoveltyDecayMS      int  `json:"novelty_decay_ms,omitempty"`
	StaleAfterMS        int  `json:"stale_after_ms,omitempty"`
	PollingEnabled      bool `json:"polling_enabled,omitempty"`
	PollIntervalMS      int  `json:"poll_interval_ms,omitempty"`
	MaxConcurrentCounts int  `json:"max_concurrent_counts,omitempty"`
}

// Config stores amenity configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default), "kv", or "supabase".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for local data. SQLite puts amenity.db here.
	// Supports ~ expansion. Defaults to ~/.local/share/amenity.
	DataDir string `json:"data_dir,omitempty"`

	SupabaseURL string `json:"supabase_url,omitempty"`
	SupabaseKey string `json:"supabase_key,omitempty"`

	Feed FeedConfig `json:"feed,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendSQLite
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetSupabase returns the Supabase URL and key, preferring the environment.
func (c *Config) GetSupabase() (string, string) {
	u, k := c.SupabaseURL, c.SupabaseKey
	if v := os.Getenv(EnvSupabaseURL); v != "" {
		u = v
	}
	if v := os.Getenv(EnvSupabaseKey); v != "" {
		k = v
	}
	return u, k
}

// GetLogLevel parses LogLevel, defaulting to warn.
func (c *Config) GetLogLevel() log.Level {
	if c.LogLevel == "" {
		return log.WarnLevel
	}
	lvl, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks field values and names the first offending field.
func (c *Config) Validate() error {
	switch c.GetBackend() {
	case BackendSQLite, BackendKV:
	case BackendSupabase:
		u, k := c.GetSupabase()
		if u == "" {
			return fmt.Errorf("supabase_url: required for supabase backend")
		}
		if k == "" {
			return fmt.Errorf("supabase_key: required for supabase backend")
		}
	default:
		return fmt.Errorf("backend: unknown backend %q", c.Backend)
	}

	checks := []struct {
		field string
		value int
	}{
		{"feed.page_size", c.Feed.PageSize},
		{"feed.novelty_decay_ms", c.Feed.NoveltyDecayMS},
		{"feed.stale_after_ms", c.Feed.StaleAfterMS},
		{"feed.poll_interval_ms", c.Feed.PollIntervalMS},
		{"feed.max_concurrent_counts", c.Feed.MaxConcurrentCounts},
	}
	for _, ch := range checks {
		if ch.value < 0 {
			return fmt.Errorf("%s: must not be negative, got %d", ch.field, ch.value)
		}
	}
	if c.Feed.PageSize > MaxPageSize {
		return fmt.Errorf("feed.page_size: must be at most %d, got %d", MaxPageSize, c.Feed.PageSize)
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}

// FeedOptions converts the feed settings into synchronizer options.
// Unset values take the synchronizer defaults.
func (c *Config) FeedOptions() feedsync.Options {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return feedsync.Options{
		PageSize:            c.Feed.PageSize,
		NoveltyDecay:        ms(c.Feed.NoveltyDecayMS),
		StaleAfter:          ms(c.Feed.StaleAfterMS),
		PollingEnabled:      c.Feed.PollingEnabled,
		PollInterval:        ms(c.Feed.PollIntervalMS),
		MaxConcurrentCounts: c.Feed.MaxConcurrentCounts,
	}
}

// OpenStorage creates a Store implementation based on the configured backend.
func (c *Config) OpenStorage() (storage.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch c.GetBackend() {
	case BackendSQLite:
		return storage.NewSQLiteStore(filepath.Join(c.GetDataDir(), DefaultDBFilename))
	case BackendKV:
		return storage.NewKVStore()
	case BackendSupabase:
		u, k := c.GetSupabase()
		return supabase.New(u, k, supabase.WithRateLimit(DefaultSupabaseRPS, DefaultSupabaseBurst))
	default:
		return nil, fmt.Errorf("unknown backend: %q", c.Backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "amenity", "config.json")
}

// GetLogPath returns the log file used while the TUI owns the terminal.
func GetLogPath() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, _ := os.UserHomeDir()
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "amenity", "amenity.log")
}

// Load reads config from disk, writing defaults on first run.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultFirstRunConfig()
			if saveErr := cfg.Save(); saveErr != nil {
				fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", saveErr)
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// atomicWrite replaces path so readers never see a partial config.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPerms); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// defaultDataDir returns the standard XDG data directory for amenity.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "amenity")
}

// defaultFirstRunConfig picks supabase when its credentials are in the
// environment and sqlite otherwise.
func defaultFirstRunConfig() *Config {
	if os.Getenv(EnvSupabaseURL) != "" && os.Getenv(EnvSupabaseKey) != "" {
		return &Config{Backend: BackendSupabase}
	}
	return &Config{Backend: BackendSQLite}
}

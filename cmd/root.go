/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/config"
	"github.com/seckatie/xmarkd/internal/core"
	"github.com/seckatie/xmarkd/internal/core/db"
)

var rootCmd = &cobra.Command{
	Use:   "xmarkd",
	Short: "Capture and search your X/Twitter bookmarks locally",
	Long: `xmarkd drives a logged-in browser session through your X/Twitter
bookmarks timeline, intercepts the timeline API responses, and stores
every bookmark in a local SQLite database with full-text search.

Start by exporting a logged-in browser session and importing it:

  xmarkd import-session state.json
  xmarkd sync`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits with the code matching the failure
// category.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(core.ExitCodeFor(err)))
	}
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for the database and session (default ./data)")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
}

// loadConfig builds the effective configuration: file, then environment,
// then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, core.NewInvalidInputError("failed to load configuration", err)
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
		if err := cfg.Validate(); err != nil {
			return nil, core.NewInvalidInputError("invalid configuration", err)
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func initDB(cfg *config.Config) (*db.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, core.NewDatabaseError("failed to create data directory", err)
	}
	database, err := db.NewSQLiteDB(cfg.DBPath())
	if err != nil {
		return nil, core.NewDatabaseError("failed to open database", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, core.NewDatabaseError("failed to migrate database", err)
	}
	return database, nil
}

// parseTimeFlag accepts both a bare date and a full RFC 3339 timestamp.
func parseTimeFlag(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, core.NewInvalidInputError(
			fmt.Sprintf("invalid time %q, use YYYY-MM-DD or RFC 3339", v), nil)
	}
	return t, nil
}

// writeOutput writes to the given file, or stdout when the path is empty.
func writeOutput(path, content string) error {
	if path == "" {
		fmt.Print(content)
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

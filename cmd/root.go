package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cramdeck/cramdeck/internal/navstore"
	"github.com/cramdeck/cramdeck/internal/prefs"
)

var rootCmd = &cobra.Command{
	Use:   "cramdeck",
	Short: "Terminal exam prep",
	Long:  "Cramdeck — a terminal app for drilling multiple-choice exam questions, with navigation state that survives restarts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite state file (overrides CRAMDECK_DB env var)")
	rootCmd.PersistentFlags().String("prefs", "", "Path to preferences file (defaults to ~/.config/cramdeck/prefs.toml)")

	rootCmd.AddCommand(subjectsCmd)
	rootCmd.AddCommand(drillCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the state database path using --db flag (highest
// priority), then CRAMDECK_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, navstore.EnsureDir(p)
	}
	return navstore.DefaultDBPath()
}

// loadPrefs reads preferences from --prefs or the default location. Load
// degrades to defaults on any failure, so this never aborts a command.
func loadPrefs(cmd *cobra.Command) prefs.Prefs {
	path, _ := cmd.Flags().GetString("prefs")
	p, _ := prefs.Load(path)
	return p
}

// openStore opens the persisted-state store over the SQLite backend. Unlike
// the TUI, maintenance commands fail outright when the database is
// unreachable.
func openStore(cmd *cobra.Command) (*navstore.Store, func(), error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve state path: %w", err)
	}
	db, err := navstore.OpenSQLite(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open state database: %w", err)
	}
	store := navstore.NewStore(db, navstore.WithLogger(stderrLogger()))
	return store, func() { db.Close() }, nil
}

// stderrLogger returns the logger for non-interactive commands.
func stderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

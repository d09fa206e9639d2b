package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cramdeck/cramdeck/internal/app"
	"github.com/cramdeck/cramdeck/internal/authstate"
	"github.com/cramdeck/cramdeck/internal/cacheclear"
	"github.com/cramdeck/cramdeck/internal/catalog"
	"github.com/cramdeck/cramdeck/internal/history"
	"github.com/cramdeck/cramdeck/internal/nav"
	"github.com/cramdeck/cramdeck/internal/navstore"
	"github.com/cramdeck/cramdeck/internal/ui/theme"
)

// runApp builds the navigation stack, wires dependencies, and launches the
// TUI. The state database is optional; without it the app runs with
// in-memory state that is lost on exit.
func runApp(cmd *cobra.Command) error {
	p := loadPrefs(cmd)
	theme.Apply(p.Theme)

	log, closeLog := appLogger()
	defer closeLog()

	var storage navstore.Storage
	dbPath, err := resolveDBPath(cmd)
	if err == nil {
		var db *navstore.SQLite
		db, err = navstore.OpenSQLite(dbPath)
		if err == nil {
			defer db.Close()
			storage = db
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "State database unavailable:", err)
		fmt.Fprintln(os.Stderr, "Navigation state will not survive restarts.")
		storage = navstore.NewMemory()
	}

	store := navstore.NewStore(storage, navstore.WithLogger(log))

	// Drop stale slots before the manager restores from them.
	cleaner := cacheclear.New(store, cacheclear.WithLogger(log))
	sweepCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	if n, err := cleaner.Sweep(sweepCtx); err != nil {
		log.Warn("startup sweep failed", "error", err)
	} else if n > 0 {
		log.Info("swept expired navigation state", "slots", n)
	}
	cancel()

	journal := history.New("/")
	manager := nav.NewManager(journal,
		nav.WithConfig(nav.ConfigFromEnv()),
		nav.WithStore(store),
		nav.WithLogger(log),
	)
	manager.InitializeEventListeners()
	defer manager.Cleanup()

	var svc catalog.Service
	if p.CatalogURL != "" {
		svc = catalog.NewClient(catalog.WithBaseURL(p.CatalogURL), catalog.WithLogger(log))
	} else {
		svc = catalog.NewStaticService()
	}

	return app.Run(app.Deps{
		Nav:           manager,
		Journal:       journal,
		Auth:          authstate.New(manager, authstate.WithLogger(log)),
		Catalog:       svc,
		Version:       version,
		QuestionLimit: p.QuestionLimit,
	})
}

// appLogger returns the logger for the interactive session. The terminal
// belongs to the TUI while it runs, so logs go to the file named by
// CRAMDECK_LOG, or nowhere.
func appLogger() (*slog.Logger, func()) {
	path := os.Getenv("CRAMDECK_LOG")
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Log file unavailable:", err)
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}

	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return log, func() { f.Close() }
}

// Package main is the entry point for the clerk-sync server.
//
// main stays minimal: load configuration, create the logger, ensure the
// data directory exists, start the server. All logic lives in internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/clerk-sync/internal/config"
	"github.com/sakif/clerk-sync/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Missing required variables (webhook secret, publishable key, base
	// URL, session secret) are fatal here — the sync endpoint must never
	// come up without its verification gate.
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create the data directory for the SQLite file if needed.
	if dbDir := filepath.Dir(cfg.DBPath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// Package main is the entry point for the fileblog server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (env vars and an optional config.yml, via viper)
// 2. Create the logger
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/service, etc.).
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/fileblog/internal/auth"
	"github.com/sakif/fileblog/internal/config"
	"github.com/sakif/fileblog/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error.
	// LOG_LEVEL picks the threshold; Validate already rejected unknown names.
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	// Helpers that log through the package-level slog functions use this too.
	slog.SetDefault(logger)

	if cfg.Credentials == auth.DefaultCredentials {
		logger.Warn("using the demo login admin/admin123, set CREDENTIALS to change it")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

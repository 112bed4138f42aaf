// Package main is the entry point of the users API server.
//
// main only reads configuration, builds the logger, opens the store selected
// by DB_URL and starts the server. All logic lives in internal/.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/sakif/users-api/internal/config"
	"github.com/sakif/users-api/internal/pgcontainer"
	"github.com/sakif/users-api/internal/server"
	"github.com/sakif/users-api/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()

	dbURL := cfg.DatabaseURL
	if strings.TrimSpace(dbURL) == "" && cfg.DevPostgres {
		pgCfg := pgcontainer.DefaultConfig()
		pgCfg.Image = cfg.DevPostgresImage

		pg, err := pgcontainer.Start(ctx, pgCfg, logger)
		if err != nil {
			return err
		}
		defer pg.Close()

		logger.Warn("using a throwaway postgres container, data is lost on exit")
		dbURL = pg.URL()
	}

	store, err := storage.Open(ctx, dbURL)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(server.Config{
		Port:            cfg.Port,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, store, logger)

	// Start blocks until SIGINT/SIGTERM or a listener failure.
	return srv.Start(ctx)
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// Both were checked by config.Load.
func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

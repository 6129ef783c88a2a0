package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forktv/forkd/internal/api"
	"github.com/forktv/forkd/internal/cleaner"
	"github.com/forktv/forkd/internal/config"
	"github.com/forktv/forkd/internal/log"
	"github.com/forktv/forkd/internal/recdb"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := config.FromEnv()

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "forkd",
	})
	logger := log.WithComponent("daemon")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.invalid").
			Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := recdb.NewStore(cfg.DBPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "db.open_failed").
			Str("path", cfg.DBPath).
			Msg("failed to open recordings database")
	}
	defer func() { _ = store.Close() }()

	srv := api.New(cfg, store, cleaner.New(store, cfg.ThumbnailsDir))

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("event", "server.start").
			Str("listen", cfg.Listen).
			Str("version", version).
			Msg("starting forkd")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().
			Str("event", "server.shutdown").
			Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "server.failed").
			Msg("forkd terminated with error")
	}

	logger.Info().
		Str("event", "server.stopped").
		Msg("forkd stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/harvest/internal/blob"
	"github.com/playperu/harvest/internal/broadcast"
	"github.com/playperu/harvest/internal/config"
	"github.com/playperu/harvest/internal/engine"
	"github.com/playperu/harvest/internal/handler/health"
	"github.com/playperu/harvest/internal/harvest"
	"github.com/playperu/harvest/internal/repository"
	"github.com/playperu/harvest/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Store ---
	store, err := blob.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("opened store", "backend", cfg.StoreBackend)
	if cfg.StoreBackend == blob.BackendMemory {
		logger.Warn("using in-memory store, game state is lost on restart")
	}

	repo := repository.New(store)
	if err := seedAdmin(ctx, repo, cfg, logger); err != nil {
		return err
	}

	// --- Engine ---
	catalog := harvest.DefaultCatalog()
	if cfg.ScenariosFile != "" {
		catalog, err = harvest.LoadCatalog(cfg.ScenariosFile)
		if err != nil {
			return fmt.Errorf("loading scenarios: %w", err)
		}
		logger.Info("loaded scenarios", "file", cfg.ScenariosFile, "count", len(catalog))
	}

	broker := broadcast.NewBroker(logger)
	eng := engine.New(catalog, repo, broker, logger)
	if err := eng.Hydrate(ctx); err != nil {
		return fmt.Errorf("loading game state: %w", err)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Engine: eng,
		Repo:   repo,
		Broker: broker,
		Checks: map[string]health.Checker{cfg.StoreBackend: store},
		SPADir: cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		// Event streams only end when their subscription does.
		broker.Close()
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// seedAdmin stores the configured admin account unless one already exists.
func seedAdmin(ctx context.Context, repo *repository.Repository, cfg *config.Config, logger *slog.Logger) error {
	_, err := repo.Admin(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("reading admin credentials: %w", err)
	}

	if cfg.AdminUsername == "" {
		logger.Warn("no admin account stored, run initadmin or set ADMIN_USERNAME and ADMIN_PASSWORD")
		return nil
	}
	err = repo.SetAdmin(ctx, repository.AdminCredentials{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("seeding admin credentials: %w", err)
	}
	logger.Info("seeded admin account", "username", cfg.AdminUsername)
	return nil
}

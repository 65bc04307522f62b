package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/docsign/internal/adapter/blobstore"
	"github.com/neomorfeo/docsign/internal/adapter/cache"
	"github.com/neomorfeo/docsign/internal/adapter/fsm"
	"github.com/neomorfeo/docsign/internal/adapter/otel"
	"github.com/neomorfeo/docsign/internal/adapter/river"
	"github.com/neomorfeo/docsign/internal/adapter/sqlite"
	"github.com/neomorfeo/docsign/internal/app"
	"github.com/neomorfeo/docsign/internal/config"
	"github.com/neomorfeo/docsign/internal/domain"

	handler "github.com/neomorfeo/docsign/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("docsign stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv(cfg.Version))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	store, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()

	blobs, err := blobstore.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	// Storage may come up after the service; a failure here is not fatal.
	go func() {
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := blobs.EnsureContainer(ensureCtx); err != nil {
			logger.Warn("storage container not ready", "error", err)
		}
	}()

	jobs, err := river.Setup(ctx, db, blobs, cfg.Jobs.MaxWorkers, logger)
	if err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	// Jobs are stopped explicitly below so in-flight work can finish.
	if err := jobs.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting jobs: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jobs.Stop(stopCtx); err != nil {
			logger.Error("jobs shutdown", "error", err)
		}
	}()

	var repo domain.CollectionRepository = otel.NewTracingRepository(sqlite.NewCollectionRepository(store))
	if cfg.Database.CacheEnabled() {
		cached, err := cache.NewCachingRepository(repo, cfg.Database.CacheSize)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		repo = cached
	}

	directory := sqlite.NewDirectory(store)
	revoker := sqlite.NewAccessRevoker(store)

	// --- Application ---
	collections := app.NewCollectionService(repo, fsm.New(), app.Collaborators{
		Quota:      sqlite.NewQuotaLedger(store),
		Directory:  directory,
		Templates:  sqlite.NewTemplateStore(store),
		Notifier:   otel.NewTracingNotifier(river.NewNotifier(jobs)),
		Appendices: river.NewFinalizer(jobs),
		Access:     revoker,
		Blobs:      blobs,
	}, logger)
	groups := app.NewContactsGroupService(sqlite.NewContactsGroupRepository(store), directory, collections, logger)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(otelchi.Middleware("docsign", otelchi.WithChiRoutes(router)))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)

	api := humachi.New(router, huma.DefaultConfig("docsign", cfg.Version))
	handler.Register(api, collections, groups, revoker)

	// --- Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeoutDuration(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("docsign listening", "addr", srv.Addr, "env", cfg.Env(), "docs", "/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("stopped")
	return nil
}

// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/Shivanand-hulikatti/content-roster/internal/config"
	"github.com/Shivanand-hulikatti/content-roster/internal/database"
	"github.com/Shivanand-hulikatti/content-roster/internal/display"
	"github.com/Shivanand-hulikatti/content-roster/internal/handler"
	"github.com/Shivanand-hulikatti/content-roster/internal/repository"
	"github.com/Shivanand-hulikatti/content-roster/internal/seed"
	"github.com/Shivanand-hulikatti/content-roster/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// ── 1. Configuration and logging ──────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// ── 2. Open the store ─────────────────────────────────────────────────
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	board := display.NewBoard()
	rosterSvc := service.NewRosterService(store, display.Multi{board, display.NewLog(nil)})
	templateSvc := service.NewTemplateService(store)

	if cfg.TemplatesFile != "" {
		templates, err := seed.LoadFile(cfg.TemplatesFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, templateSvc, templates, cfg.TemplatesOverwrite); err != nil {
			return fmt.Errorf("seed templates: %w", err)
		}
	}

	rosterHandler := handler.NewRosterHandler(rosterSvc, templateSvc, board)
	r := handler.NewRouter(rosterHandler, cfg.CORSAllowedOrigins)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening",
			slog.String("addr", srv.Addr),
			slog.String("store", cfg.StoreDriver),
			slog.String("env", cfg.AppEnv),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Block until SIGINT or SIGTERM, or the listener fails.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Database())
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		slog.Info("connected to postgres", slog.String("host", cfg.DBHost))
		return repository.NewPostgresStore(pool), nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		slog.Info("opened sqlite", slog.String("path", cfg.SQLitePath))
		return repository.NewSQLiteStore(db), nil
	default:
		slog.Warn("using in-memory store; data is lost on exit")
		return repository.NewMemoryStore(), nil
	}
}

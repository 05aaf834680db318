package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"

	"github.com/helixlab/bioflow/api"
	"github.com/helixlab/bioflow/config"
	"github.com/helixlab/bioflow/internal/collab/gemini"
	"github.com/helixlab/bioflow/internal/collab/mock"
	"github.com/helixlab/bioflow/internal/metrics"
	"github.com/helixlab/bioflow/internal/service"
	"github.com/helixlab/bioflow/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting bioflow",
		"http_port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"offline_mode", cfg.OfflineMode)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize tracker
	tracker := metrics.NewTracker(db, metrics.WithLogger(logger))

	// Initialize collaborators
	ctx := context.Background()
	collabs, err := buildCollaborators(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize collaborators: %v", err)
	}

	// Initialize service
	svc := service.New(db, tracker, cfg, collabs, logger)

	// Periodic expired-session sweep
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.SweepSchedule, func() {
		removed, err := svc.SweepExpired(context.Background(), cfg.MaxSessionAge)
		if err != nil {
			logger.Error("session sweep failed", "error", err)
			return
		}
		if len(removed) > 0 {
			logger.Info("session sweep done", "removed", len(removed))
		}
	}); err != nil {
		log.Fatalf("Failed to schedule session sweep: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize HTTP server
	h := api.NewHandler(svc, tracker)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	// Flush metrics to disk before exit.
	if err := exportMetrics(shutdownCtx, tracker, cfg.MetricsExportPath); err != nil {
		logger.Error("metrics export failed", "error", err)
	}
}

// buildCollaborators wires the external collaborators. Offline mode and a
// missing API key both fall back to the deterministic in-process set.
func buildCollaborators(ctx context.Context, cfg *config.Config) (service.Collaborators, error) {
	completer, literature, visualizer, reporter := mock.Offline()
	collabs := service.Collaborators{
		Completer:  completer,
		Literature: literature,
		Visualizer: visualizer,
		Reporter:   reporter,
	}

	if cfg.OfflineMode || cfg.GeminiAPIKey == "" {
		slog.Info("using offline collaborators")
		return collabs, nil
	}

	client, err := gemini.New(ctx, cfg.GeminiAPIKey, gemini.WithModel(cfg.Model))
	if err != nil {
		return collabs, err
	}
	collabs.Completer = client
	return collabs, nil
}

func exportMetrics(ctx context.Context, tracker *metrics.Tracker, path string) error {
	bundle, err := tracker.Export(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

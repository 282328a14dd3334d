package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"lead-hunter/internal/api/routes"
	"lead-hunter/internal/background"
	"lead-hunter/internal/config"
	"lead-hunter/internal/hunter"
	"lead-hunter/internal/llm"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/scraper"
	"lead-hunter/internal/store"
	"lead-hunter/pkg/utils"
)

func main() {
	configPath := utils.GetStringOrDefault(os.Getenv("CONFIG_PATH"), "configs/config.yaml")

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()
	logger := logging.GetGlobalLogger()
	logger.Info("Starting Lead Hunter", map[string]interface{}{
		"scraper_engine": cfg.Scraper.Engine,
		"store_driver":   cfg.Store.Driver,
		"llm_provider":   cfg.LLM.Provider,
	})

	ctx := context.Background()

	leadStore, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open lead store", map[string]interface{}{"error": err.Error()})
	}
	defer leadStore.Close()

	locker, err := store.NewRunLocker(cfg)
	if err != nil {
		logger.Fatal("Failed to create run locker", map[string]interface{}{"error": err.Error()})
	}
	if closer, ok := locker.(io.Closer); ok {
		defer closer.Close()
	}

	// A missing scraper credential must not keep the lead admin API down;
	// discovery reports the configuration error per call instead.
	fetcher, err := scraper.NewFetcher(cfg, logger)
	if err != nil {
		logger.Warn("Page fetcher unavailable - discovery is disabled", map[string]interface{}{
			"engine": cfg.Scraper.Engine,
			"error":  err.Error(),
		})
		fetcher = &scraper.Unavailable{Err: err}
	}
	defer fetcher.Cleanup()

	// Initialize LLM manager; Start logs and keeps the configuration error for later calls
	llmManager := llm.NewManager(cfg, logger)
	_ = llmManager.Start()

	service := hunter.NewService(
		hunter.NewDiscoverer(cfg, fetcher, leadStore, locker, logger),
		hunter.NewAnalyzer(cfg, leadStore, llmManager, logger),
		hunter.NewBackfiller(cfg, leadStore, logger),
	)

	// Initialize background task manager
	taskManager := background.NewTaskManager(cfg, service, logger)
	if err := taskManager.Start(ctx); err != nil {
		logger.Fatal("Failed to start task manager", map[string]interface{}{"error": err.Error()})
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout
	// Synchronous hunter calls write their response only after the run ends
	e.Server.WriteTimeout = maxDuration(cfg.Server.WriteTimeout, cfg.Server.HunterTimeout)

	routes.SetupRoutes(e, routes.Dependencies{
		Config:  cfg,
		Store:   leadStore,
		Hunter:  service,
		Tasks:   taskManager,
		LLM:     llmManager,
		Fetcher: fetcher,
		Locker:  locker,
		Logger:  logger,
	})

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("Server starting", map[string]interface{}{"address": address})
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Stopping HTTP server...")
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Stopping background task manager...")
		if err := taskManager.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping task manager", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Stopping LLM manager...")
		if err := llmManager.Stop(); err != nil {
			logger.Error("Error stopping LLM manager", map[string]interface{}{"error": err.Error()})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Server shutdown complete")
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr1s57/lookupx/internal/adapter/controller/http/router"
	"github.com/kr1s57/lookupx/internal/app"
	"github.com/kr1s57/lookupx/internal/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := config.SetupLogger(cfg)
	logger.Info("Starting lookup aggregator",
		"env", cfg.App.Env,
		"port", cfg.App.Port,
	)

	ctx := context.Background()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize lookup service", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	for name, label := range application.Service.Health().APIs {
		logger.Info("[PROVIDERS] Provider status", "provider", name, "status", label)
	}

	r := router.New(application.Service, router.Config{
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		RateLimit:      cfg.HTTP.RateLimit,
		Logger:         logger,
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // batches of 50 run up to 5 chunks of provider timeouts
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}

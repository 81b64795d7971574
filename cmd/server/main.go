package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/config"
	httpServer "github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/http"
	"github.com/MitchellMonaghan/stripe-no-website-example/pkg/logger"
)

func main() {
	// Until the configured logger exists
	bootLogger := logger.DefaultZapLogger()

	// A missing .env is normal outside local development
	if err := godotenv.Load(); err == nil {
		bootLogger.Info("Loaded .env file")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := &dependencies{cfg: cfg}
	if err := deps.applySecrets(ctx); err != nil {
		bootLogger.Fatal("Failed to load secrets", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		bootLogger.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer zapLogger.Sync()
	deps.logger = zapLogger.With(zap.String("service", cfg.Service.Name))

	// Initialize relay components
	app, err := deps.build(ctx)
	if err != nil {
		deps.logger.Fatal("Failed to initialize relay", zap.Error(err))
	}
	defer deps.close()

	srv, err := httpServer.NewServer(cfg, deps.logger, app.handlers)
	if err != nil {
		deps.logger.Fatal("Failed to create HTTP server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		deps.logger.Info("Shutdown signal received")
	case err := <-serverErr:
		deps.logger.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer cancel()

	// Stop taking webhooks first, then let queued receipts finish
	if err := srv.Shutdown(shutdownCtx); err != nil {
		deps.logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}
	if err := app.forwarder.Shutdown(shutdownCtx); err != nil {
		deps.logger.Error("Receipt forwarder did not drain before the deadline", zap.Error(err))
	}

	deps.logger.Info("Server shut down successfully")
}

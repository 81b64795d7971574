package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/config"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/messaging"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/metrics"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/provider/revenuecat"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/usecase"
	"github.com/MitchellMonaghan/stripe-no-website-example/pkg/logger"
)

func main() {
	bootLogger := logger.DefaultZapLogger()

	if err := godotenv.Load(); err == nil {
		bootLogger.Info("Loaded .env file")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal("Failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.Redis.Addr == "" || cfg.DeadLetter.RedisChannel == "" {
		bootLogger.Fatal("redis.addr and dead_letter.redis_channel are required to replay dead letters")
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		bootLogger.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer zapLogger.Sync()
	log := zapLogger.With(zap.String("service", cfg.Service.Name+"-replay"))

	// Connect to the dead-letter channel
	source, err := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer source.Close()

	// Failed replays are only logged, never published back to the channel being consumed
	entitlements := revenuecat.NewClient(
		cfg.Entitlement.BaseURL,
		cfg.Entitlement.APIKey,
		cfg.Entitlement.Timeout,
		log,
		revenuecat.WithPlatform(cfg.Entitlement.Platform),
	)
	forwarder := usecase.NewReceiptForwarder(entitlements, messaging.NewLogSink(log), metrics.Nop{}, usecase.RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		Multiplier:      cfg.Retry.Multiplier,
		Jitter:          cfg.Retry.Jitter,
	}, log, usecase.WithAttemptTimeout(cfg.Entitlement.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &replayer{
		source:          source,
		channel:         cfg.DeadLetter.RedisChannel,
		forwarder:       forwarder,
		includeTerminal: cfg.Replay.IncludeTerminal,
		dryRun:          cfg.Replay.DryRun,
		limit:           cfg.Replay.Limit,
		logger:          log,
	}

	stats, err := r.run(ctx)
	if err != nil {
		log.Fatal("Dead letter replay failed", zap.Error(err))
	}

	log.Info("Dead letter replay finished",
		zap.Int("received", stats.Received),
		zap.Int("replayed", stats.Replayed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
}

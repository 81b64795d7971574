package main

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	handlers "github.com/MitchellMonaghan/stripe-no-website-example/internal/adapter/handler/http"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/config"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/provider"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/aws"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/cache"
	httpServer "github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/http"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/messaging"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/metrics"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/provider/revenuecat"
	stripegw "github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/provider/stripe"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/secrets"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/usecase"
)

// dependencies owns the outbound clients. AWS and Redis connections are opened only
// when a configured backend needs them.
type dependencies struct {
	cfg    *config.Config
	logger *zap.Logger

	awsConfig *sdkaws.Config
	redis     *redis.Client
}

type application struct {
	handlers  httpServer.Handlers
	forwarder *usecase.ReceiptForwarder
}

func (d *dependencies) loadAWS(ctx context.Context) (sdkaws.Config, error) {
	if d.awsConfig != nil {
		return *d.awsConfig, nil
	}
	cfg, err := aws.LoadConfig(ctx, d.cfg.AWS.Region, d.cfg.AWS.Endpoint)
	if err != nil {
		return cfg, err
	}
	d.awsConfig = &cfg
	return cfg, nil
}

func (d *dependencies) redisClient(ctx context.Context) (*redis.Client, error) {
	if d.redis != nil {
		return d.redis, nil
	}
	client, err := messaging.Connect(ctx, d.cfg.Redis.Addr, d.cfg.Redis.Password, d.cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	d.redis = client
	return client, nil
}

// applySecrets overlays credentials from Secrets Manager when secrets.id is set.
func (d *dependencies) applySecrets(ctx context.Context) error {
	if d.cfg.Secrets.ID == "" {
		return nil
	}
	awsCfg, err := d.loadAWS(ctx)
	if err != nil {
		return err
	}
	values, err := secrets.NewClient(awsCfg).GetSecretMap(ctx, d.cfg.Secrets.ID)
	if err != nil {
		return err
	}
	d.cfg.ApplySecrets(values)
	return nil
}

func (d *dependencies) build(ctx context.Context) (*application, error) {
	cfg := d.cfg

	recorder, err := d.metricsRecorder(ctx)
	if err != nil {
		return nil, err
	}

	deadLetters, err := d.deadLetterSink(ctx)
	if err != nil {
		return nil, err
	}

	entitlements := revenuecat.NewClient(
		cfg.Entitlement.BaseURL,
		cfg.Entitlement.APIKey,
		cfg.Entitlement.Timeout,
		d.logger,
		revenuecat.WithPlatform(cfg.Entitlement.Platform),
	)

	forwarder := usecase.NewReceiptForwarder(entitlements, deadLetters, recorder, usecase.RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		Multiplier:      cfg.Retry.Multiplier,
		Jitter:          cfg.Retry.Jitter,
	}, d.logger, usecase.WithAttemptTimeout(cfg.Entitlement.Timeout))

	webhookOpts, err := d.webhookOptions(ctx)
	if err != nil {
		return nil, err
	}

	gateway := stripegw.NewGateway(stripegw.GatewayConfig{
		SecretKey:         cfg.Stripe.SecretKey,
		APIURL:            cfg.Stripe.APIURL,
		MaxNetworkRetries: 2,
	}, d.logger)

	return &application{
		forwarder: forwarder,
		handlers: httpServer.Handlers{
			Webhook: handlers.NewWebhookHandler(forwarder, recorder, d.logger, webhookOpts...),
			Cancel:  handlers.NewCancelHandler(usecase.NewAccountCancellation(gateway, recorder, d.logger), d.logger),
			Checkout: handlers.NewCheckoutHandler(handlers.CheckoutConfig{
				PublishableKey: cfg.PublishableKey(),
				SuccessURL:     cfg.Checkout.SuccessURL,
				CancelURL:      cfg.Checkout.CancelURL,
				TestMode:       cfg.Service.TestMode,
			}, d.logger),
			System: handlers.NewSystemHandler(cfg.Service.Name, cfg.Service.TestMode),
		},
	}, nil
}

func (d *dependencies) metricsRecorder(ctx context.Context) (provider.MetricsRecorder, error) {
	if !d.cfg.Metrics.CloudWatchEnabled {
		return metrics.Nop{}, nil
	}
	awsCfg, err := d.loadAWS(ctx)
	if err != nil {
		return nil, err
	}
	return metrics.NewCloudWatchRecorder(awsCfg, d.cfg.Metrics.Namespace), nil
}

// deadLetterSink always logs, and also publishes to the configured backend.
func (d *dependencies) deadLetterSink(ctx context.Context) (provider.DeadLetterSink, error) {
	sinks := []provider.DeadLetterSink{messaging.NewLogSink(d.logger)}

	switch d.cfg.DeadLetter.Backend {
	case "redis":
		client, err := d.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, messaging.NewRedisSink(messaging.NewRedisClientFrom(client), d.cfg.DeadLetter.RedisChannel))
	case "sns":
		awsCfg, err := d.loadAWS(ctx)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, messaging.NewSNSSink(messaging.NewSNSClient(awsCfg), d.cfg.DeadLetter.SNSTopicARN))
	}

	d.logger.Info("Dead-letter sink configured", zap.String("backend", d.cfg.DeadLetter.Backend))
	return messaging.NewFanOut(sinks...), nil
}

func (d *dependencies) webhookOptions(ctx context.Context) ([]handlers.WebhookOption, error) {
	var opts []handlers.WebhookOption

	if verifier := stripegw.NewSignatureVerifier(d.cfg.Stripe.WebhookSecret, d.cfg.Stripe.WebhookTolerance); verifier != nil {
		opts = append(opts, handlers.WithSignatureVerifier(verifier))
	} else {
		d.logger.Warn("Stripe webhook secret not set, webhook signatures are not verified")
	}

	switch d.cfg.Dedup.Backend {
	case "memory":
		opts = append(opts, handlers.WithDeduplicator(cache.NewMemoryDeduplicator(d.cfg.Dedup.MaxEntries), d.cfg.Dedup.TTL))
	case "redis":
		client, err := d.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, handlers.WithDeduplicator(cache.NewRedisDeduplicator(client, d.cfg.Dedup.KeyPrefix), d.cfg.Dedup.TTL))
	}

	return opts, nil
}

func (d *dependencies) close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	domainErrors "github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/errors"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/provider"
	pkgerrors "github.com/MitchellMonaghan/stripe-no-website-example/pkg/errors"
)

// ReceiptDispatcher hands a receipt off for delivery after the webhook is acknowledged.
type ReceiptDispatcher interface {
	Dispatch(eventID string, req entity.ReceiptRequest) error
}

// SignatureVerifier checks a webhook payload against its signature header.
type SignatureVerifier interface {
	Verify(payload []byte, signature string) error
}

const defaultMetricsTimeout = 5 * time.Second

type WebhookHandler struct {
	dispatcher     ReceiptDispatcher
	verifier       SignatureVerifier
	dedup          provider.Deduplicator
	dedupTTL       time.Duration
	metrics        provider.MetricsRecorder
	metricsTimeout time.Duration
	logger         *zap.Logger
}

// WebhookOption configures optional WebhookHandler behaviour.
type WebhookOption func(*WebhookHandler)

// WithSignatureVerifier enables Stripe-Signature verification.
func WithSignatureVerifier(v SignatureVerifier) WebhookOption {
	return func(h *WebhookHandler) {
		h.verifier = v
	}
}

// WithDeduplicator drops redelivered event ids seen within ttl.
func WithDeduplicator(d provider.Deduplicator, ttl time.Duration) WebhookOption {
	return func(h *WebhookHandler) {
		h.dedup = d
		h.dedupTTL = ttl
	}
}

// WithMetricsTimeout bounds the background metrics call made for rejected and duplicate events.
func WithMetricsTimeout(d time.Duration) WebhookOption {
	return func(h *WebhookHandler) {
		h.metricsTimeout = d
	}
}

func NewWebhookHandler(dispatcher ReceiptDispatcher, metrics provider.MetricsRecorder, logger *zap.Logger, opts ...WebhookOption) *WebhookHandler {
	h := &WebhookHandler{
		dispatcher:     dispatcher,
		metrics:        metrics,
		metricsTimeout: defaultMetricsTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleStripeWebhook acknowledges a Stripe event and queues its receipt for delivery.
// Only malformed payloads get a 400; everything else is acknowledged so Stripe stops retrying.
func (h *WebhookHandler) HandleStripeWebhook(c echo.Context) error {
	// Read raw body, the signature covers the exact bytes
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}

	// Verify Stripe-Signature when a signing secret is configured
	if h.verifier != nil {
		if err := h.verifier.Verify(body, c.Request().Header.Get("Stripe-Signature")); err != nil {
			h.logger.Warn("Webhook signature verification failed", zap.Error(err))
			return c.NoContent(http.StatusBadRequest)
		}
	}

	// Parse the event envelope
	var event entity.PurchaseEvent
	err = json.Unmarshal(body, &event)
	if err == nil {
		err = event.Validate()
	}
	if err != nil {
		h.logger.Debug("No purchase found in webhook body",
			zap.ByteString("body", body),
			zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}

	log := h.logger.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	// Acknowledge event types that carry no purchase
	if !event.IsRelevant() {
		log.Debug("Ignoring webhook event type")
		return c.NoContent(http.StatusOK)
	}

	var checkout entity.CheckoutObject
	if err := json.Unmarshal(event.Data.Object, &checkout); err != nil {
		log.Debug("Undecodable checkout object",
			zap.ByteString("object", event.Data.Object),
			zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}

	// Derive the receipt and refuse to forward one without attribution
	receipt := checkout.ToReceipt()
	if receipt.AppUserID == "" || receipt.FetchToken == "" {
		log.Warn("Checkout is missing client_reference_id or subscription, not forwarding",
			zap.String("app_user_id", receipt.AppUserID),
			zap.String("fetch_token", receipt.FetchToken),
			zap.String("customer", checkout.Customer))
		h.count(provider.MetricReceiptRejected, event.Type)
		return c.NoContent(http.StatusOK)
	}

	// Drop redeliveries when a dedup store is configured
	ctx := c.Request().Context()
	marked := false
	if h.dedup != nil && event.ID != "" {
		first, err := h.dedup.FirstSeen(ctx, event.ID, h.dedupTTL)
		switch {
		case err != nil:
			// fail open
			log.Warn("Delivery dedup unavailable", zap.Error(err))
		case !first:
			log.Info("Duplicate webhook delivery ignored")
			h.count(provider.MetricWebhookDuplicate, event.Type)
			return c.NoContent(http.StatusOK)
		default:
			marked = true
		}
	}

	// Hand off for delivery, the 200 goes out before RevenueCat is called
	if err := h.dispatcher.Dispatch(event.ID, receipt); err != nil {
		if marked {
			if relErr := h.dedup.Release(ctx, event.ID); relErr != nil {
				log.Warn("Failed to release dedup key", zap.Error(relErr))
			}
		}
		if errors.Is(err, domainErrors.ErrForwarderClosed) {
			log.Warn("Receipt forwarder is shutting down, asking Stripe to retry")
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return pkgerrors.Wrap(err, "failed to queue receipt")
	}

	log.Info("Purchase webhook accepted",
		zap.String("app_user_id", receipt.AppUserID),
		zap.String("fetch_token", receipt.FetchToken))

	return c.NoContent(http.StatusOK)
}

// count records metric off the response path, bounded by metricsTimeout.
func (h *WebhookHandler) count(metric, eventType string) {
	if eventType == "" {
		eventType = "untyped"
	}
	dims := map[string]string{provider.DimensionEventType: eventType}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.metricsTimeout)
		defer cancel()

		if err := h.metrics.RecordCount(ctx, metric, dims); err != nil {
			h.logger.Debug("Failed to record metric", zap.String("metric", metric), zap.Error(err))
		}
	}()
}

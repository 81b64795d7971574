package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	domainErrors "github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/errors"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/provider"
	pkgerrors "github.com/MitchellMonaghan/stripe-no-website-example/pkg/errors"
)

const (
	deadLetterTimeout     = 10 * time.Second
	defaultMetricsTimeout = 5 * time.Second
)

// Attempt outcomes used as the metrics outcome dimension.
const (
	outcomeSuccess   = "success"
	outcomeRetryable = "retryable"
	outcomeTerminal  = "terminal"
)

// ForwarderOption customizes a ReceiptForwarder.
type ForwarderOption func(*ReceiptForwarder)

// WithSleepFunc replaces the backoff wait. The function must return early with an error
// when ctx is done.
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) ForwarderOption {
	return func(f *ReceiptForwarder) {
		f.sleep = sleep
	}
}

// WithRandFunc replaces the jitter source. It must return values in [0, 1).
func WithRandFunc(rnd func() float64) ForwarderOption {
	return func(f *ReceiptForwarder) {
		f.rand = rnd
	}
}

// WithAttemptTimeout bounds each delivery attempt.
func WithAttemptTimeout(d time.Duration) ForwarderOption {
	return func(f *ReceiptForwarder) {
		f.attemptTimeout = d
	}
}

// WithMetricsTimeout bounds each metrics call made while forwarding.
func WithMetricsTimeout(d time.Duration) ForwarderOption {
	return func(f *ReceiptForwarder) {
		f.metricsTimeout = d
	}
}

// ReceiptForwarder delivers receipts to the entitlement service after the webhook has been
// acknowledged. Retryable failures are retried with backoff; receipts that cannot be
// delivered go to the dead-letter sink.
type ReceiptForwarder struct {
	entitlements   provider.EntitlementProvider
	deadLetters    provider.DeadLetterSink
	metrics        provider.MetricsRecorder
	policy         RetryPolicy
	attemptTimeout time.Duration
	metricsTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	rand           func() float64
	now            func() time.Time
	logger         *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewReceiptForwarder(
	entitlements provider.EntitlementProvider,
	deadLetters provider.DeadLetterSink,
	metrics provider.MetricsRecorder,
	policy RetryPolicy,
	logger *zap.Logger,
	opts ...ForwarderOption,
) *ReceiptForwarder {
	ctx, cancel := context.WithCancel(context.Background())
	f := &ReceiptForwarder{
		entitlements:   entitlements,
		deadLetters:    deadLetters,
		metrics:        metrics,
		policy:         policy.withDefaults(),
		attemptTimeout: 10 * time.Second,
		metricsTimeout: defaultMetricsTimeout,
		sleep:          sleepContext,
		rand:           rand.Float64,
		now:            time.Now,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Dispatch forwards req on a background goroutine that outlives the request.
func (f *ReceiptForwarder) Dispatch(eventID string, req entity.ReceiptRequest) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domainErrors.ErrForwarderClosed
	}
	// Track the delivery so Shutdown can drain it
	f.wg.Add(1)
	f.mu.Unlock()

	// Deliver on the forwarder's context, the request context ends with the response
	go func() {
		defer f.wg.Done()
		_ = f.Forward(f.ctx, eventID, req)
	}()
	return nil
}

// Forward delivers req synchronously, retrying per the policy. It returns nil once the
// entitlement service accepts the receipt, otherwise the last error after dead-lettering.
func (f *ReceiptForwarder) Forward(ctx context.Context, eventID string, req entity.ReceiptRequest) error {
	log := f.logger.With(
		zap.String("event_id", eventID),
		zap.String("app_user_id", req.AppUserID),
		zap.String("fetch_token", req.FetchToken))

	var lastErr error
	attempts := 0
	for attempts < f.policy.MaxAttempts {
		attempts++

		// Submit the receipt with a per-attempt timeout
		ack, err := f.attempt(ctx, req)
		if err == nil {
			log.Info("Receipt forwarded",
				zap.Int("attempt", attempts),
				zap.Int("status", ack.StatusCode))
			f.count(ctx, provider.MetricReceiptForwarded, nil)
			return nil
		}
		lastErr = err
		dims := map[string]string{provider.DimensionStatus: statusDimension(err)}

		// Terminal rejections are not retried
		if !provider.Retryable(err) {
			log.Error("Receipt rejected by entitlement service",
				zap.Int("attempt", attempts),
				zap.Error(err))
			f.count(ctx, provider.MetricReceiptTerminalFailure, dims)
			f.deadLetter(ctx, log, eventID, req, attempts, false, err)
			return err
		}

		if attempts == f.policy.MaxAttempts {
			break
		}

		// Back off before the next attempt
		wait := f.policy.Backoff(attempts, f.rand)
		log.Warn("Receipt delivery failed, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
		f.count(ctx, provider.MetricReceiptRetried, dims)

		if err := f.sleep(ctx, wait); err != nil {
			log.Warn("Receipt delivery interrupted", zap.Error(err))
			break
		}
	}

	// Retries exhausted or interrupted by shutdown
	log.Error("Receipt delivery abandoned",
		zap.Int("attempts", attempts),
		zap.Error(lastErr))
	f.count(ctx, provider.MetricReceiptDeadLettered, map[string]string{provider.DimensionStatus: statusDimension(lastErr)})
	f.deadLetter(ctx, log, eventID, req, attempts, true, lastErr)
	return fmt.Errorf("receipt not delivered after %d attempts: %w", attempts, lastErr)
}

// Shutdown stops accepting dispatches and waits for in-flight deliveries. When ctx
// expires first, pending backoffs are cut short so those receipts are dead-lettered.
func (f *ReceiptForwarder) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.cancel()
		return nil
	case <-ctx.Done():
		f.cancel()
		<-done
		return ctx.Err()
	}
}

func (f *ReceiptForwarder) attempt(ctx context.Context, req entity.ReceiptRequest) (*entity.ReceiptAck, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	start := f.now()
	ack, err := f.entitlements.SubmitReceipt(attemptCtx, req.AppUserID, req.FetchToken, req.Attributes)

	outcome := outcomeSuccess
	switch {
	case err == nil:
	case provider.Retryable(err):
		outcome = outcomeRetryable
	default:
		outcome = outcomeTerminal
	}
	f.latency(ctx, f.now().Sub(start), map[string]string{provider.DimensionOutcome: outcome})

	return ack, err
}

func (f *ReceiptForwarder) deadLetter(ctx context.Context, log *zap.Logger, eventID string, req entity.ReceiptRequest, attempts int, retryable bool, cause error) {
	letter := entity.DeadLetter{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Request:   req,
		Attempts:  attempts,
		Retryable: retryable,
		LastError: cause.Error(),
		FailedAt:  f.now().UTC(),
	}

	// the delivery context may already be cancelled by shutdown
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadLetterTimeout)
	defer cancel()

	if err := f.deadLetters.Publish(pubCtx, letter); err != nil {
		log.Error("Failed to publish dead letter",
			zap.String("dead_letter_id", letter.ID),
			zap.Error(err))
	}
}

// count and latency survive cancellation of ctx, bounded by metricsTimeout.
func (f *ReceiptForwarder) count(ctx context.Context, metric string, dims map[string]string) {
	metricCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.metricsTimeout)
	defer cancel()

	if err := f.metrics.RecordCount(metricCtx, metric, dims); err != nil {
		f.logger.Debug("Failed to record metric", zap.String("metric", metric), zap.Error(err))
	}
}

func (f *ReceiptForwarder) latency(ctx context.Context, d time.Duration, dims map[string]string) {
	metricCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.metricsTimeout)
	defer cancel()

	if err := f.metrics.RecordLatency(metricCtx, provider.MetricReceiptAttemptLatency, d, dims); err != nil {
		f.logger.Debug("Failed to record metric",
			zap.String("metric", provider.MetricReceiptAttemptLatency),
			zap.Error(err))
	}
}

// statusDimension reduces a delivery error to an error code, e.g. BAD_GATEWAY for a 502.
func statusDimension(err error) string {
	pe, ok := provider.AsProviderError(err)
	switch {
	case !ok:
		return pkgerrors.ErrInternal
	case pe.StatusCode == 0 && pe.Code != "":
		return pe.Code
	case pe.StatusCode == 0:
		return pkgerrors.ErrInternal
	default:
		return pkgerrors.FromHTTPStatus(pe.StatusCode)
	}
}

package provider

import (
	"context"
	"time"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
)

// EntitlementProvider submits purchase receipts to the subscription-entitlement service.
type EntitlementProvider interface {
	SubmitReceipt(ctx context.Context, appUserID, fetchToken string, attributes map[string]string) (*entity.ReceiptAck, error)
}

// CustomerGateway looks up and deletes payment gateway customers.
type CustomerGateway interface {
	// SearchCustomersByEmail returns every customer whose email matches exactly.
	SearchCustomersByEmail(ctx context.Context, email string) ([]entity.Customer, error)

	// DeleteCustomer deletes one customer by id.
	DeleteCustomer(ctx context.Context, customerID string) error
}

// DeadLetterSink receives receipts that were abandoned after retries.
type DeadLetterSink interface {
	Publish(ctx context.Context, letter entity.DeadLetter) error
}

// Deduplicator remembers delivered event ids for a bounded time.
type Deduplicator interface {
	// FirstSeen records key and reports true only for the first caller within ttl.
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release forgets key so a redelivery is processed again.
	Release(ctx context.Context, key string) error
}

// MetricsRecorder counts relay outcomes and times outbound calls.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// Metric names recorded by the relay.
const (
	MetricReceiptForwarded       = "ReceiptForwarded"
	MetricReceiptRetried         = "ReceiptRetried"
	MetricReceiptTerminalFailure = "ReceiptTerminalFailure"
	MetricReceiptDeadLettered    = "ReceiptDeadLettered"
	MetricReceiptRejected        = "ReceiptRejected"
	MetricWebhookDuplicate       = "WebhookDuplicate"
	MetricCustomerDeleteFailed   = "CustomerDeleteFailed"
	MetricReceiptAttemptLatency  = "ReceiptAttemptLatency"
)

// Dimension keys attached to relay metrics.
const (
	DimensionOutcome   = "outcome"
	DimensionStatus    = "status"
	DimensionEventType = "event_type"
)

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
)

// MockEntitlementProvider is a mock implementation of EntitlementProvider
type MockEntitlementProvider struct {
	mock.Mock
}

func (m *MockEntitlementProvider) SubmitReceipt(ctx context.Context, appUserID, fetchToken string, attributes map[string]string) (*entity.ReceiptAck, error) {
	args := m.Called(ctx, appUserID, fetchToken, attributes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ReceiptAck), args.Error(1)
}

// MockCustomerGateway is a mock implementation of CustomerGateway
type MockCustomerGateway struct {
	mock.Mock
}

func (m *MockCustomerGateway) SearchCustomersByEmail(ctx context.Context, email string) ([]entity.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Customer), args.Error(1)
}

func (m *MockCustomerGateway) DeleteCustomer(ctx context.Context, customerID string) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

// recordingSink keeps every dead letter it receives.
type recordingSink struct {
	mu      sync.Mutex
	letters []entity.DeadLetter
}

func (s *recordingSink) Publish(_ context.Context, letter entity.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.letters = append(s.letters, letter)
	return nil
}

func (s *recordingSink) all() []entity.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.DeadLetter(nil), s.letters...)
}

// recordingMetrics counts RecordCount calls per metric name and keeps every dimension set.
type recordingMetrics struct {
	mu        sync.Mutex
	counts    map[string]int
	dims      map[string][]map[string]string
	latencies []map[string]string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		counts: make(map[string]int),
		dims:   make(map[string][]map[string]string),
	}
}

func (r *recordingMetrics) RecordCount(_ context.Context, name string, dims map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
	r.dims[name] = append(r.dims[name], dims)
	return nil
}

func (r *recordingMetrics) RecordLatency(_ context.Context, _ string, _ time.Duration, dims map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, dims)
	return nil
}

func (r *recordingMetrics) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func (r *recordingMetrics) dimensions(name string) []map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]string(nil), r.dims[name]...)
}

func (r *recordingMetrics) latencyOutcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.latencies))
	for _, d := range r.latencies {
		out = append(out, d["outcome"])
	}
	return out
}

// blockingMetrics never answers until its context ends.
type blockingMetrics struct{}

func (blockingMetrics) RecordCount(ctx context.Context, _ string, _ map[string]string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingMetrics) RecordLatency(ctx context.Context, _ string, _ time.Duration, _ map[string]string) error {
	<-ctx.Done()
	return ctx.Err()
}

// recordingSleep captures backoff waits without sleeping.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleep) all() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

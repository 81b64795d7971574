package http

import (
	"context"
	"sync"
	"time"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
)

type dispatchCall struct {
	EventID string
	Request entity.ReceiptRequest
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (d *recordingDispatcher) Dispatch(eventID string, req entity.ReceiptRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.calls = append(d.calls, dispatchCall{EventID: eventID, Request: req})
	return nil
}

func (d *recordingDispatcher) all() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatchCall(nil), d.calls...)
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (r *recordingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
	return nil
}

func (r *recordingMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

func (r *recordingMetrics) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// blockingMetrics holds every call until its context ends, like an unreachable CloudWatch.
type blockingMetrics struct{}

func (blockingMetrics) RecordCount(ctx context.Context, _ string, _ map[string]string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingMetrics) RecordLatency(ctx context.Context, _ string, _ time.Duration, _ map[string]string) error {
	<-ctx.Done()
	return ctx.Err()
}

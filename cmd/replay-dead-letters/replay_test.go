package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/messaging"
)

const testChannel = "relay.receipts.dead_letter"

type recordingForwarder struct {
	mu       sync.Mutex
	eventIDs []string
	fail     map[string]bool
}

func (f *recordingForwarder) Forward(_ context.Context, eventID string, _ entity.ReceiptRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventIDs = append(f.eventIDs, eventID)
	if f.fail[eventID] {
		return errors.New("entitlement service unavailable")
	}
	return nil
}

func (f *recordingForwarder) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.eventIDs...)
}

func letter(eventID string, retryable bool) entity.DeadLetter {
	return entity.DeadLetter{
		ID:      "dl-" + eventID,
		EventID: eventID,
		Request: entity.ReceiptRequest{
			AppUserID:  "u1",
			FetchToken: "sub_1",
			Attributes: map[string]string{entity.AttributeStripeCustomerID: "cus_1"},
		},
		Attempts:  5,
		Retryable: retryable,
		LastError: "revenuecat: unavailable (status 503)",
		FailedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// startReplay runs r in the background and returns once it is subscribed.
func startReplay(t *testing.T, mr *miniredis.Miniredis, r *replayer) <-chan replayStats {
	t.Helper()
	done := make(chan replayStats, 1)
	go func() {
		stats, err := r.run(context.Background())
		assert.NoError(t, err)
		done <- stats
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(testChannel)[testChannel] == 1
	}, 2*time.Second, 5*time.Millisecond)
	return done
}

func publish(t *testing.T, mr *miniredis.Miniredis, messages ...interface{}) {
	t.Helper()
	client, err := messaging.NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	for _, m := range messages {
		require.NoError(t, client.Publish(context.Background(), testChannel, m))
	}
}

func waitStats(t *testing.T, done <-chan replayStats) replayStats {
	t.Helper()
	select {
	case stats := <-done:
		return stats
	case <-time.After(5 * time.Second):
		t.Fatal("replay did not finish")
		return replayStats{}
	}
}

func TestReplayer_ReplaysRetryableLetters(t *testing.T) {
	mr := miniredis.RunT(t)
	source, err := messaging.NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer source.Close()

	fwd := &recordingForwarder{fail: map[string]bool{"evt_3": true}}
	r := &replayer{
		source:    source,
		channel:   testChannel,
		forwarder: fwd,
		limit:     4,
		logger:    zap.NewNop(),
	}

	done := startReplay(t, mr, r)
	publish(t, mr, letter("evt_1", true), letter("evt_2", false), letter("evt_3", true), "not a dead letter")

	stats := waitStats(t, done)
	assert.Equal(t, replayStats{Received: 4, Replayed: 1, Skipped: 2, Failed: 1}, stats)
	assert.Equal(t, []string{"evt_1", "evt_3"}, fwd.all())
}

func TestReplayer_IncludeTerminal(t *testing.T) {
	mr := miniredis.RunT(t)
	source, err := messaging.NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer source.Close()

	fwd := &recordingForwarder{}
	r := &replayer{
		source:          source,
		channel:         testChannel,
		forwarder:       fwd,
		includeTerminal: true,
		limit:           1,
		logger:          zap.NewNop(),
	}

	done := startReplay(t, mr, r)
	publish(t, mr, letter("evt_1", false))

	assert.Equal(t, replayStats{Received: 1, Replayed: 1}, waitStats(t, done))
	assert.Equal(t, []string{"evt_1"}, fwd.all())
}

func TestReplayer_DryRun(t *testing.T) {
	mr := miniredis.RunT(t)
	source, err := messaging.NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer source.Close()

	fwd := &recordingForwarder{}
	r := &replayer{
		source:    source,
		channel:   testChannel,
		forwarder: fwd,
		dryRun:    true,
		limit:     1,
		logger:    zap.NewNop(),
	}

	done := startReplay(t, mr, r)
	publish(t, mr, letter("evt_1", true))

	assert.Equal(t, replayStats{Received: 1, Skipped: 1}, waitStats(t, done))
	assert.Empty(t, fwd.all())
}

func TestReplayer_StopsWhenContextEnds(t *testing.T) {
	mr := miniredis.RunT(t)
	source, err := messaging.NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer source.Close()

	r := &replayer{source: source, channel: testChannel, forwarder: &recordingForwarder{}, logger: zap.NewNop()}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	stats, err := r.run(ctx)
	require.NoError(t, err)
	assert.Equal(t, replayStats{}, stats)
}

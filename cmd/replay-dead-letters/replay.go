package main

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/infrastructure/messaging"
)

// receiptForwarder is the part of usecase.ReceiptForwarder the replayer drives.
type receiptForwarder interface {
	Forward(ctx context.Context, eventID string, req entity.ReceiptRequest) error
}

type replayStats struct {
	Received int
	Replayed int
	Skipped  int
	Failed   int
}

type replayer struct {
	source          messaging.RedisClient
	channel         string
	forwarder       receiptForwarder
	includeTerminal bool
	dryRun          bool
	limit           int
	logger          *zap.Logger
}

// run consumes dead letters until ctx ends, the subscription closes or limit is reached.
func (r *replayer) run(ctx context.Context) (replayStats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stats replayStats

	msgs, err := r.source.Subscribe(ctx, r.channel)
	if err != nil {
		return stats, err
	}
	r.logger.Info("Listening for dead letters", zap.String("channel", r.channel))

	for msg := range msgs {
		stats.Received++
		r.handle(ctx, msg, &stats)

		if r.limit > 0 && stats.Received >= r.limit {
			break
		}
	}

	return stats, nil
}

func (r *replayer) handle(ctx context.Context, msg messaging.Message, stats *replayStats) {
	// Decode the dead letter
	var letter entity.DeadLetter
	if err := json.Unmarshal(msg.Payload, &letter); err != nil {
		r.logger.Warn("Undecodable dead letter",
			zap.ByteString("payload", msg.Payload),
			zap.Error(err))
		stats.Skipped++
		return
	}

	log := r.logger.With(
		zap.String("dead_letter_id", letter.ID),
		zap.String("event_id", letter.EventID),
		zap.String("app_user_id", letter.Request.AppUserID),
		zap.String("fetch_token", letter.Request.FetchToken))

	// Rejected receipts need a fix upstream before they can succeed
	if !letter.Retryable && !r.includeTerminal {
		log.Info("Skipping terminal dead letter", zap.String("last_error", letter.LastError))
		stats.Skipped++
		return
	}

	if r.dryRun {
		log.Info("Dead letter (dry run)",
			zap.Int("attempts", letter.Attempts),
			zap.String("last_error", letter.LastError),
			zap.Time("failed_at", letter.FailedAt))
		stats.Skipped++
		return
	}

	if err := r.forwarder.Forward(ctx, letter.EventID, letter.Request); err != nil {
		log.Error("Dead letter replay failed", zap.Error(err))
		stats.Failed++
		return
	}

	log.Info("Dead letter replayed")
	stats.Replayed++
}

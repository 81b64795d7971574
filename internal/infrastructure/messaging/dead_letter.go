package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/provider"
)

// LogSink writes dead letters to the service log at error level.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, letter entity.DeadLetter) error {
	s.logger.Error("Receipt dead-lettered",
		zap.String("dead_letter_id", letter.ID),
		zap.String("event_id", letter.EventID),
		zap.String("app_user_id", letter.Request.AppUserID),
		zap.String("fetch_token", letter.Request.FetchToken),
		zap.Any("attributes", letter.Request.Attributes),
		zap.Int("attempts", letter.Attempts),
		zap.Bool("retryable", letter.Retryable),
		zap.String("last_error", letter.LastError),
		zap.Time("failed_at", letter.FailedAt))
	return nil
}

// RedisSink publishes dead letters as JSON on a pub/sub channel.
type RedisSink struct {
	client  RedisClient
	channel string
}

func NewRedisSink(client RedisClient, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Publish(ctx context.Context, letter entity.DeadLetter) error {
	if err := s.client.Publish(ctx, s.channel, letter); err != nil {
		return fmt.Errorf("failed to publish dead letter %s to redis: %w", letter.ID, err)
	}
	return nil
}

// SNSSink publishes dead letters to an SNS topic.
type SNSSink struct {
	publisher SNSPublisher
	topicARN  string
}

func NewSNSSink(publisher SNSPublisher, topicARN string) *SNSSink {
	return &SNSSink{publisher: publisher, topicARN: topicARN}
}

func (s *SNSSink) Publish(ctx context.Context, letter entity.DeadLetter) error {
	body, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	return s.publisher.Publish(ctx, s.topicARN, body)
}

// FanOut delivers to every sink and joins their errors. A failing sink does not stop the rest.
type FanOut struct {
	sinks []provider.DeadLetterSink
}

func NewFanOut(sinks ...provider.DeadLetterSink) *FanOut {
	return &FanOut{sinks: sinks}
}

func (f *FanOut) Publish(ctx context.Context, letter entity.DeadLetter) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, letter); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

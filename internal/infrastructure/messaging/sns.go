package messaging

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSPublisher publishes a raw message to a topic.
type SNSPublisher interface {
	Publish(ctx context.Context, topicARN string, message []byte) error
}

// SNSAPI is the part of the SNS client the publisher uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client SNSAPI
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// NewSNSClientWith wraps an existing SNS API implementation.
func NewSNSClientWith(client SNSAPI) *SNSClient {
	return &SNSClient{client: client}
}

func (s *SNSClient) Publish(ctx context.Context, topicARN string, message []byte) error {
	if topicARN == "" {
		return fmt.Errorf("empty topic arn")
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: sdkaws.String(topicARN),
		Message:  sdkaws.String(string(message)),
		Subject:  sdkaws.String("receipt dead letter"),
	})
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicARN, err)
	}
	return nil
}

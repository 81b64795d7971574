package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatchAPI is the part of the CloudWatch client the recorder uses.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder publishes relay counters to CloudWatch.
type CloudWatchRecorder struct {
	client    CloudWatchAPI
	namespace string
}

func NewCloudWatchRecorder(cfg sdkaws.Config, namespace string) *CloudWatchRecorder {
	return NewCloudWatchRecorderWith(cloudwatch.NewFromConfig(cfg), namespace)
}

func NewCloudWatchRecorderWith(client CloudWatchAPI, namespace string) *CloudWatchRecorder {
	if namespace == "" {
		namespace = "ReceiptRelay"
	}
	return &CloudWatchRecorder{client: client, namespace: namespace}
}

// PutMetric sends a single data point.
func (m *CloudWatchRecorder) PutMetric(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	names := make([]string, 0, len(dimensions))
	for k := range dimensions {
		names = append(names, k)
	}
	sort.Strings(names)

	dims := make([]types.Dimension, 0, len(dimensions))
	for _, k := range names {
		dims = append(dims, types.Dimension{
			Name:  sdkaws.String(k),
			Value: sdkaws.String(dimensions[k]),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: sdkaws.String(metricName),
				Value:      sdkaws.Float64(value),
				Unit:       unit,
				Timestamp:  sdkaws.Time(time.Now()),
				Dimensions: dims,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put metric %s: %w", metricName, err)
	}
	return nil
}

// RecordCount increments a counter metric.
func (m *CloudWatchRecorder) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions)
}

// RecordLatency records a duration in milliseconds.
func (m *CloudWatchRecorder) RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

// Nop discards every metric. It stands in when CloudWatch is disabled.
type Nop struct{}

func (Nop) RecordCount(context.Context, string, map[string]string) error { return nil }

func (Nop) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

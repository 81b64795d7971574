package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestCloudWatchRecorder_RecordCount(t *testing.T) {
	api := new(mockCloudWatch)
	api.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
		if *in.Namespace != "ReceiptRelay" || len(in.MetricData) != 1 {
			return false
		}
		d := in.MetricData[0]
		return *d.MetricName == "ReceiptForwarded" &&
			*d.Value == 1 &&
			d.Unit == types.StandardUnitCount &&
			len(d.Dimensions) == 2 &&
			*d.Dimensions[0].Name == "outcome" &&
			*d.Dimensions[1].Name == "provider"
	})).Return(nil).Once()

	rec := NewCloudWatchRecorderWith(api, "")
	err := rec.RecordCount(context.Background(), "ReceiptForwarded", map[string]string{
		"provider": "revenuecat",
		"outcome":  "ok",
	})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestCloudWatchRecorder_RecordLatency(t *testing.T) {
	api := new(mockCloudWatch)
	api.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
		d := in.MetricData[0]
		return *d.MetricName == "ReceiptAttemptLatency" &&
			*d.Value == 1500 &&
			d.Unit == types.StandardUnitMilliseconds &&
			len(d.Dimensions) == 1 &&
			*d.Dimensions[0].Value == "retryable"
	})).Return(nil).Once()

	rec := NewCloudWatchRecorderWith(api, "ns")
	err := rec.RecordLatency(context.Background(), "ReceiptAttemptLatency", 1500*time.Millisecond, map[string]string{
		"outcome": "retryable",
	})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestCloudWatchRecorder_Error(t *testing.T) {
	api := new(mockCloudWatch)
	api.On("PutMetricData", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	err := NewCloudWatchRecorderWith(api, "ns").RecordCount(context.Background(), "ReceiptRejected", nil)
	assert.ErrorContains(t, err, "throttled")
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.RecordCount(context.Background(), "anything", nil))
	assert.NoError(t, Nop{}.RecordLatency(context.Background(), "anything", time.Second, nil))
}

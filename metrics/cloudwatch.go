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

// Metric names
const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"
)

// Recorder receives counters and latencies.
type Recorder interface {
	RecordCount(ctx context.Context, name string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error
}

// Noop drops everything.
type Noop struct{}

func (Noop) RecordCount(context.Context, string, map[string]string) error { return nil }

func (Noop) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

type cloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch writes one datum per call to a CloudWatch namespace.
type CloudWatch struct {
	client    cloudWatchAPI
	namespace string
	now       func() time.Time
}

func NewCloudWatch(cfg sdkaws.Config, namespace string) *CloudWatch {
	return &CloudWatch{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		now:       time.Now,
	}
}

func (m *CloudWatch) RecordCount(ctx context.Context, name string, dimensions map[string]string) error {
	return m.put(ctx, name, 1, types.StandardUnitCount, dimensions)
}

func (m *CloudWatch) RecordLatency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error {
	return m.put(ctx, name, float64(d.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

func (m *CloudWatch) put(ctx context.Context, name string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	keys := make([]string, 0, len(dimensions))
	for k := range dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dims := make([]types.Dimension, 0, len(keys))
	for _, k := range keys {
		dims = append(dims, types.Dimension{Name: sdkaws.String(k), Value: sdkaws.String(dimensions[k])})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []types.MetricDatum{{
			MetricName: sdkaws.String(name),
			Value:      sdkaws.Float64(value),
			Unit:       unit,
			Timestamp:  sdkaws.Time(m.now()),
			Dimensions: dims,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to put metric %s: %w", name, err)
	}
	return nil
}

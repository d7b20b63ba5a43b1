package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{}, f.err
}

type orderEvent struct {
	OrderID string `json:"order_id"`
}

func TestKafkaPublisher_WritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "order.created"}

	require.NoError(t, p.Publish(context.Background(), "user-1", orderEvent{OrderID: "o-1"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user-1", string(w.msgs[0].Key))

	var got orderEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "o-1", got.OrderID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}, topic: "order.created"}
	err := p.Publish(context.Background(), "user-1", orderEvent{})
	assert.ErrorContains(t, err, "order.created")
}

func TestSNSPublisher_Publish(t *testing.T) {
	f := &fakeSNS{}
	p := &SNSPublisher{client: f, topicArn: "arn:aws:sns:us-east-1:000000000000:order-events"}

	require.NoError(t, p.Publish(context.Background(), "user-1", orderEvent{OrderID: "o-2"}))
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:order-events", *f.input.TopicArn)
	assert.JSONEq(t, `{"order_id":"o-2"}`, *f.input.Message)
}

func TestSNSPublisher_EmptyTopic(t *testing.T) {
	p := &SNSPublisher{client: &fakeSNS{}}
	assert.Error(t, p.Publish(context.Background(), "k", orderEvent{}))
}

func TestMultiPublisher_JoinsErrors(t *testing.T) {
	ok := &KafkaPublisher{writer: &fakeWriter{}, topic: "a"}
	bad := &KafkaPublisher{writer: &fakeWriter{err: errors.New("boom")}, topic: "b"}

	err := MultiPublisher{ok, bad, NoopPublisher{}}.Publish(context.Background(), "k", orderEvent{})
	assert.ErrorContains(t, err, "boom")
	assert.Len(t, ok.writer.(*fakeWriter).msgs, 1)
}

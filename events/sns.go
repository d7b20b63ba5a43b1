package events

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// LoadAWSConfig loads the default AWS config chain (env, shared config, role).
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes JSON events to one SNS topic.
type SNSPublisher struct {
	client   snsAPI
	topicArn string
}

// NewSNSPublisher builds the SNS client. AWS_SNS_ENDPOINT or AWS_ENDPOINT
// redirect it, e.g. to LocalStack.
func NewSNSPublisher(cfg sdkaws.Config, topicArn string) *SNSPublisher {
	endpoint := os.Getenv("AWS_SNS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("AWS_ENDPOINT")
	}
	client := sns.NewFromConfig(cfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = sdkaws.String(endpoint)
		}
	})
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (s *SNSPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	if s.topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	data, err := encode(event)
	if err != nil {
		return err
	}
	input := &sns.PublishInput{
		TopicArn: sdkaws.String(s.topicArn),
		Message:  sdkaws.String(string(data)),
	}
	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", s.topicArn, err)
	}
	return nil
}

func (s *SNSPublisher) Close() error { return nil }

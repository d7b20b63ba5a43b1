package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Publisher delivers domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error { return nil }

// MultiPublisher fans an event out to every wrapped publisher.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, key, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encode(event interface{}) ([]byte, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}

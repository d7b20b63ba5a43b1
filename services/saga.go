package services

import (
	"context"
	"errors"
	"fmt"
	"storefront-service/apperrors"

	"go.uber.org/zap"
)

type sagaStep struct {
	name string
	run  func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// saga runs a fixed sequence of writes. When a step fails, the undo of every
// step that already completed runs in reverse order.
type saga struct {
	name   string
	logger *zap.Logger
	steps  []sagaStep
}

func newSaga(name string, logger *zap.Logger) *saga {
	return &saga{name: name, logger: logger}
}

// Step appends a write and its compensation. undo may be nil.
func (s *saga) Step(name string, run, undo func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, sagaStep{name: name, run: run, undo: undo})
	return s
}

// Execute returns a persistence error when the first step fails and a
// partial-failure error once compensation had to run.
func (s *saga) Execute(ctx context.Context, failureMessage string) error {
	for i, step := range s.steps {
		err := step.run(ctx)
		if err == nil {
			continue
		}

		s.logger.Error("Saga step failed",
			zap.String("saga", s.name),
			zap.String("step", step.name),
			zap.Error(err),
		)
		if i == 0 {
			return apperrors.Persistence(failureMessage, err)
		}

		undoErr := s.compensate(context.WithoutCancel(ctx), i-1)
		cause := fmt.Errorf("%s: %w", step.name, err)
		if undoErr != nil {
			cause = errors.Join(cause, undoErr)
		}
		return apperrors.PartialFailure(failureMessage, cause)
	}
	return nil
}

func (s *saga) compensate(ctx context.Context, from int) error {
	var errs []error
	for i := from; i >= 0; i-- {
		step := s.steps[i]
		if step.undo == nil {
			continue
		}
		if err := step.undo(ctx); err != nil {
			s.logger.Error("Saga compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("undo %s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}

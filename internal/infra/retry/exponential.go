package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/fixora/leadflow/internal/infra/logger"
)

// ExponentialBackoffStrategy implements retry with exponential backoff
type ExponentialBackoffStrategy struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	logger       logger.Logger
}

// NewExponentialBackoffStrategy creates a new ExponentialBackoffStrategy
func NewExponentialBackoffStrategy(maxRetries int, initialDelay, maxDelay time.Duration, log logger.Logger) *ExponentialBackoffStrategy {
	if log == nil {
		log = logger.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ExponentialBackoffStrategy{
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		logger:       log,
	}
}

// Execute runs the operation, doubling the delay after each failed attempt
func (s *ExponentialBackoffStrategy) Execute(ctx context.Context, operation Operation) error {
	var lastErr error
	delay := s.initialDelay

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				s.logger.Info(ctx, "Operation succeeded after retry", map[string]interface{}{
					"attempt":        attempt + 1,
					"total_attempts": s.maxRetries + 1,
				})
			}
			return nil
		}

		lastErr = err

		if IsPermanent(err) {
			return err
		}

		if attempt >= s.maxRetries {
			break
		}

		s.logger.Warn(ctx, "Operation failed, retrying with exponential backoff", map[string]interface{}{
			"attempt":      attempt + 1,
			"max_attempts": s.maxRetries + 1,
			"retry_in":     delay.String(),
			"error":        err.Error(),
		})

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay *= 2
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", s.maxRetries+1, lastErr)
}

// Name returns the strategy name
func (s *ExponentialBackoffStrategy) Name() string {
	return "ExponentialBackoff"
}

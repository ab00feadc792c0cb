package retry

import (
	"context"
	"errors"
	"time"

	"github.com/fixora/leadflow/internal/infra/logger"
)

// Strategy defines the interface for retry strategies
type Strategy interface {
	// Execute runs the operation with the configured retry logic
	Execute(ctx context.Context, operation Operation) error

	// Name returns the name of the strategy for logging
	Name() string
}

// Operation is a function that can be retried
type Operation func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	Enabled      bool
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// NewStrategy creates a retry strategy based on configuration
func NewStrategy(config Config, log logger.Logger) Strategy {
	if !config.Enabled {
		return NewNoRetryStrategy()
	}
	return NewExponentialBackoffStrategy(config.MaxRetries, config.InitialDelay, config.MaxDelay, log)
}

// permanentError marks an error that must not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so strategies stop retrying immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// NoRetryStrategy runs the operation exactly once
type NoRetryStrategy struct{}

// NewNoRetryStrategy creates a NoRetryStrategy
func NewNoRetryStrategy() *NoRetryStrategy {
	return &NoRetryStrategy{}
}

func (s *NoRetryStrategy) Execute(ctx context.Context, operation Operation) error {
	return operation(ctx)
}

func (s *NoRetryStrategy) Name() string {
	return "NoRetry"
}

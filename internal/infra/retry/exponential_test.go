package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_SucceedsAfterRetries(t *testing.T) {
	s := NewExponentialBackoffStrategy(3, time.Millisecond, 5*time.Millisecond, nil)

	calls := 0
	err := s.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExponentialBackoff_GivesUp(t *testing.T) {
	s := NewExponentialBackoffStrategy(2, time.Millisecond, time.Millisecond, nil)
	boom := errors.New("boom")

	calls := 0
	err := s.Execute(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestExponentialBackoff_PermanentStopsImmediately(t *testing.T) {
	s := NewExponentialBackoffStrategy(5, time.Millisecond, time.Millisecond, nil)
	boom := errors.New("invalid")

	calls := 0
	err := s.Execute(context.Background(), func(context.Context) error {
		calls++
		return Permanent(boom)
	})

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestExponentialBackoff_ContextCancelled(t *testing.T) {
	s := NewExponentialBackoffStrategy(5, time.Hour, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Execute(ctx, func(context.Context) error {
		cancel()
		return errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewStrategy(t *testing.T) {
	assert.Equal(t, "NoRetry", NewStrategy(Config{Enabled: false}, nil).Name())
	assert.Equal(t, "ExponentialBackoff", NewStrategy(Config{Enabled: true, MaxRetries: 1}, nil).Name())
}

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/leadflow/internal/infra/logger"
	"github.com/fixora/leadflow/internal/ports"
)

// DefaultChannel is the Redis channel workflow events are published on
const DefaultChannel = "leadflow:events"

// publishClient is the part of *redis.Client the publisher needs
type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes domain events over Redis pub/sub
type RedisPublisher struct {
	client  publishClient
	channel string
}

// NewRedisPublisher creates a publisher on the given channel
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return newRedisPublisher(client, channel)
}

func newRedisPublisher(client publishClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)

// Publish serializes the event and publishes it
func (p *RedisPublisher) Publish(ctx context.Context, event ports.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}
	return nil
}

// LogPublisher writes events to the log. Used when Redis is not configured.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a publisher that only logs
func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log}
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

// Publish logs the event at debug level
func (p *LogPublisher) Publish(ctx context.Context, event ports.Event) error {
	p.logger.Debug(ctx, "Domain event", map[string]interface{}{
		"event_id":     event.ID,
		"event":        event.Type,
		"aggregate":    event.Aggregate,
		"aggregate_id": event.AggregateID,
	})
	return nil
}

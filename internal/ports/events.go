package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventPublisher defines the interface for domain event publishing
type EventPublisher interface {
	// Publish publishes a domain event
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Aggregate   string                 `json:"aggregate"`
	AggregateID string                 `json:"aggregate_id"`
	Data        map[string]interface{} `json:"data"`
	Version     int                    `json:"version"`
	CreatedAt   int64                  `json:"created_at"`
}

// Event Types
const (
	EventTypeRequestSubmitted = "lead_status_request_submitted"
	EventTypeRequestDecided   = "lead_status_request_decided"
	EventTypeRequestArchived  = "lead_status_request_archived"
	EventTypeEntityModified   = "entity_modified"
)

// Aggregates
const (
	AggregateLeadStatusRequest = "lead_status_request"
	AggregateLead              = "lead"
)

// NewEvent creates a new domain event
func NewEvent(eventType, aggregate, aggregateID string, data map[string]interface{}, version int) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		Aggregate:   aggregate,
		AggregateID: aggregateID,
		Data:        data,
		Version:     version,
		CreatedAt:   time.Now().Unix(),
	}
}

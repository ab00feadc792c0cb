package usecase

import (
	"context"
	"time"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// ChangeLogRecorder appends field-level modification log entries.
// It does not interpret field names or values.
type ChangeLogRecorder struct {
	repo ports.ModificationLogRepository
	now  func() time.Time
}

// NewChangeLogRecorder creates a new change log recorder
func NewChangeLogRecorder(repo ports.ModificationLogRepository) *ChangeLogRecorder {
	return &ChangeLogRecorder{repo: repo, now: utcNow}
}

// Record appends one entry per call. An empty diff set fails with
// ErrEmptyChangeSet and stores nothing.
func (c *ChangeLogRecorder) Record(ctx context.Context, entityID string, agentID *string, diffs []domain.FieldChange) (*domain.ModificationLogEntry, error) {
	entry, err := domain.NewModificationLogEntry(entityID, agentID, diffs, c.now())
	if err != nil {
		return nil, err
	}

	if err := c.repo.Append(ctx, entry); err != nil {
		return nil, wrapInfra("failed to record change", err)
	}
	return entry, nil
}

// RecordForRequest appends the change made by applying a status request.
// It is idempotent per request: a repeat fails with ErrAlreadyLogged and
// stores nothing.
func (c *ChangeLogRecorder) RecordForRequest(ctx context.Context, requestID, entityID string, agentID *string, diffs []domain.FieldChange) (*domain.ModificationLogEntry, error) {
	if requestID == "" {
		return nil, domain.ErrInvalidRequest
	}
	entry, err := domain.NewModificationLogEntry(entityID, agentID, diffs, c.now())
	if err != nil {
		return nil, err
	}
	entry.SourceRequestID = &requestID

	if err := c.repo.Append(ctx, entry); err != nil {
		return nil, wrapInfra("failed to record change", err)
	}
	return entry, nil
}

// List retrieves the change log of an entity, oldest first
func (c *ChangeLogRecorder) List(ctx context.Context, entityID string) ([]*domain.ModificationLogEntry, error) {
	if entityID == "" {
		return nil, domain.ErrInvalidRequest
	}

	entries, err := c.repo.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, wrapInfra("failed to list change log", err)
	}
	return entries, nil
}

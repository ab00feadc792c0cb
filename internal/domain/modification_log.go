package domain

import (
	"strings"
	"time"
)

// Tracked entity field names
const (
	FieldStatus        = "status"
	FieldStatusRequest = "status_request"
)

// FieldChange records a single property mutation. Values are opaque to the log.
type FieldChange struct {
	FieldName string `json:"field_name"`
	OldValue  any    `json:"old_value"`
	NewValue  any    `json:"new_value"`
}

// ModificationLogEntry is an append-only audit record of field-level changes
// made to a tracked entity. SourceRequestID is set when the change applies a
// status request; a log holds at most one entry per source request.
type ModificationLogEntry struct {
	ID              string        `json:"id,omitempty"`
	EntityID        string        `json:"entity_id"`
	Date            time.Time     `json:"date"`
	AgentID         *string       `json:"agent_id,omitempty"`
	SourceRequestID *string       `json:"source_request_id,omitempty"`
	ModifiedFields  []FieldChange `json:"modified_fields"`
}

// NewModificationLogEntry builds an unpersisted entry. An empty change set is
// rejected with ErrEmptyChangeSet.
func NewModificationLogEntry(entityID string, agentID *string, diffs []FieldChange, now time.Time) (*ModificationLogEntry, error) {
	if len(diffs) == 0 {
		return nil, ErrEmptyChangeSet
	}
	if strings.TrimSpace(entityID) == "" {
		return nil, ErrInvalidRequest
	}
	for _, d := range diffs {
		if strings.TrimSpace(d.FieldName) == "" {
			return nil, ErrInvalidRequest
		}
	}

	fields := make([]FieldChange, len(diffs))
	copy(fields, diffs)

	return &ModificationLogEntry{
		EntityID:       entityID,
		Date:           now,
		AgentID:        cloneString(agentID),
		ModifiedFields: fields,
	}, nil
}

// Clone returns a copy with its own field slice
func (e *ModificationLogEntry) Clone() *ModificationLogEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.AgentID = cloneString(e.AgentID)
	c.SourceRequestID = cloneString(e.SourceRequestID)
	c.ModifiedFields = make([]FieldChange, len(e.ModifiedFields))
	copy(c.ModifiedFields, e.ModifiedFields)
	return &c
}

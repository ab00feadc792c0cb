package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// onePerRequestIndex is the partial unique index on source_request_id
const onePerRequestIndex = "modification_log_entries_one_per_request"

// PostgresModificationLogRepository implements ModificationLogRepository using PostgreSQL.
// Modified fields are stored as a JSONB array.
type PostgresModificationLogRepository struct {
	db *sql.DB
}

// NewPostgresModificationLogRepository creates a new PostgreSQL change log repository
func NewPostgresModificationLogRepository(db *sql.DB) ports.ModificationLogRepository {
	return &PostgresModificationLogRepository{db: db}
}

// Append stores a new entry and assigns its ID. A second entry for the same
// source request fails with ErrAlreadyLogged.
func (r *PostgresModificationLogRepository) Append(ctx context.Context, entry *domain.ModificationLogEntry) error {
	if len(entry.ModifiedFields) == 0 {
		return domain.ErrEmptyChangeSet
	}

	fieldsJSON, err := json.Marshal(entry.ModifiedFields)
	if err != nil {
		return fmt.Errorf("failed to marshal modified fields: %w", err)
	}

	id := uuid.NewString()
	query := `
		INSERT INTO modification_log_entries (id, entity_id, date, agent_id, source_request_id, modified_fields)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query, id, entry.EntityID, entry.Date, entry.AgentID, entry.SourceRequestID, fieldsJSON)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == onePerRequestIndex {
			return domain.ErrAlreadyLogged
		}
		return fmt.Errorf("failed to append modification log entry: %w", err)
	}

	entry.ID = id
	return nil
}

// ListByEntity retrieves all entries of an entity in insertion order
func (r *PostgresModificationLogRepository) ListByEntity(ctx context.Context, entityID string) ([]*domain.ModificationLogEntry, error) {
	query := `
		SELECT id, entity_id, date, agent_id, source_request_id, modified_fields
		FROM modification_log_entries
		WHERE entity_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modification log: %w", err)
	}
	defer rows.Close()

	entries := []*domain.ModificationLogEntry{}
	for rows.Next() {
		var entry domain.ModificationLogEntry
		var agentID, sourceRequestID sql.NullString
		var fieldsJSON []byte

		if err := rows.Scan(&entry.ID, &entry.EntityID, &entry.Date, &agentID, &sourceRequestID, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan modification log entry: %w", err)
		}

		if err := json.Unmarshal(fieldsJSON, &entry.ModifiedFields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal modified fields: %w", err)
		}
		entry.AgentID = mapStringPtr(agentID)
		entry.SourceRequestID = mapStringPtr(sourceRequestID)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating modification log: %w", err)
	}

	return entries, nil
}

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// PostgresLeadDirectory implements LeadDirectory over the leads table
type PostgresLeadDirectory struct {
	db *sql.DB
}

// NewPostgresLeadDirectory creates a new PostgreSQL lead directory
func NewPostgresLeadDirectory(db *sql.DB) ports.LeadDirectory {
	return &PostgresLeadDirectory{db: db}
}

// FindLead retrieves a lead by its ID
func (d *PostgresLeadDirectory) FindLead(ctx context.Context, id string) (*domain.Lead, error) {
	var lead domain.Lead
	err := d.db.QueryRowContext(ctx, `SELECT id, name, status FROM leads WHERE id = $1`, id).
		Scan(&lead.ID, &lead.Name, &lead.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	return &lead, nil
}

// UpdateLeadStatus sets the status of a lead and returns the previous one.
// The row is locked between read and write so the returned value is exact.
func (d *PostgresLeadDirectory) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) (domain.LeadStatus, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var previous domain.LeadStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM leads WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrLeadNotFound
		}
		return "", fmt.Errorf("failed to lock lead: %w", err)
	}

	if previous != status {
		_, err = tx.ExecContext(ctx, `UPDATE leads SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), time.Now().UTC())
		if err != nil {
			return "", fmt.Errorf("failed to update lead status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit lead status: %w", err)
	}
	return previous, nil
}

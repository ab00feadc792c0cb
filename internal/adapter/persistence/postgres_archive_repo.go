package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

const archiveColumns = `id, source_request_id, lead_id, lead_label, requested_by_id, requested_by_label,
	approved_by_id, approved_by_label, rejected_by_id, rejected_by_label,
	requested_status, approval_status, approver_role, comment, created_at, updated_at, archived_at`

// PostgresArchiveRepository implements ArchiveRepository using PostgreSQL
type PostgresArchiveRepository struct {
	db *sql.DB
}

// NewPostgresArchiveRepository creates a new PostgreSQL archive repository
func NewPostgresArchiveRepository(db *sql.DB) ports.ArchiveRepository {
	return &PostgresArchiveRepository{db: db}
}

// Create appends an archived record. source_request_id is the primary key,
// so a conflicting insert means the request was archived already.
func (r *PostgresArchiveRepository) Create(ctx context.Context, a *domain.ArchivedLeadStatusRequest) error {
	query := `
		INSERT INTO archived_lead_status_requests (` + archiveColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (source_request_id) DO NOTHING
	`

	approvedID, approvedLabel := splitReference(a.ApprovedBy)
	rejectedID, rejectedLabel := splitReference(a.RejectedBy)

	result, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.SourceRequestID,
		a.Lead.ID,
		a.Lead.Label,
		a.RequestedBy.ID,
		a.RequestedBy.Label,
		approvedID,
		approvedLabel,
		rejectedID,
		rejectedLabel,
		string(a.RequestedStatus),
		string(a.ApprovalStatus),
		string(a.ApproverRole),
		a.Comment,
		a.CreatedAt,
		a.UpdatedAt,
		a.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive lead status request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrAlreadyArchived
	}
	return nil
}

// FindBySourceID retrieves the archived record of a source request
func (r *PostgresArchiveRepository) FindBySourceID(ctx context.Context, sourceRequestID string) (*domain.ArchivedLeadStatusRequest, error) {
	query := `SELECT ` + archiveColumns + ` FROM archived_lead_status_requests WHERE source_request_id = $1`

	a, err := scanArchived(r.db.QueryRowContext(ctx, query, sourceRequestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to find archived request: %w", err)
	}
	return a, nil
}

// List retrieves archived records in archival order
func (r *PostgresArchiveRepository) List(ctx context.Context, filter domain.ArchiveFilter) ([]*domain.ArchivedLeadStatusRequest, error) {
	query := `SELECT ` + archiveColumns + ` FROM archived_lead_status_requests WHERE 1=1`

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.LeadID != nil {
		conditions = append(conditions, fmt.Sprintf("lead_id = $%d", argIndex))
		args = append(args, *filter.LeadID)
		argIndex++
	}

	if filter.ApprovalStatus != nil {
		conditions = append(conditions, fmt.Sprintf("approval_status = $%d", argIndex))
		args = append(args, string(*filter.ApprovalStatus))
		argIndex++
	}

	if filter.ArchivedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("archived_at >= $%d", argIndex))
		args = append(args, *filter.ArchivedFrom)
		argIndex++
	}

	if filter.ArchivedTo != nil {
		conditions = append(conditions, fmt.Sprintf("archived_at <= $%d", argIndex))
		args = append(args, *filter.ArchivedTo)
		argIndex++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY archived_at ASC, id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived requests: %w", err)
	}
	defer rows.Close()

	var records []*domain.ArchivedLeadStatusRequest
	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archived request: %w", err)
		}
		records = append(records, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archived requests: %w", err)
	}

	return records, nil
}

func scanArchived(row rowScanner) (*domain.ArchivedLeadStatusRequest, error) {
	var a domain.ArchivedLeadStatusRequest
	var approvedID, approvedLabel, rejectedID, rejectedLabel, comment sql.NullString

	err := row.Scan(
		&a.ID,
		&a.SourceRequestID,
		&a.Lead.ID,
		&a.Lead.Label,
		&a.RequestedBy.ID,
		&a.RequestedBy.Label,
		&approvedID,
		&approvedLabel,
		&rejectedID,
		&rejectedLabel,
		&a.RequestedStatus,
		&a.ApprovalStatus,
		&a.ApproverRole,
		&comment,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ArchivedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ApprovedBy = joinReference(approvedID, approvedLabel)
	a.RejectedBy = joinReference(rejectedID, rejectedLabel)
	a.Comment = mapStringPtr(comment)
	return &a, nil
}

func splitReference(ref *domain.Reference) (*string, *string) {
	if ref == nil {
		return nil, nil
	}
	id, label := ref.ID, ref.Label
	return &id, &label
}

func joinReference(id, label sql.NullString) *domain.Reference {
	if !id.Valid {
		return nil
	}
	return &domain.Reference{ID: id.String, Label: label.String}
}

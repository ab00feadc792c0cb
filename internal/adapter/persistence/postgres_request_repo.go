package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

const (
	pqUniqueViolation = "23505"

	// oneActiveIndex is the unique index on lead_id over the active set
	oneActiveIndex = "lead_status_requests_one_active"
)

const requestColumns = `id, lead_id, requested_by, requested_status, approval_status, approver_role,
	approved_by, rejected_by, comment, created_at, updated_at`

// PostgresRequestRepository implements LeadStatusRequestRepository using PostgreSQL.
// Concurrency guarantees come from the database, so they hold across processes.
type PostgresRequestRepository struct {
	db *sql.DB
}

// NewPostgresRequestRepository creates a new PostgreSQL request repository
func NewPostgresRequestRepository(db *sql.DB) ports.LeadStatusRequestRepository {
	return &PostgresRequestRepository{db: db}
}

// Create saves a new request. A lead holds at most one active request,
// whether it is still pending or resolved and awaiting archival.
func (r *PostgresRequestRepository) Create(ctx context.Context, req *domain.LeadStatusRequest) error {
	query := `
		INSERT INTO lead_status_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.LeadID,
		req.RequestedBy,
		string(req.RequestedStatus),
		string(req.ApprovalStatus),
		string(req.ApproverRole),
		req.ApprovedBy,
		req.RejectedBy,
		req.Comment,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == oneActiveIndex {
			return r.activeConflict(ctx, req.LeadID)
		}
		return fmt.Errorf("failed to create lead status request: %w", err)
	}

	return nil
}

// activeConflict tells a pending duplicate from a resolution still
// awaiting archival
func (r *PostgresRequestRepository) activeConflict(ctx context.Context, leadID string) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT approval_status FROM lead_status_requests WHERE lead_id = $1`, leadID).Scan(&status)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check active lead status request: %w", err)
	}
	if domain.ApprovalStatus(status) == domain.ApprovalStatusPending {
		return domain.ErrDuplicatePendingRequest
	}
	return domain.ErrResolutionInProgress
}

// FindByID retrieves an active request by its ID
func (r *PostgresRequestRepository) FindByID(ctx context.Context, id string) (*domain.LeadStatusRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM lead_status_requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to find lead status request: %w", err)
	}
	return req, nil
}

// CompareAndResolve persists the resolution with a conditional update on PENDING
func (r *PostgresRequestRepository) CompareAndResolve(ctx context.Context, req *domain.LeadStatusRequest) error {
	if !req.ApprovalStatus.IsTerminal() {
		return domain.ErrNotResolved
	}

	query := `
		UPDATE lead_status_requests
		SET approval_status = $2, approved_by = $3, rejected_by = $4, comment = $5, updated_at = $6
		WHERE id = $1 AND approval_status = 'PENDING'
	`

	result, err := r.db.ExecContext(ctx, query,
		req.ID,
		string(req.ApprovalStatus),
		req.ApprovedBy,
		req.RejectedBy,
		req.Comment,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve lead status request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM lead_status_requests WHERE id = $1)`, req.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check lead status request: %w", err)
	}
	if !exists {
		return domain.ErrRequestNotFound
	}
	return domain.ErrAlreadyResolved
}

// Delete removes a request from the active set
func (r *PostgresRequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM lead_status_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead status request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// List retrieves active requests based on filter criteria, oldest first
func (r *PostgresRequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.LeadStatusRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM lead_status_requests WHERE 1=1`

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.LeadID != nil {
		conditions = append(conditions, fmt.Sprintf("lead_id = $%d", argIndex))
		args = append(args, *filter.LeadID)
		argIndex++
	}

	if filter.RequestedBy != nil {
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", argIndex))
		args = append(args, *filter.RequestedBy)
		argIndex++
	}

	if filter.ApprovalStatus != nil {
		conditions = append(conditions, fmt.Sprintf("approval_status = $%d", argIndex))
		args = append(args, string(*filter.ApprovalStatus))
		argIndex++
	}

	if filter.RequestedStatus != nil {
		conditions = append(conditions, fmt.Sprintf("requested_status = $%d", argIndex))
		args = append(args, string(*filter.RequestedStatus))
		argIndex++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at ASC, id ASC"

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
		return nil, fmt.Errorf("failed to query lead status requests: %w", err)
	}
	defer rows.Close()

	var requests []*domain.LeadStatusRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead status request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lead status requests: %w", err)
	}

	return requests, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*domain.LeadStatusRequest, error) {
	var req domain.LeadStatusRequest
	var approvedBy, rejectedBy, comment sql.NullString

	err := row.Scan(
		&req.ID,
		&req.LeadID,
		&req.RequestedBy,
		&req.RequestedStatus,
		&req.ApprovalStatus,
		&req.ApproverRole,
		&approvedBy,
		&rejectedBy,
		&comment,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.ApprovedBy = mapStringPtr(approvedBy)
	req.RejectedBy = mapStringPtr(rejectedBy)
	req.Comment = mapStringPtr(comment)
	return &req, nil
}

func mapStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

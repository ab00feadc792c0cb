package ports

import (
	"context"

	"github.com/fixora/leadflow/internal/domain"
)

// LeadStatusRequestRepository defines persistence for the active request set
type LeadStatusRequestRepository interface {
	// Create saves a new pending request. The duplicate check and the insert
	// are atomic: a lead holds at most one active request. A second pending
	// request fails with domain.ErrDuplicatePendingRequest, one submitted
	// while a resolved request awaits archival with
	// domain.ErrResolutionInProgress.
	Create(ctx context.Context, req *domain.LeadStatusRequest) error

	// FindByID retrieves an active request by its ID
	FindByID(ctx context.Context, id string) (*domain.LeadStatusRequest, error)

	// CompareAndResolve persists a resolved request only if the stored copy
	// is still PENDING, otherwise it fails with domain.ErrAlreadyResolved
	CompareAndResolve(ctx context.Context, req *domain.LeadStatusRequest) error

	// Delete removes a request from the active set
	Delete(ctx context.Context, id string) error

	// List retrieves active requests based on filter criteria
	List(ctx context.Context, filter domain.RequestFilter) ([]*domain.LeadStatusRequest, error)
}

// ArchiveRepository defines persistence for resolved requests
type ArchiveRepository interface {
	// Create appends an archived record. A second record for the same source
	// request fails with domain.ErrAlreadyArchived.
	Create(ctx context.Context, archived *domain.ArchivedLeadStatusRequest) error

	// FindBySourceID retrieves the archived record of a source request
	FindBySourceID(ctx context.Context, sourceRequestID string) (*domain.ArchivedLeadStatusRequest, error)

	// List retrieves archived records based on filter criteria
	List(ctx context.Context, filter domain.ArchiveFilter) ([]*domain.ArchivedLeadStatusRequest, error)
}

// ModificationLogRepository defines persistence for the change log
type ModificationLogRepository interface {
	// Append stores a new entry and assigns its ID. An entry carrying a
	// source request id that is already logged fails with
	// domain.ErrAlreadyLogged.
	Append(ctx context.Context, entry *domain.ModificationLogEntry) error

	// ListByEntity retrieves all entries of an entity, oldest first
	ListByEntity(ctx context.Context, entityID string) ([]*domain.ModificationLogEntry, error)
}

// IdentityResolver looks up authenticated actors and their display labels
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, id string) (domain.Identity, error)
}

// LeadDirectory gives the workflow access to the leads it changes
type LeadDirectory interface {
	// FindLead retrieves a lead by its ID
	FindLead(ctx context.Context, id string) (*domain.Lead, error)

	// UpdateLeadStatus sets the status of a lead and returns the previous one
	UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) (domain.LeadStatus, error)
}

package usecase

import (
	"context"
	"time"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// Archive stores resolved requests as immutable, reference-resolved records
type Archive struct {
	repo ports.ArchiveRepository
	now  func() time.Time
}

// NewArchive creates a new archive
func NewArchive(repo ports.ArchiveRepository) *Archive {
	return &Archive{repo: repo, now: utcNow}
}

// Store snapshots a resolved request with the labels resolved for it.
// PENDING input fails with ErrNotResolved, a second store of the same source
// request with ErrAlreadyArchived.
func (a *Archive) Store(ctx context.Context, resolved *domain.LeadStatusRequest, labels domain.ReferenceLabels) (*domain.ArchivedLeadStatusRequest, error) {
	archived, err := domain.NewArchivedLeadStatusRequest(resolved, labels, a.now())
	if err != nil {
		return nil, err
	}

	if err := a.repo.Create(ctx, archived); err != nil {
		return nil, wrapInfra("failed to archive request", err)
	}
	return archived, nil
}

// Get retrieves the archived record of a source request
func (a *Archive) Get(ctx context.Context, sourceRequestID string) (*domain.ArchivedLeadStatusRequest, error) {
	archived, err := a.repo.FindBySourceID(ctx, sourceRequestID)
	if err != nil {
		return nil, wrapInfra("failed to get archived request", err)
	}
	return archived, nil
}

// List retrieves archived records
func (a *Archive) List(ctx context.Context, filter domain.ArchiveFilter) ([]*domain.ArchivedLeadStatusRequest, error) {
	records, err := a.repo.List(ctx, filter)
	if err != nil {
		return nil, wrapInfra("failed to list archived requests", err)
	}
	return records, nil
}

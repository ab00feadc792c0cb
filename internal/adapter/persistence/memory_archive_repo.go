package persistence

import (
	"context"
	"sync"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// MemoryArchiveRepository implements ArchiveRepository in process memory
type MemoryArchiveRepository struct {
	mu       sync.RWMutex
	records  []*domain.ArchivedLeadStatusRequest
	bySource map[string]int
}

// NewMemoryArchiveRepository creates an empty in-memory archive
func NewMemoryArchiveRepository() *MemoryArchiveRepository {
	return &MemoryArchiveRepository{bySource: make(map[string]int)}
}

var _ ports.ArchiveRepository = (*MemoryArchiveRepository)(nil)

// Create appends an archived record, at most once per source request
func (r *MemoryArchiveRepository) Create(ctx context.Context, archived *domain.ArchivedLeadStatusRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySource[archived.SourceRequestID]; exists {
		return domain.ErrAlreadyArchived
	}
	r.bySource[archived.SourceRequestID] = len(r.records)
	r.records = append(r.records, archived.Clone())
	return nil
}

// FindBySourceID retrieves the archived record of a source request
func (r *MemoryArchiveRepository) FindBySourceID(ctx context.Context, sourceRequestID string) (*domain.ArchivedLeadStatusRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.bySource[sourceRequestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return r.records[idx].Clone(), nil
}

// List retrieves archived records in archival order
func (r *MemoryArchiveRepository) List(ctx context.Context, filter domain.ArchiveFilter) ([]*domain.ArchivedLeadStatusRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.ArchivedLeadStatusRequest
	for _, rec := range r.records {
		if filter.Matches(rec) {
			result = append(result, rec.Clone())
		}
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}

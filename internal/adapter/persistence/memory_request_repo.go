package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// MemoryRequestRepository implements LeadStatusRequestRepository in process memory.
// Creates serialize per lead and resolutions per request.
type MemoryRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]*domain.LeadStatusRequest
	active   map[string]string // lead id -> active request id

	leadLocks    *keyedMutex
	requestLocks *keyedMutex
}

// NewMemoryRequestRepository creates an empty in-memory request repository
func NewMemoryRequestRepository() *MemoryRequestRepository {
	return &MemoryRequestRepository{
		requests:     make(map[string]*domain.LeadStatusRequest),
		active:       make(map[string]string),
		leadLocks:    newKeyedMutex(),
		requestLocks: newKeyedMutex(),
	}
}

var _ ports.LeadStatusRequestRepository = (*MemoryRequestRepository)(nil)

// Create saves a new request. A lead holds at most one active request,
// whether it is still pending or resolved and awaiting archival.
func (r *MemoryRequestRepository) Create(ctx context.Context, req *domain.LeadStatusRequest) error {
	unlock := r.leadLocks.Lock(req.LeadID)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[req.ID]; exists {
		return domain.ErrInvalidRequest
	}
	if existingID, exists := r.active[req.LeadID]; exists {
		if r.requests[existingID].IsPending() {
			return domain.ErrDuplicatePendingRequest
		}
		return domain.ErrResolutionInProgress
	}
	r.active[req.LeadID] = req.ID
	r.requests[req.ID] = req.Clone()
	return nil
}

// FindByID retrieves an active request by its ID
func (r *MemoryRequestRepository) FindByID(ctx context.Context, id string) (*domain.LeadStatusRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return req.Clone(), nil
}

// CompareAndResolve stores the resolved request if the stored one is still pending
func (r *MemoryRequestRepository) CompareAndResolve(ctx context.Context, req *domain.LeadStatusRequest) error {
	if !req.ApprovalStatus.IsTerminal() {
		return domain.ErrNotResolved
	}

	unlock := r.requestLocks.Lock(req.ID)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.requests[req.ID]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if !current.IsPending() {
		return domain.ErrAlreadyResolved
	}

	r.requests[req.ID] = req.Clone()
	return nil
}

// Delete removes a request from the active set
func (r *MemoryRequestRepository) Delete(ctx context.Context, id string) error {
	unlock := r.requestLocks.Lock(id)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if r.active[req.LeadID] == id {
		delete(r.active, req.LeadID)
	}
	delete(r.requests, id)
	return nil
}

// List retrieves active requests, oldest first
func (r *MemoryRequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.LeadStatusRequest, error) {
	r.mu.RLock()
	var result []*domain.LeadStatusRequest
	for _, req := range r.requests {
		if filter.Matches(req) {
			result = append(result, req.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// MemoryModificationLogRepository implements ModificationLogRepository in process memory
type MemoryModificationLogRepository struct {
	mu       sync.RWMutex
	byEntity map[string][]*domain.ModificationLogEntry
	sources  map[string]struct{}
}

// NewMemoryModificationLogRepository creates an empty in-memory change log
func NewMemoryModificationLogRepository() *MemoryModificationLogRepository {
	return &MemoryModificationLogRepository{
		byEntity: make(map[string][]*domain.ModificationLogEntry),
		sources:  make(map[string]struct{}),
	}
}

var _ ports.ModificationLogRepository = (*MemoryModificationLogRepository)(nil)

// Append stores a new entry and assigns its ID. A second entry for the same
// source request fails with ErrAlreadyLogged.
func (r *MemoryModificationLogRepository) Append(ctx context.Context, entry *domain.ModificationLogEntry) error {
	if len(entry.ModifiedFields) == 0 {
		return domain.ErrEmptyChangeSet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.SourceRequestID != nil {
		if _, exists := r.sources[*entry.SourceRequestID]; exists {
			return domain.ErrAlreadyLogged
		}
		r.sources[*entry.SourceRequestID] = struct{}{}
	}

	entry.ID = uuid.NewString()
	r.byEntity[entry.EntityID] = append(r.byEntity[entry.EntityID], entry.Clone())
	return nil
}

// ListByEntity retrieves all entries of an entity, oldest first
func (r *MemoryModificationLogRepository) ListByEntity(ctx context.Context, entityID string) ([]*domain.ModificationLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.byEntity[entityID]
	result := make([]*domain.ModificationLogEntry, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.Clone())
	}
	return result, nil
}

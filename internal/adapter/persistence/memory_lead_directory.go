package persistence

import (
	"context"
	"sync"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// MemoryLeadDirectory keeps leads in process memory
type MemoryLeadDirectory struct {
	mu    sync.RWMutex
	leads map[string]domain.Lead
}

// NewMemoryLeadDirectory creates a directory seeded with the given leads
func NewMemoryLeadDirectory(leads ...domain.Lead) *MemoryLeadDirectory {
	d := &MemoryLeadDirectory{leads: make(map[string]domain.Lead, len(leads))}
	for _, l := range leads {
		d.leads[l.ID] = l
	}
	return d
}

var _ ports.LeadDirectory = (*MemoryLeadDirectory)(nil)

// Put adds or replaces a lead
func (d *MemoryLeadDirectory) Put(lead domain.Lead) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leads[lead.ID] = lead
}

// FindLead retrieves a lead by its ID
func (d *MemoryLeadDirectory) FindLead(ctx context.Context, id string) (*domain.Lead, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	lead, ok := d.leads[id]
	if !ok {
		return nil, domain.ErrLeadNotFound
	}
	return &lead, nil
}

// UpdateLeadStatus sets the status of a lead and returns the previous one
func (d *MemoryLeadDirectory) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) (domain.LeadStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lead, ok := d.leads[id]
	if !ok {
		return "", domain.ErrLeadNotFound
	}
	previous := lead.Status
	lead.Status = status
	d.leads[id] = lead
	return previous, nil
}

package identity

import (
	"context"
	"sync"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// StaticResolver resolves identities from an in-memory table
type StaticResolver struct {
	mu         sync.RWMutex
	identities map[string]domain.Identity
}

// NewStaticResolver creates a resolver seeded with the given identities
func NewStaticResolver(identities ...domain.Identity) *StaticResolver {
	r := &StaticResolver{identities: make(map[string]domain.Identity, len(identities))}
	for _, id := range identities {
		r.identities[id.ID] = id
	}
	return r
}

var _ ports.IdentityResolver = (*StaticResolver)(nil)

// Put adds or replaces an identity, e.g. after a rename
func (r *StaticResolver) Put(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[identity.ID] = identity
}

// ResolveIdentity returns the identity registered under id
func (r *StaticResolver) ResolveIdentity(ctx context.Context, id string) (domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[id]
	if !ok {
		return domain.Identity{}, domain.ErrIdentityNotFound
	}
	return identity, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fixora/leadflow/internal/adapter/identity"
	"github.com/fixora/leadflow/internal/adapter/persistence"
	"github.com/fixora/leadflow/internal/domain"
)

// seedData is the content of a memory driver seed file
type seedData struct {
	Leads      []domain.Lead     `json:"leads"`
	Identities []domain.Identity `json:"identities"`
}

// loadSeed reads a seed file and fills the in-memory lead directory and
// identity store. Entries with an unknown status or role are rejected.
func loadSeed(path string, leads *persistence.MemoryLeadDirectory, identities *identity.StaticResolver) (int, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedData
	if err := json.Unmarshal(raw, &seed); err != nil {
		return 0, 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for _, lead := range seed.Leads {
		if lead.ID == "" || !lead.Status.IsValid() {
			return 0, 0, fmt.Errorf("invalid seed lead %q: status %q", lead.ID, lead.Status)
		}
	}
	for _, ident := range seed.Identities {
		if ident.ID == "" || !ident.Role.IsValid() {
			return 0, 0, fmt.Errorf("invalid seed identity %q: role %q", ident.ID, ident.Role)
		}
	}

	for _, lead := range seed.Leads {
		leads.Put(lead)
	}
	for _, ident := range seed.Identities {
		identities.Put(ident)
	}
	return len(seed.Leads), len(seed.Identities), nil
}

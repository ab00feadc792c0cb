package domain

import "strings"

// Role represents the authority level of an actor
type Role string

const (
	RoleAgent    Role = "AGENT"
	RoleTeamLead Role = "TEAM_LEAD"
	RoleManager  Role = "MANAGER"
	RoleCEO      Role = "CEO"
)

// roleRank orders roles by authority. Unknown roles rank 0.
var roleRank = map[Role]int{
	RoleAgent:    1,
	RoleTeamLead: 2,
	RoleManager:  3,
	RoleCEO:      4,
}

// Roles returns all known roles from least to most authoritative
func Roles() []Role {
	return []Role{RoleAgent, RoleTeamLead, RoleManager, RoleCEO}
}

// ParseRole converts a raw string into a Role
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", NewDomainError("unknown role: " + s)
	}
	return r, nil
}

// IsValid reports whether the role is one of the known roles
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the authority rank of the role
func (r Role) Rank() int {
	return roleRank[r]
}

// AtLeast reports whether r is at least as authoritative as other.
// An unknown role never satisfies a requirement.
func (r Role) AtLeast(other Role) bool {
	if !r.IsValid() {
		return false
	}
	return r.Rank() >= other.Rank()
}

// Identity is an already-authenticated actor as supplied by the identity provider
type Identity struct {
	ID           string `json:"id"`
	DisplayLabel string `json:"display_label"`
	Role         Role   `json:"role"`
}

// Actor is the acting user of an operation
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Actor returns the acting view of an identity
func (i Identity) Actor() Actor {
	return Actor{ID: i.ID, Role: i.Role}
}

// Reference returns the identity as a denormalized reference
func (i Identity) Reference() Reference {
	return Reference{ID: i.ID, Label: i.DisplayLabel}
}

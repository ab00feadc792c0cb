package domain

// ApproverPolicy maps a requested status to the minimum role allowed to
// resolve the request
type ApproverPolicy func(requested LeadStatus) Role

// DefaultApproverPolicy escalates with the severity of the requested status
func DefaultApproverPolicy(requested LeadStatus) Role {
	if requested == LeadStatusRed {
		return RoleManager
	}
	return RoleTeamLead
}

// FixedApproverPolicy requires the same role for every request
func FixedApproverPolicy(role Role) ApproverPolicy {
	return func(LeadStatus) Role {
		return role
	}
}

// Lead is the subset of a lead the workflow needs
type Lead struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Status LeadStatus `json:"status"`
}

// Reference returns the lead as a denormalized reference
func (l Lead) Reference() Reference {
	return Reference{ID: l.ID, Label: l.Name}
}

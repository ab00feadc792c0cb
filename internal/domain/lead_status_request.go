package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadStatus represents the status color of a lead
type LeadStatus string

const (
	LeadStatusGreen  LeadStatus = "GREEN"
	LeadStatusYellow LeadStatus = "YELLOW"
	LeadStatusWhite  LeadStatus = "WHITE"
	LeadStatusRed    LeadStatus = "RED"
)

// IsValid reports whether the status is one of the known lead statuses
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusGreen, LeadStatusYellow, LeadStatusWhite, LeadStatusRed:
		return true
	}
	return false
}

// ApprovalStatus represents the lifecycle state of a status request
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is possible
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// Decision is the outcome chosen by a resolver
type Decision string

const (
	DecisionApprove Decision = "APPROVED"
	DecisionReject  Decision = "REJECTED"
)

// ParseDecision converts a raw string into a Decision
func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", ErrInvalidDecision
	}
	return d, nil
}

// IsValid reports whether the decision is APPROVED or REJECTED
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// ApprovalStatus returns the terminal status the decision leads to
func (d Decision) ApprovalStatus() ApprovalStatus {
	if d == DecisionApprove {
		return ApprovalStatusApproved
	}
	return ApprovalStatusRejected
}

// LeadStatusRequest is an agent's request to change the status of a lead.
// It lives in the active set until it is resolved and archived.
type LeadStatusRequest struct {
	ID              string         `json:"id"`
	LeadID          string         `json:"lead_id"`
	RequestedBy     string         `json:"requested_by"`
	RequestedStatus LeadStatus     `json:"requested_status"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	ApproverRole    Role           `json:"approver_role"`
	ApprovedBy      *string        `json:"approved_by,omitempty"`
	RejectedBy      *string        `json:"rejected_by,omitempty"`
	Comment         *string        `json:"comment,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewLeadStatusRequest creates a new pending request
func NewLeadStatusRequest(leadID, requestedBy string, requestedStatus LeadStatus, approverRole Role, now time.Time) (*LeadStatusRequest, error) {
	if strings.TrimSpace(leadID) == "" || strings.TrimSpace(requestedBy) == "" {
		return nil, ErrInvalidRequest
	}
	if !requestedStatus.IsValid() || !approverRole.IsValid() {
		return nil, ErrInvalidRequest
	}

	return &LeadStatusRequest{
		ID:              uuid.NewString(),
		LeadID:          leadID,
		RequestedBy:     requestedBy,
		RequestedStatus: requestedStatus,
		ApprovalStatus:  ApprovalStatusPending,
		ApproverRole:    approverRole,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsPending reports whether the request still awaits a decision
func (r *LeadStatusRequest) IsPending() bool {
	return r.ApprovalStatus == ApprovalStatusPending
}

// CanBeResolvedBy checks the PENDING precondition and the actor's authority
func (r *LeadStatusRequest) CanBeResolvedBy(actor Actor) error {
	if !r.IsPending() {
		return ErrAlreadyResolved
	}
	if !actor.Role.AtLeast(r.ApproverRole) {
		return ErrInsufficientRole
	}
	return nil
}

// Resolve applies a decision. It is the only mutation a request goes through.
func (r *LeadStatusRequest) Resolve(actor Actor, decision Decision, comment *string, now time.Time) error {
	if !decision.IsValid() {
		return ErrInvalidDecision
	}
	if strings.TrimSpace(actor.ID) == "" {
		return ErrInvalidRequest
	}
	if err := r.CanBeResolvedBy(actor); err != nil {
		return err
	}

	resolver := actor.ID
	switch decision {
	case DecisionApprove:
		r.ApprovedBy = &resolver
	case DecisionReject:
		r.RejectedBy = &resolver
	}
	r.ApprovalStatus = decision.ApprovalStatus()
	if comment != nil {
		c := *comment
		r.Comment = &c
	}
	if now.After(r.UpdatedAt) {
		r.UpdatedAt = now
	}
	return nil
}

// ResolvedBy returns the id of the actor that resolved the request, if any
func (r *LeadStatusRequest) ResolvedBy() (string, bool) {
	if r.ApprovedBy != nil {
		return *r.ApprovedBy, true
	}
	if r.RejectedBy != nil {
		return *r.RejectedBy, true
	}
	return "", false
}

// Clone returns a deep copy so stores never share mutable state with callers
func (r *LeadStatusRequest) Clone() *LeadStatusRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.ApprovedBy = cloneString(r.ApprovedBy)
	c.RejectedBy = cloneString(r.RejectedBy)
	c.Comment = cloneString(r.Comment)
	return &c
}

// RequestFilter represents filters for listing active requests
type RequestFilter struct {
	LeadID          *string         `json:"lead_id,omitempty"`
	RequestedBy     *string         `json:"requested_by,omitempty"`
	ApprovalStatus  *ApprovalStatus `json:"approval_status,omitempty"`
	RequestedStatus *LeadStatus     `json:"requested_status,omitempty"`
	Limit           int             `json:"limit"`
	Offset          int             `json:"offset"`
}

// Matches reports whether the request satisfies every set filter field
func (f RequestFilter) Matches(r *LeadStatusRequest) bool {
	if f.LeadID != nil && r.LeadID != *f.LeadID {
		return false
	}
	if f.RequestedBy != nil && r.RequestedBy != *f.RequestedBy {
		return false
	}
	if f.ApprovalStatus != nil && r.ApprovalStatus != *f.ApprovalStatus {
		return false
	}
	if f.RequestedStatus != nil && r.RequestedStatus != *f.RequestedStatus {
		return false
	}
	return true
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reference is an id paired with the human-readable label it had when captured
type Reference struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ReferenceLabels carries the labels resolved for every identity field of a
// request at archival time
type ReferenceLabels struct {
	Lead        Reference
	RequestedBy Reference
	ResolvedBy  Reference
}

// ArchivedLeadStatusRequest is the immutable, self-contained record of a
// resolved request
type ArchivedLeadStatusRequest struct {
	ID              string         `json:"id,omitempty"`
	SourceRequestID string         `json:"source_request_id"`
	Lead            Reference      `json:"lead"`
	RequestedBy     Reference      `json:"requested_by"`
	ApprovedBy      *Reference     `json:"approved_by,omitempty"`
	RejectedBy      *Reference     `json:"rejected_by,omitempty"`
	RequestedStatus LeadStatus     `json:"requested_status"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	ApproverRole    Role           `json:"approver_role"`
	Comment         *string        `json:"comment,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ArchivedAt      time.Time      `json:"archived_at"`
}

// NewArchivedLeadStatusRequest snapshots a resolved request together with the
// labels resolved for it. PENDING input is rejected with ErrNotResolved.
func NewArchivedLeadStatusRequest(req *LeadStatusRequest, labels ReferenceLabels, now time.Time) (*ArchivedLeadStatusRequest, error) {
	if req == nil || !req.ApprovalStatus.IsTerminal() {
		return nil, ErrNotResolved
	}
	resolverID, ok := req.ResolvedBy()
	if !ok {
		return nil, ErrNotResolved
	}

	archived := &ArchivedLeadStatusRequest{
		ID:              uuid.NewString(),
		SourceRequestID: req.ID,
		Lead:            withID(labels.Lead, req.LeadID),
		RequestedBy:     withID(labels.RequestedBy, req.RequestedBy),
		RequestedStatus: req.RequestedStatus,
		ApprovalStatus:  req.ApprovalStatus,
		ApproverRole:    req.ApproverRole,
		Comment:         cloneString(req.Comment),
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
		ArchivedAt:      now,
	}

	resolver := withID(labels.ResolvedBy, resolverID)
	if req.ApprovalStatus == ApprovalStatusApproved {
		archived.ApprovedBy = &resolver
	} else {
		archived.RejectedBy = &resolver
	}
	return archived, nil
}

// Clone returns a deep copy of the archived record
func (a *ArchivedLeadStatusRequest) Clone() *ArchivedLeadStatusRequest {
	if a == nil {
		return nil
	}
	c := *a
	if a.ApprovedBy != nil {
		ref := *a.ApprovedBy
		c.ApprovedBy = &ref
	}
	if a.RejectedBy != nil {
		ref := *a.RejectedBy
		c.RejectedBy = &ref
	}
	c.Comment = cloneString(a.Comment)
	return &c
}

// ArchiveFilter represents filters for listing archived requests
type ArchiveFilter struct {
	LeadID         *string         `json:"lead_id,omitempty"`
	ApprovalStatus *ApprovalStatus `json:"approval_status,omitempty"`
	ArchivedFrom   *time.Time      `json:"archived_from,omitempty"`
	ArchivedTo     *time.Time      `json:"archived_to,omitempty"`
	Limit          int             `json:"limit"`
	Offset         int             `json:"offset"`
}

// Matches reports whether the archived record satisfies every set filter field
func (f ArchiveFilter) Matches(a *ArchivedLeadStatusRequest) bool {
	if f.LeadID != nil && a.Lead.ID != *f.LeadID {
		return false
	}
	if f.ApprovalStatus != nil && a.ApprovalStatus != *f.ApprovalStatus {
		return false
	}
	if f.ArchivedFrom != nil && a.ArchivedAt.Before(*f.ArchivedFrom) {
		return false
	}
	if f.ArchivedTo != nil && a.ArchivedAt.After(*f.ArchivedTo) {
		return false
	}
	return true
}

// withID keeps the reference's label but pins the id to the request's own
// value. An empty label falls back to the id.
func withID(ref Reference, id string) Reference {
	ref.ID = id
	if ref.Label == "" {
		ref.Label = id
	}
	return ref
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArchivedLeadStatusRequest_Approved(t *testing.T) {
	req := newPendingRequest(t, LeadStatusRed)
	comment := "confirmed"
	require.NoError(t, req.Resolve(Actor{ID: "m1", Role: RoleManager}, DecisionApprove, &comment, time.Now()))

	labels := ReferenceLabels{
		Lead:        Reference{ID: "lead-1", Label: "Acme Corp"},
		RequestedBy: Reference{ID: "agent-1", Label: "Alice"},
		ResolvedBy:  Reference{ID: "m1", Label: "Maria"},
	}
	now := time.Now()

	archived, err := NewArchivedLeadStatusRequest(req, labels, now)
	require.NoError(t, err)

	assert.NotEmpty(t, archived.ID)
	assert.Equal(t, req.ID, archived.SourceRequestID)
	assert.Equal(t, labels.Lead, archived.Lead)
	assert.Equal(t, labels.RequestedBy, archived.RequestedBy)
	require.NotNil(t, archived.ApprovedBy)
	assert.Equal(t, labels.ResolvedBy, *archived.ApprovedBy)
	assert.Nil(t, archived.RejectedBy)
	assert.Equal(t, ApprovalStatusApproved, archived.ApprovalStatus)
	assert.Equal(t, RoleManager, archived.ApproverRole)
	assert.Equal(t, "confirmed", *archived.Comment)
	assert.Equal(t, now, archived.ArchivedAt)

	// the snapshot does not follow later edits of the source
	*req.Comment = "edited"
	assert.Equal(t, "confirmed", *archived.Comment)
}

func TestNewArchivedLeadStatusRequest_RejectedWithMissingLabels(t *testing.T) {
	req := newPendingRequest(t, LeadStatusGreen)
	require.NoError(t, req.Resolve(Actor{ID: "tl", Role: RoleTeamLead}, DecisionReject, nil, time.Now()))

	archived, err := NewArchivedLeadStatusRequest(req, ReferenceLabels{}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, Reference{ID: "lead-1", Label: "lead-1"}, archived.Lead)
	assert.Nil(t, archived.ApprovedBy)
	require.NotNil(t, archived.RejectedBy)
	assert.Equal(t, "tl", archived.RejectedBy.ID)
}

func TestNewArchivedLeadStatusRequest_Pending(t *testing.T) {
	req := newPendingRequest(t, LeadStatusGreen)

	_, err := NewArchivedLeadStatusRequest(req, ReferenceLabels{}, time.Now())
	assert.Equal(t, ErrNotResolved, err)

	_, err = NewArchivedLeadStatusRequest(nil, ReferenceLabels{}, time.Now())
	assert.Equal(t, ErrNotResolved, err)
}

func TestArchiveFilter_Matches(t *testing.T) {
	req := newPendingRequest(t, LeadStatusGreen)
	require.NoError(t, req.Resolve(Actor{ID: "tl", Role: RoleTeamLead}, DecisionApprove, nil, time.Now()))
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	archived, err := NewArchivedLeadStatusRequest(req, ReferenceLabels{}, at)
	require.NoError(t, err)

	approved := ApprovalStatusApproved
	rejected := ApprovalStatusRejected
	before := at.Add(-time.Hour)
	after := at.Add(time.Hour)

	assert.True(t, ArchiveFilter{}.Matches(archived))
	assert.True(t, ArchiveFilter{ApprovalStatus: &approved, ArchivedFrom: &before, ArchivedTo: &after}.Matches(archived))
	assert.False(t, ArchiveFilter{ApprovalStatus: &rejected}.Matches(archived))
	assert.False(t, ArchiveFilter{ArchivedFrom: &after}.Matches(archived))
}

func TestNewModificationLogEntry(t *testing.T) {
	agent := "agent-1"
	diffs := []FieldChange{{FieldName: FieldStatus, OldValue: "GREEN", NewValue: "RED"}}

	entry, err := NewModificationLogEntry("lead-1", &agent, diffs, time.Now())
	require.NoError(t, err)
	assert.Empty(t, entry.ID)
	assert.Equal(t, "lead-1", entry.EntityID)
	assert.Equal(t, diffs, entry.ModifiedFields)

	diffs[0].NewValue = "WHITE"
	assert.Equal(t, "RED", entry.ModifiedFields[0].NewValue)

	_, err = NewModificationLogEntry("lead-1", nil, nil, time.Now())
	assert.Equal(t, ErrEmptyChangeSet, err)

	_, err = NewModificationLogEntry("lead-1", nil, []FieldChange{{FieldName: ""}}, time.Now())
	assert.Equal(t, ErrInvalidRequest, err)
}

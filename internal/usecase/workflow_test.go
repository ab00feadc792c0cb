package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixora/leadflow/internal/adapter/identity"
	"github.com/fixora/leadflow/internal/adapter/persistence"
	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event ports.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// flakyArchiveRepository fails the first n archive writes
type flakyArchiveRepository struct {
	*persistence.MemoryArchiveRepository
	failures int32
}

func (r *flakyArchiveRepository) Create(ctx context.Context, archived *domain.ArchivedLeadStatusRequest) error {
	if atomic.AddInt32(&r.failures, -1) >= 0 {
		return errors.New("archive storage unavailable")
	}
	return r.MemoryArchiveRepository.Create(ctx, archived)
}

// flakyChangeLogRepository fails the first n appends
type flakyChangeLogRepository struct {
	*persistence.MemoryModificationLogRepository
	failures int32
}

func (r *flakyChangeLogRepository) Append(ctx context.Context, entry *domain.ModificationLogEntry) error {
	if atomic.AddInt32(&r.failures, -1) >= 0 {
		return errors.New("change log storage unavailable")
	}
	return r.MemoryModificationLogRepository.Append(ctx, entry)
}

// flakyLeadDirectory fails the first n lead status updates
type flakyLeadDirectory struct {
	*persistence.MemoryLeadDirectory
	failures int32
}

func (d *flakyLeadDirectory) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) (domain.LeadStatus, error) {
	if atomic.AddInt32(&d.failures, -1) >= 0 {
		return "", errors.New("lead storage unavailable")
	}
	return d.MemoryLeadDirectory.UpdateLeadStatus(ctx, id, status)
}

type workflowFixture struct {
	uc         *WorkflowUseCase
	ledger     *RequestLedger
	archive    *flakyArchiveRepository
	changeLog  *flakyChangeLogRepository
	leads      *flakyLeadDirectory
	identities *identity.StaticResolver
}

func newWorkflowFixture(t *testing.T, config WorkflowConfig, events ports.EventPublisher) *workflowFixture {
	t.Helper()

	f := &workflowFixture{
		ledger:    NewRequestLedger(persistence.NewMemoryRequestRepository(), nil),
		archive:   &flakyArchiveRepository{MemoryArchiveRepository: persistence.NewMemoryArchiveRepository()},
		changeLog: &flakyChangeLogRepository{MemoryModificationLogRepository: persistence.NewMemoryModificationLogRepository()},
		leads: &flakyLeadDirectory{MemoryLeadDirectory: persistence.NewMemoryLeadDirectory(
			domain.Lead{ID: "L1", Name: "Acme Corp", Status: domain.LeadStatusGreen},
			domain.Lead{ID: "L2", Name: "Globex", Status: domain.LeadStatusWhite},
		)},
		identities: identity.NewStaticResolver(
			domain.Identity{ID: "A1", DisplayLabel: "Alice Agent", Role: domain.RoleAgent},
			domain.Identity{ID: "T1", DisplayLabel: "Tom Lead", Role: domain.RoleTeamLead},
			domain.Identity{ID: "M1", DisplayLabel: "Mia Manager", Role: domain.RoleManager},
			domain.Identity{ID: "M2", DisplayLabel: "Max Manager", Role: domain.RoleManager},
		),
	}
	f.uc = NewWorkflowUseCase(WorkflowDeps{
		Ledger:     f.ledger,
		Archive:    NewArchive(f.archive),
		ChangeLog:  NewChangeLogRecorder(f.changeLog),
		Leads:      f.leads,
		Identities: f.identities,
		Events:     events,
	}, config)
	return f
}

func (f *workflowFixture) submit(t *testing.T, leadID string, status domain.LeadStatus) *domain.LeadStatusRequest {
	t.Helper()
	req, err := f.uc.SubmitRequest(context.Background(), SubmitRequestInput{
		LeadID:          leadID,
		RequestedBy:     "A1",
		RequestedStatus: status,
	})
	require.NoError(t, err)
	return req
}

func actor(id string, role domain.Role) domain.Actor {
	return domain.Actor{ID: id, Role: role}
}

func TestSubmitRequest_ApproverRole(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)

	red := f.submit(t, "L1", domain.LeadStatusRed)
	assert.Equal(t, domain.RoleManager, red.ApproverRole)
	assert.Equal(t, domain.ApprovalStatusPending, red.ApprovalStatus)
	assert.Nil(t, red.ApprovedBy)
	assert.Nil(t, red.RejectedBy)

	yellow := f.submit(t, "L2", domain.LeadStatusYellow)
	assert.Equal(t, domain.RoleTeamLead, yellow.ApproverRole)
}

func TestSubmitRequest_Validation(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	_, err := f.uc.SubmitRequest(ctx, SubmitRequestInput{LeadID: "", RequestedBy: "A1", RequestedStatus: domain.LeadStatusRed})
	assert.Equal(t, domain.ErrInvalidRequest, err)

	_, err = f.uc.SubmitRequest(ctx, SubmitRequestInput{LeadID: "L1", RequestedBy: "A1", RequestedStatus: "PURPLE"})
	assert.Equal(t, domain.ErrInvalidRequest, err)
}

func TestSubmitRequest_DuplicatePending(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	f.submit(t, "L1", domain.LeadStatusRed)

	_, err := f.uc.SubmitRequest(context.Background(), SubmitRequestInput{
		LeadID:          "L1",
		RequestedBy:     "A1",
		RequestedStatus: domain.LeadStatusYellow,
	})
	assert.Equal(t, domain.ErrDuplicatePendingRequest, err)

	// other leads are unaffected
	f.submit(t, "L2", domain.LeadStatusYellow)
}

func TestSubmitRequest_ConcurrentOnSameLead(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	const workers = 32
	var (
		wg         sync.WaitGroup
		succeeded  int32
		duplicates int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.SubmitRequest(ctx, SubmitRequestInput{LeadID: "L1", RequestedBy: "A1", RequestedStatus: domain.LeadStatusRed})
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case errors.Is(err, domain.ErrDuplicatePendingRequest):
				atomic.AddInt32(&duplicates, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, int32(workers-1), duplicates)

	leadID := "L1"
	pending := domain.ApprovalStatusPending
	active, err := f.uc.ListActiveRequests(ctx, domain.RequestFilter{LeadID: &leadID, ApprovalStatus: &pending})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDecide_ApproveMovesRequestToArchive(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	req := f.submit(t, "L1", domain.LeadStatusRed)
	comment := "confirmed churn risk"

	archived, err := f.uc.Decide(ctx, DecideInput{
		RequestID: req.ID,
		Actor:     actor("M1", domain.RoleManager),
		Decision:  domain.DecisionApprove,
		Comment:   &comment,
	})
	require.NoError(t, err)

	assert.Equal(t, req.ID, archived.SourceRequestID)
	assert.Equal(t, domain.ApprovalStatusApproved, archived.ApprovalStatus)
	assert.Equal(t, domain.Reference{ID: "L1", Label: "Acme Corp"}, archived.Lead)
	assert.Equal(t, domain.Reference{ID: "A1", Label: "Alice Agent"}, archived.RequestedBy)
	require.NotNil(t, archived.ApprovedBy)
	assert.Equal(t, domain.Reference{ID: "M1", Label: "Mia Manager"}, *archived.ApprovedBy)
	assert.Nil(t, archived.RejectedBy)
	require.NotNil(t, archived.Comment)
	assert.Equal(t, comment, *archived.Comment)

	active, err := f.uc.ListActiveRequests(ctx, domain.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, active)

	records, err := f.uc.ListArchivedRequests(ctx, domain.ArchiveFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, req.ID, records[0].SourceRequestID)

	lead, err := f.leads.FindLead(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusRed, lead.Status)

	entries, err := f.uc.ListChangeLog(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].AgentID)
	assert.Equal(t, "M1", *entries[0].AgentID)
	assert.Equal(t, []domain.FieldChange{
		{FieldName: domain.FieldStatus, OldValue: "GREEN", NewValue: "RED"},
	}, entries[0].ModifiedFields)
}

func TestDecide_InsufficientRole(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	req := f.submit(t, "L1", domain.LeadStatusRed)

	_, err := f.uc.Decide(ctx, DecideInput{
		RequestID: req.ID,
		Actor:     actor("T1", domain.RoleTeamLead),
		Decision:  domain.DecisionApprove,
	})
	assert.Equal(t, domain.ErrInsufficientRole, err)

	stored, err := f.ledger.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusPending, stored.ApprovalStatus)
	assert.Nil(t, stored.ApprovedBy)

	records, err := f.uc.ListArchivedRequests(ctx, domain.ArchiveFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	lead, _ := f.leads.FindLead(ctx, "L1")
	assert.Equal(t, domain.LeadStatusGreen, lead.Status)
}

func TestDecide_HigherRoleMayResolve(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)

	req := f.submit(t, "L2", domain.LeadStatusYellow)

	archived, err := f.uc.Decide(context.Background(), DecideInput{
		RequestID: req.ID,
		Actor:     actor("C1", domain.RoleCEO),
		Decision:  domain.DecisionApprove,
	})
	require.NoError(t, err)
	// C1 is unknown to the resolver, so its label falls back to the id
	assert.Equal(t, domain.Reference{ID: "C1", Label: "C1"}, *archived.ApprovedBy)
}

func TestDecide_Reject(t *testing.T) {
	tests := []struct {
		name          string
		logRejections bool
		wantEntries   int
	}{
		{name: "without rejection logging", logRejections: false, wantEntries: 0},
		{name: "with rejection logging", logRejections: true, wantEntries: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkflowFixture(t, WorkflowConfig{LogRejections: tt.logRejections}, nil)
			ctx := context.Background()

			req := f.submit(t, "L1", domain.LeadStatusRed)
			archived, err := f.uc.Decide(ctx, DecideInput{
				RequestID: req.ID,
				Actor:     actor("M1", domain.RoleManager),
				Decision:  domain.DecisionReject,
			})
			require.NoError(t, err)

			assert.Equal(t, domain.ApprovalStatusRejected, archived.ApprovalStatus)
			assert.Nil(t, archived.ApprovedBy)
			require.NotNil(t, archived.RejectedBy)
			assert.Equal(t, "Mia Manager", archived.RejectedBy.Label)

			lead, _ := f.leads.FindLead(ctx, "L1")
			assert.Equal(t, domain.LeadStatusGreen, lead.Status)

			entries, err := f.uc.ListChangeLog(ctx, "L1")
			require.NoError(t, err)
			require.Len(t, entries, tt.wantEntries)
			if tt.wantEntries > 0 {
				assert.Equal(t, domain.FieldStatusRequest, entries[0].ModifiedFields[0].FieldName)
				assert.Equal(t, "REJECTED", entries[0].ModifiedFields[0].NewValue)
			}
		})
	}
}

func TestDecide_ConcurrentResolution(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	req := f.submit(t, "L1", domain.LeadStatusRed)

	inputs := []DecideInput{
		{RequestID: req.ID, Actor: actor("M1", domain.RoleManager), Decision: domain.DecisionApprove},
		{RequestID: req.ID, Actor: actor("M2", domain.RoleManager), Decision: domain.DecisionReject},
	}
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.Decide(ctx, inputs[i])
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrAlreadyResolved):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	records, err := f.uc.ListArchivedRequests(ctx, domain.ArchiveFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, (records[0].ApprovedBy == nil) != (records[0].RejectedBy == nil))
}

func TestDecide_AfterArchival(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	req := f.submit(t, "L1", domain.LeadStatusRed)
	_, err := f.uc.Decide(ctx, DecideInput{RequestID: req.ID, Actor: actor("M1", domain.RoleManager), Decision: domain.DecisionApprove})
	require.NoError(t, err)

	_, err = f.uc.Decide(ctx, DecideInput{RequestID: req.ID, Actor: actor("M2", domain.RoleManager), Decision: domain.DecisionReject})
	assert.Equal(t, domain.ErrAlreadyResolved, err)

	records, _ := f.uc.ListArchivedRequests(ctx, domain.ArchiveFilter{})
	assert.Len(t, records, 1)
}

func TestDecide_Errors(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()
	req := f.submit(t, "L1", domain.LeadStatusRed)

	tests := []struct {
		name string
		in   DecideInput
		want error
	}{
		{
			name: "unknown request",
			in:   DecideInput{RequestID: "missing", Actor: actor("M1", domain.RoleManager), Decision: domain.DecisionApprove},
			want: domain.ErrRequestNotFound,
		},
		{
			name: "empty request id",
			in:   DecideInput{Actor: actor("M1", domain.RoleManager), Decision: domain.DecisionApprove},
			want: domain.ErrInvalidRequest,
		},
		{
			name: "invalid decision",
			in:   DecideInput{RequestID: req.ID, Actor: actor("M1", domain.RoleManager), Decision: "MAYBE"},
			want: domain.ErrInvalidDecision,
		},
		{
			name: "unknown role",
			in:   DecideInput{RequestID: req.ID, Actor: actor("X1", "JANITOR"), Decision: domain.DecisionApprove},
			want: domain.ErrInsufficientRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Decide(ctx, tt.in)
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestDecide_NewRequestAfterResolution(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	req := f.submit(t, "L1", domain.LeadStatusRed)
	_, err := f.uc.Decide(ctx, DecideInput{RequestID: req.ID, Actor: actor("M1", domain.RoleManager), Decision: domain.DecisionReject})
	require.NoError(t, err)

	next := f.submit(t, "L1", domain.LeadStatusYellow)
	assert.NotEqual(t, req.ID, next.ID)
}

func TestSubmitRequest_BlockedWhileArchivalPending(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()
	f.archive.failures = 1

	red := f.submit(t, "L1", domain.LeadStatusRed)
	_, err := f.uc.Decide(ctx, DecideInput{RequestID: red.ID, Actor: actor("M1", domain.RoleManager), Decision: domain.DecisionApprove})
	require.NoError(t, err)

	// the approved request is not archived yet, so the lead takes no new request
	_, err = f.uc.SubmitRequest(ctx, SubmitRequestInput{LeadID: "L1", RequestedBy: "A1", RequestedStatus: domain.LeadStatusYellow})
	assert.Equal(t, domain.ErrResolutionInProgress, err)

	_, err = NewReconciler(f.uc, nil, 0, nil).Sweep(ctx)
	require.NoError(t, err)

	yellow := f.submit(t, "L1", domain.LeadStatusYellow)
	_, err = f.uc.Decide(ctx, DecideInput{RequestID: yellow.ID, Actor: actor("T1", domain.RoleTeamLead), Decision: domain.DecisionApprove})
	require.NoError(t, err)

	// another sweep must not replay the older decision
	_, err = NewReconciler(f.uc, nil, 0, nil).Sweep(ctx)
	require.NoError(t, err)

	lead, _ := f.leads.FindLead(ctx, "L1")
	assert.Equal(t, domain.LeadStatusYellow, lead.Status)

	entries, err := f.uc.ListChangeLog(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "GREEN", entries[0].ModifiedFields[0].OldValue)
	assert.Equal(t, "RED", entries[0].ModifiedFields[0].NewValue)
	assert.Equal(t, "RED", entries[1].ModifiedFields[0].OldValue)
	assert.Equal(t, "YELLOW", entries[1].ModifiedFields[0].NewValue)
}

func TestDecide_ArchivedRecordKeepsLabels(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	req := f.submit(t, "L1", domain.LeadStatusRed)
	_, err := f.uc.Decide(ctx, DecideInput{RequestID: req.ID, Actor: actor("M1", domain.RoleManager), Decision: domain.DecisionApprove})
	require.NoError(t, err)

	f.identities.Put(domain.Identity{ID: "M1", DisplayLabel: "Mia Renamed", Role: domain.RoleManager})
	f.leads.Put(domain.Lead{ID: "L1", Name: "Acme Holdings", Status: domain.LeadStatusRed})

	records, err := f.uc.ListArchivedRequests(ctx, domain.ArchiveFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Mia Manager", records[0].ApprovedBy.Label)
	assert.Equal(t, "Acme Corp", records[0].Lead.Label)
}

func TestDecide_DeferredArchival(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()
	f.archive.failures = 1

	req := f.submit(t, "L1", domain.LeadStatusRed)
	provisional, err := f.uc.Decide(ctx, DecideInput{RequestID: req.ID, Actor: actor("M1", domain.RoleManager), Decision: domain.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, provisional.ApprovalStatus)
	assert.Empty(t, provisional.ID)
	assert.Equal(t, req.ID, provisional.SourceRequestID)

	// the decision is committed but still in the active set
	stored, err := f.ledger.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, stored.ApprovalStatus)

	records, _ := f.uc.ListArchivedRequests(ctx, domain.ArchiveFilter{})
	assert.Empty(t, records)

	// a second decision cannot overturn it
	_, err = f.uc.Decide(ctx, DecideInput{RequestID: req.ID, Actor: actor("M2", domain.RoleManager), Decision: domain.DecisionReject})
	assert.Equal(t, domain.ErrAlreadyResolved, err)

	result, err := NewReconciler(f.uc, nil, 0, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Found: 1, Completed: 1}, result)

	active, _ := f.uc.ListActiveRequests(ctx, domain.RequestFilter{})
	assert.Empty(t, active)

	records, _ = f.uc.ListArchivedRequests(ctx, domain.ArchiveFilter{})
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, provisional.SourceRequestID, records[0].SourceRequestID)
	assert.Equal(t, "Mia Manager", records[0].ApprovedBy.Label)

	lead, _ := f.leads.FindLead(ctx, "L1")
	assert.Equal(t, domain.LeadStatusRed, lead.Status)

	entries, _ := f.uc.ListChangeLog(ctx, "L1")
	assert.Len(t, entries, 1)
}

func TestDecide_PublishesEvents(t *testing.T) {
	events := new(MockEventPublisher)
	events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	f := newWorkflowFixture(t, WorkflowConfig{}, events)
	ctx := context.Background()

	req := f.submit(t, "L1", domain.LeadStatusRed)
	_, err := f.uc.Decide(ctx, DecideInput{RequestID: req.ID, Actor: actor("M1", domain.RoleManager), Decision: domain.DecisionApprove})
	require.NoError(t, err)

	var types []string
	for _, call := range events.Calls {
		types = append(types, call.Arguments.Get(1).(ports.Event).Type)
	}
	assert.Equal(t, []string{
		ports.EventTypeRequestSubmitted,
		ports.EventTypeRequestDecided,
		ports.EventTypeEntityModified,
		ports.EventTypeRequestArchived,
	}, types)
}

func TestRecordChange(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()
	agent := "A1"

	_, err := f.uc.RecordChange(ctx, "L1", &agent, nil)
	assert.Equal(t, domain.ErrEmptyChangeSet, err)

	entries, err := f.uc.ListChangeLog(ctx, "L1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	for i := 1; i <= 3; i++ {
		entry, err := f.uc.RecordChange(ctx, "L1", &agent, []domain.FieldChange{
			{FieldName: "phone", OldValue: fmt.Sprintf("555-000%d", i-1), NewValue: fmt.Sprintf("555-000%d", i)},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)

		entries, err := f.uc.ListChangeLog(ctx, "L1")
		require.NoError(t, err)
		assert.Len(t, entries, i)
	}

	// entries without an agent are system changes
	entry, err := f.uc.RecordChange(ctx, "L2", nil, []domain.FieldChange{{FieldName: "score", OldValue: 10, NewValue: 12}})
	require.NoError(t, err)
	assert.Nil(t, entry.AgentID)

	_, err = f.uc.ListChangeLog(ctx, "")
	assert.Equal(t, domain.ErrInvalidRequest, err)
}

func TestListActiveRequests_Pagination(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		f.submit(t, fmt.Sprintf("lead-%02d", i), domain.LeadStatusYellow)
	}

	page, err := f.uc.ListActiveRequests(ctx, domain.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, page, 20)

	all, err := f.uc.ListActiveRequests(ctx, domain.RequestFilter{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, all, 25)

	tail, err := f.uc.ListActiveRequests(ctx, domain.RequestFilter{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, tail, 5)
}

func TestDecide_ConcurrentAcrossLeads(t *testing.T) {
	f := newWorkflowFixture(t, WorkflowConfig{}, nil)
	ctx := context.Background()

	const leads = 16
	ids := make([]string, leads)
	for i := range ids {
		ids[i] = f.submit(t, fmt.Sprintf("lead-%02d", i), domain.LeadStatusWhite).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.uc.Decide(ctx, DecideInput{RequestID: id, Actor: actor("T1", domain.RoleTeamLead), Decision: domain.DecisionApprove})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	records, err := f.uc.ListArchivedRequests(ctx, domain.ArchiveFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, records, leads)

	active, _ := f.uc.ListActiveRequests(ctx, domain.RequestFilter{})
	assert.Empty(t, active)
}

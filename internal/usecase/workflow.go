package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/infra/logger"
	"github.com/fixora/leadflow/internal/ports"
)

// SubmitRequestInput represents the request to open a status change
type SubmitRequestInput struct {
	LeadID          string            `json:"lead_id"`
	RequestedBy     string            `json:"requested_by"`
	RequestedStatus domain.LeadStatus `json:"requested_status"`
}

// DecideInput represents an approve or reject decision on a pending request
type DecideInput struct {
	RequestID string          `json:"request_id"`
	Actor     domain.Actor    `json:"actor"`
	Decision  domain.Decision `json:"decision"`
	Comment   *string         `json:"comment,omitempty"`
}

// WorkflowConfig holds the tunable workflow behaviour
type WorkflowConfig struct {
	// LogRejections records a status_request entry in the change log when a
	// request is rejected
	LogRejections bool
}

// WorkflowDeps groups the collaborators of the workflow use case.
// Leads, Identities and Events are optional.
type WorkflowDeps struct {
	Ledger     *RequestLedger
	Archive    *Archive
	ChangeLog  *ChangeLogRecorder
	Leads      ports.LeadDirectory
	Identities ports.IdentityResolver
	Events     ports.EventPublisher
	Logger     logger.Logger
}

// WorkflowUseCase sequences submission, decision, archival and change
// logging of lead status requests
type WorkflowUseCase struct {
	ledger     *RequestLedger
	archive    *Archive
	changeLog  *ChangeLogRecorder
	leads      ports.LeadDirectory
	identities ports.IdentityResolver
	events     ports.EventPublisher
	logger     logger.Logger
	config     WorkflowConfig
	now        func() time.Time
}

// NewWorkflowUseCase creates a new workflow use case
func NewWorkflowUseCase(deps WorkflowDeps, config WorkflowConfig) *WorkflowUseCase {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &WorkflowUseCase{
		ledger:     deps.Ledger,
		archive:    deps.Archive,
		changeLog:  deps.ChangeLog,
		leads:      deps.Leads,
		identities: deps.Identities,
		events:     deps.Events,
		logger:     log,
		config:     config,
		now:        utcNow,
	}
}

// SubmitRequest opens a PENDING request for a lead
func (uc *WorkflowUseCase) SubmitRequest(ctx context.Context, in SubmitRequestInput) (*domain.LeadStatusRequest, error) {
	req, err := uc.ledger.Create(ctx, in.LeadID, in.RequestedBy, in.RequestedStatus)
	if err != nil {
		logger.LogWorkflowEvent(ctx, uc.logger, "submit", "", in.RequestedBy, false, map[string]interface{}{
			"lead_id": in.LeadID,
			"error":   err.Error(),
		})
		return nil, err
	}

	logger.LogWorkflowEvent(ctx, uc.logger, "submit", req.ID, req.RequestedBy, true, map[string]interface{}{
		"lead_id":          req.LeadID,
		"requested_status": req.RequestedStatus,
		"approver_role":    req.ApproverRole,
	})

	uc.publish(ctx, ports.EventTypeRequestSubmitted, ports.AggregateLeadStatusRequest, req.ID, map[string]interface{}{
		"lead_id":          req.LeadID,
		"requested_by":     req.RequestedBy,
		"requested_status": req.RequestedStatus,
		"approver_role":    req.ApproverRole,
	})

	return req.Clone(), nil
}

// Decide resolves a pending request and moves it to the archive.
//
// Once the resolution is committed the decision stands. If archival or its
// side effects fail afterwards, the request stays in the active set in its
// resolved state, the failure is logged and a provisional record is
// returned; the Reconciler completes the work later. The provisional record
// has an empty ID and id-only labels. Match it to the stored record through
// SourceRequestID.
func (uc *WorkflowUseCase) Decide(ctx context.Context, in DecideInput) (*domain.ArchivedLeadStatusRequest, error) {
	start := time.Now()
	defer func() {
		logger.LogPerformance(ctx, uc.logger, "decide", time.Since(start), map[string]interface{}{"request_id": in.RequestID})
	}()

	resolved, err := uc.ledger.Resolve(ctx, in.RequestID, in.Actor, in.Decision, in.Comment)
	if err != nil {
		if errors.Is(err, domain.ErrRequestNotFound) && uc.isArchived(ctx, in.RequestID) {
			err = domain.ErrAlreadyResolved
		}
		logger.LogWorkflowEvent(ctx, uc.logger, "decide", in.RequestID, in.Actor.ID, false, map[string]interface{}{
			"decision": in.Decision,
			"role":     in.Actor.Role,
			"error":    err.Error(),
		})
		return nil, err
	}

	logger.LogWorkflowEvent(ctx, uc.logger, "decide", resolved.ID, in.Actor.ID, true, map[string]interface{}{
		"decision": in.Decision,
		"role":     in.Actor.Role,
		"lead_id":  resolved.LeadID,
	})

	uc.publish(ctx, ports.EventTypeRequestDecided, ports.AggregateLeadStatusRequest, resolved.ID, map[string]interface{}{
		"lead_id":          resolved.LeadID,
		"approval_status":  resolved.ApprovalStatus,
		"requested_status": resolved.RequestedStatus,
		"resolved_by":      in.Actor.ID,
	})

	archived, err := uc.completeResolution(ctx, resolved)
	if err != nil {
		uc.logger.Error(ctx, "Archival deferred after resolution", err, map[string]interface{}{
			"request_id":      resolved.ID,
			"approval_status": resolved.ApprovalStatus,
		})
		provisional, err := domain.NewArchivedLeadStatusRequest(resolved, domain.ReferenceLabels{}, uc.now())
		if err != nil {
			return nil, err
		}
		provisional.ID = ""
		return provisional, nil
	}
	return archived, nil
}

// ListActiveRequests retrieves requests still in the active set
func (uc *WorkflowUseCase) ListActiveRequests(ctx context.Context, filter domain.RequestFilter) ([]*domain.LeadStatusRequest, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return uc.ledger.List(ctx, filter)
}

// ListArchivedRequests retrieves archived records
func (uc *WorkflowUseCase) ListArchivedRequests(ctx context.Context, filter domain.ArchiveFilter) ([]*domain.ArchivedLeadStatusRequest, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return uc.archive.List(ctx, filter)
}

// RecordChange appends a change log entry for an arbitrary entity
func (uc *WorkflowUseCase) RecordChange(ctx context.Context, entityID string, agentID *string, diffs []domain.FieldChange) (*domain.ModificationLogEntry, error) {
	entry, err := uc.changeLog.Record(ctx, entityID, agentID, diffs)
	if err != nil {
		return nil, err
	}
	uc.publishModified(ctx, entry)
	return entry, nil
}

// ListChangeLog retrieves the change log of an entity, oldest first
func (uc *WorkflowUseCase) ListChangeLog(ctx context.Context, entityID string) ([]*domain.ModificationLogEntry, error) {
	return uc.changeLog.List(ctx, entityID)
}

// completeResolution archives a resolved request, applies its effects and
// removes it from the active set. Every step tolerates having already run.
func (uc *WorkflowUseCase) completeResolution(ctx context.Context, resolved *domain.LeadStatusRequest) (*domain.ArchivedLeadStatusRequest, error) {
	labels, err := uc.resolveLabels(ctx, resolved)
	if err != nil {
		return nil, err
	}

	archived, err := uc.archive.Store(ctx, resolved, labels)
	if errors.Is(err, domain.ErrAlreadyArchived) {
		archived, err = uc.archive.Get(ctx, resolved.ID)
	}
	if err != nil {
		return nil, err
	}

	if err := uc.applyEffects(ctx, resolved); err != nil {
		return nil, err
	}

	if err := uc.ledger.Remove(ctx, resolved.ID); err != nil && !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, err
	}

	uc.publish(ctx, ports.EventTypeRequestArchived, ports.AggregateLeadStatusRequest, resolved.ID, map[string]interface{}{
		"archive_id":      archived.ID,
		"approval_status": archived.ApprovalStatus,
	})
	return archived, nil
}

// applyEffects performs the side effects of a decision: an approval logs the
// status change and then sets the lead status, a rejection is logged if
// configured. The log entry is written before the lead changes and is keyed
// by the request, so a retry after any failure logs the change exactly once.
func (uc *WorkflowUseCase) applyEffects(ctx context.Context, resolved *domain.LeadStatusRequest) error {
	switch resolved.ApprovalStatus {
	case domain.ApprovalStatusApproved:
		if uc.leads == nil {
			return nil
		}
		lead, err := uc.leads.FindLead(ctx, resolved.LeadID)
		if errors.Is(err, domain.ErrLeadNotFound) {
			uc.logger.Warn(ctx, "Approved request references unknown lead", map[string]interface{}{
				"request_id": resolved.ID,
				"lead_id":    resolved.LeadID,
			})
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load lead: %w", err)
		}
		if lead.Status == resolved.RequestedStatus {
			return nil
		}

		err = uc.recordEffect(ctx, resolved, resolved.ApprovedBy, []domain.FieldChange{
			{FieldName: domain.FieldStatus, OldValue: string(lead.Status), NewValue: string(resolved.RequestedStatus)},
		})
		if err != nil {
			return err
		}

		if _, err := uc.leads.UpdateLeadStatus(ctx, resolved.LeadID, resolved.RequestedStatus); err != nil {
			return fmt.Errorf("failed to update lead status: %w", err)
		}
		return nil

	case domain.ApprovalStatusRejected:
		if !uc.config.LogRejections {
			return nil
		}
		return uc.recordEffect(ctx, resolved, resolved.RejectedBy, []domain.FieldChange{
			{FieldName: domain.FieldStatusRequest, OldValue: string(domain.ApprovalStatusPending), NewValue: string(domain.ApprovalStatusRejected)},
		})
	}
	return domain.ErrNotResolved
}

// recordEffect logs the change a request makes to its lead. An entry already
// logged for the request counts as done.
func (uc *WorkflowUseCase) recordEffect(ctx context.Context, resolved *domain.LeadStatusRequest, agentID *string, diffs []domain.FieldChange) error {
	entry, err := uc.changeLog.RecordForRequest(ctx, resolved.ID, resolved.LeadID, agentID, diffs)
	if errors.Is(err, domain.ErrAlreadyLogged) {
		return nil
	}
	if err != nil {
		return err
	}
	uc.publishModified(ctx, entry)
	return nil
}

func (uc *WorkflowUseCase) publishModified(ctx context.Context, entry *domain.ModificationLogEntry) {
	fields := make([]string, 0, len(entry.ModifiedFields))
	for _, f := range entry.ModifiedFields {
		fields = append(fields, f.FieldName)
	}
	data := map[string]interface{}{
		"entry_id": entry.ID,
		"fields":   fields,
	}
	if entry.SourceRequestID != nil {
		data["source_request_id"] = *entry.SourceRequestID
	}
	uc.publish(ctx, ports.EventTypeEntityModified, ports.AggregateLead, entry.EntityID, data)
}

// resolveLabels looks up display labels for the references of a request.
// Unknown ids fall back to the id itself; lookup failures are returned.
func (uc *WorkflowUseCase) resolveLabels(ctx context.Context, req *domain.LeadStatusRequest) (domain.ReferenceLabels, error) {
	labels := domain.ReferenceLabels{
		Lead:        domain.Reference{ID: req.LeadID},
		RequestedBy: domain.Reference{ID: req.RequestedBy},
	}
	if resolverID, ok := req.ResolvedBy(); ok {
		labels.ResolvedBy = domain.Reference{ID: resolverID}
	}

	if uc.leads != nil {
		lead, err := uc.leads.FindLead(ctx, req.LeadID)
		switch {
		case err == nil:
			labels.Lead = lead.Reference()
		case !errors.Is(err, domain.ErrLeadNotFound):
			return labels, fmt.Errorf("failed to resolve lead label: %w", err)
		}
	}

	if uc.identities == nil {
		return labels, nil
	}
	for _, ref := range []*domain.Reference{&labels.RequestedBy, &labels.ResolvedBy} {
		if ref.ID == "" {
			continue
		}
		identity, err := uc.identities.ResolveIdentity(ctx, ref.ID)
		switch {
		case err == nil:
			*ref = identity.Reference()
		case !errors.Is(err, domain.ErrIdentityNotFound):
			return labels, fmt.Errorf("failed to resolve identity label: %w", err)
		}
	}
	return labels, nil
}

func (uc *WorkflowUseCase) isArchived(ctx context.Context, requestID string) bool {
	_, err := uc.archive.Get(ctx, requestID)
	return err == nil
}

// publish sends a domain event. Failures are logged and never fail the
// operation that produced the event.
func (uc *WorkflowUseCase) publish(ctx context.Context, eventType, aggregate, aggregateID string, data map[string]interface{}) {
	if uc.events == nil {
		return
	}
	event := ports.NewEvent(eventType, aggregate, aggregateID, data, 1)
	if err := uc.events.Publish(ctx, *event); err != nil {
		uc.logger.Warn(ctx, "Failed to publish event", map[string]interface{}{
			"event":        eventType,
			"aggregate_id": aggregateID,
			"error":        err.Error(),
		})
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

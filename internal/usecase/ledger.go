package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// RequestLedger owns the active lead status requests and enforces the
// approval state machine
type RequestLedger struct {
	repo   ports.LeadStatusRequestRepository
	policy domain.ApproverPolicy
	now    func() time.Time
}

// NewRequestLedger creates a new request ledger. A nil policy falls back to
// domain.DefaultApproverPolicy.
func NewRequestLedger(repo ports.LeadStatusRequestRepository, policy domain.ApproverPolicy) *RequestLedger {
	if policy == nil {
		policy = domain.DefaultApproverPolicy
	}
	return &RequestLedger{
		repo:   repo,
		policy: policy,
		now:    utcNow,
	}
}

// Create opens a new PENDING request for a lead
func (l *RequestLedger) Create(ctx context.Context, leadID, requestedBy string, requestedStatus domain.LeadStatus) (*domain.LeadStatusRequest, error) {
	req, err := domain.NewLeadStatusRequest(leadID, requestedBy, requestedStatus, l.policy(requestedStatus), l.now())
	if err != nil {
		return nil, err
	}

	if err := l.repo.Create(ctx, req); err != nil {
		return nil, wrapInfra("failed to create request", err)
	}
	return req, nil
}

// Resolve moves a PENDING request to APPROVED or REJECTED. Only one of any
// number of concurrent resolutions wins; the others get ErrAlreadyResolved.
func (l *RequestLedger) Resolve(ctx context.Context, requestID string, actor domain.Actor, decision domain.Decision, comment *string) (*domain.LeadStatusRequest, error) {
	if requestID == "" {
		return nil, domain.ErrInvalidRequest
	}

	req, err := l.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapInfra("failed to get request", err)
	}

	if err := req.Resolve(actor, decision, comment, l.now()); err != nil {
		return nil, err
	}

	if err := l.repo.CompareAndResolve(ctx, req); err != nil {
		return nil, wrapInfra("failed to resolve request", err)
	}
	return req, nil
}

// Remove drops a request from the active set
func (l *RequestLedger) Remove(ctx context.Context, requestID string) error {
	return wrapInfra("failed to remove request", l.repo.Delete(ctx, requestID))
}

// Get retrieves an active request
func (l *RequestLedger) Get(ctx context.Context, requestID string) (*domain.LeadStatusRequest, error) {
	req, err := l.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapInfra("failed to get request", err)
	}
	return req, nil
}

// List retrieves active requests
func (l *RequestLedger) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.LeadStatusRequest, error) {
	requests, err := l.repo.List(ctx, filter)
	if err != nil {
		return nil, wrapInfra("failed to list requests", err)
	}
	return requests, nil
}

// ListResolved returns requests that were resolved but are still in the
// active set, i.e. whose archival has not completed
func (l *RequestLedger) ListResolved(ctx context.Context) ([]*domain.LeadStatusRequest, error) {
	var resolved []*domain.LeadStatusRequest
	for _, status := range []domain.ApprovalStatus{domain.ApprovalStatusApproved, domain.ApprovalStatusRejected} {
		s := status
		requests, err := l.repo.List(ctx, domain.RequestFilter{ApprovalStatus: &s})
		if err != nil {
			return nil, wrapInfra("failed to list resolved requests", err)
		}
		resolved = append(resolved, requests...)
	}
	return resolved, nil
}

// wrapInfra returns domain errors unchanged and wraps everything else
func wrapInfra(msg string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isDomainError(err error) bool {
	var de *domain.DomainError
	return errors.As(err, &de)
}

func utcNow() time.Time {
	return time.Now().UTC()
}

package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fixora/leadflow/internal/infra/logger"
	"github.com/fixora/leadflow/internal/infra/retry"
)

// Reconciler completes archival of requests that were resolved but left in
// the active set, e.g. after a crash or a failed archive write
type Reconciler struct {
	workflow *WorkflowUseCase
	strategy retry.Strategy
	interval time.Duration
	logger   logger.Logger
}

// NewReconciler creates a reconciler. A nil strategy runs every completion
// once per sweep.
func NewReconciler(workflow *WorkflowUseCase, strategy retry.Strategy, interval time.Duration, log logger.Logger) *Reconciler {
	if strategy == nil {
		strategy = retry.NewNoRetryStrategy()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Reconciler{
		workflow: workflow,
		strategy: strategy,
		interval: interval,
		logger:   log,
	}
}

// SweepResult summarizes one reconciliation pass
type SweepResult struct {
	Found     int `json:"found"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Sweep completes every resolved request still in the active set. Failures
// are logged and left for the next sweep.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	pending, err := r.workflow.ledger.ListResolved(ctx)
	if err != nil {
		return result, err
	}
	result.Found = len(pending)

	for _, req := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		resolved := req
		err := r.strategy.Execute(ctx, func(ctx context.Context) error {
			_, err := r.workflow.completeResolution(ctx, resolved)
			if isDomainError(err) {
				return retry.Permanent(err)
			}
			return err
		})
		if err != nil {
			result.Failed++
			r.logger.Error(ctx, "Failed to complete archival", err, map[string]interface{}{
				"request_id":      resolved.ID,
				"approval_status": resolved.ApprovalStatus,
				"strategy":        r.strategy.Name(),
			})
			continue
		}
		result.Completed++
	}

	if result.Found > 0 {
		r.logger.Info(ctx, "Reconciliation sweep finished", map[string]interface{}{
			"found":     result.Found,
			"completed": result.Completed,
			"failed":    result.Failed,
		})
	}
	return result, nil
}

// Run sweeps once immediately and then on every interval tick until ctx is
// done. A non-positive interval sweeps only once.
func (r *Reconciler) Run(ctx context.Context) error {
	r.sweepLogged(ctx)
	if r.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweepLogged(ctx)
		}
	}
}

// sweepLogged runs one sweep under its own correlation id
func (r *Reconciler) sweepLogged(ctx context.Context) {
	ctx = logger.WithCorrelationID(ctx, uuid.NewString())
	if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error(ctx, "Reconciliation sweep failed", err, nil)
	}
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/repository"
	"autoparts-returns-backend/pkg/logger"
)

// =====================================================
// LIFECYCLE ORCHESTRATOR
// =====================================================

// Orchestrator is the only writer of return status. Every other component
// requests a transition through it; nothing else touches the status column.
// Each transition is a compare-and-swap on the record version, so two
// racing writers resolve to exactly one winner.
type Orchestrator struct {
	repo repository.ReturnRepository
	now  func() time.Time
}

func NewOrchestrator(repo repository.ReturnRepository) *Orchestrator {
	return &Orchestrator{
		repo: repo,
		now:  time.Now,
	}
}

// WithClock replaces the clock, for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Transition moves the return from expectedStatus to newStatus, applying
// mutate to the record before the write. The caller supplies the status it
// believes the return is in; a mismatch fails without touching the row.
func (o *Orchestrator) Transition(
	ctx context.Context,
	ret *model.ReturnRequest,
	expectedStatus string,
	newStatus string,
	mutate func(*model.ReturnRequest),
) error {
	if ret.Status != expectedStatus {
		return model.NewInvalidTransitionError(ret.Status, newStatus)
	}

	if !model.CanTransition(ret.Status, newStatus) {
		return model.NewInvalidTransitionError(ret.Status, newStatus)
	}

	if mutate != nil {
		mutate(ret)
	}

	prev := ret.Status
	ret.Status = newStatus
	o.stampTimestamp(ret, newStatus)

	if err := o.repo.UpdateWithVersion(ctx, ret); err != nil {
		ret.Status = prev
		return err
	}

	logger.Info("Return transitioned", map[string]interface{}{
		"return_id":  ret.ID.String(),
		"rma_number": ret.RMANumber,
		"from":       prev,
		"to":         newStatus,
		"version":    ret.Version,
	})

	return nil
}

// TransitionByID is Transition after a fresh read, for callers that only
// hold the return id (webhook processors, jobs).
func (o *Orchestrator) TransitionByID(
	ctx context.Context,
	returnID uuid.UUID,
	expectedStatus string,
	newStatus string,
	mutate func(*model.ReturnRequest),
) (*model.ReturnRequest, error) {
	ret, err := o.repo.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if err := o.Transition(ctx, ret, expectedStatus, newStatus, mutate); err != nil {
		return nil, err
	}

	return ret, nil
}

// stampTimestamp sets the stage timestamp for the new status exactly once;
// an already-set stamp is never overwritten.
func (o *Orchestrator) stampTimestamp(ret *model.ReturnRequest, newStatus string) {
	now := o.now()

	switch newStatus {
	case model.StatusValidated:
		if ret.Timestamps.ValidatedAt == nil {
			ret.Timestamps.ValidatedAt = &now
		}
	case model.StatusPickupScheduled:
		if ret.Timestamps.PickupScheduledAt == nil {
			ret.Timestamps.PickupScheduledAt = &now
		}
	case model.StatusPickupCompleted:
		if ret.Timestamps.PickupCompletedAt == nil {
			ret.Timestamps.PickupCompletedAt = &now
		}
	case model.StatusInspectionInProgress:
		if ret.Timestamps.InspectionStartedAt == nil {
			ret.Timestamps.InspectionStartedAt = &now
		}
	case model.StatusInspectionApproved, model.StatusInspectionRejected:
		if ret.Timestamps.InspectionCompletedAt == nil {
			ret.Timestamps.InspectionCompletedAt = &now
		}
	}
}

package service

import (
	"context"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/pickup/model"
	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/shared"
)

// PickupService coordinates courier pickups for validated returns.
type PickupService interface {
	// SchedulePickup moves the return to pickup_scheduled and enqueues
	// the partner booking; the partner call itself runs on the worker.
	SchedulePickup(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req returnsmodel.SchedulePickupRequest) (*returnsmodel.ReturnRequest, error)

	// CompletePickup records the physical handover. Idempotent: the same
	// tracking number is a no-op, a different one is a conflict.
	CompletePickup(ctx context.Context, actor shared.Actor, returnID uuid.UUID, trackingNumber string) (*returnsmodel.ReturnRequest, error)

	// ExecuteScheduledPickup is the worker-side partner booking.
	ExecuteScheduledPickup(ctx context.Context, payload model.SchedulePickupPayload, lastAttempt bool) error

	// CancelScheduledPickup is the worker-side partner cancellation for
	// a return that was cancelled after its pickup was booked.
	CancelScheduledPickup(ctx context.Context, payload model.CancelPickupPayload, lastAttempt bool) error

	// HandlePickupEvent applies one verified webhook event.
	HandlePickupEvent(ctx context.Context, payload model.ProcessPickupEventPayload) error
}

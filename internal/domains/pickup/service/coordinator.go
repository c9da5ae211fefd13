package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/pickup/gateway"
	"autoparts-returns-backend/internal/domains/pickup/model"
	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
	returnsrepo "autoparts-returns-backend/internal/domains/returns/repository"
	returnssvc "autoparts-returns-backend/internal/domains/returns/service"
	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/pkg/logger"
)

// =====================================================
// PICKUP COORDINATOR IMPLEMENTATION
// =====================================================
type pickupCoordinator struct {
	repo         returnsrepo.ReturnRepository
	orchestrator *returnssvc.Orchestrator
	logistics    gateway.LogisticsGateway
	tasks        returnssvc.TaskEnqueuer
	maxAttempts  int
	now          func() time.Time
}

func NewPickupCoordinator(
	repo returnsrepo.ReturnRepository,
	orchestrator *returnssvc.Orchestrator,
	logistics gateway.LogisticsGateway,
	tasks returnssvc.TaskEnqueuer,
	maxAttempts int,
) PickupService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &pickupCoordinator{
		repo:         repo,
		orchestrator: orchestrator,
		logistics:    logistics,
		tasks:        tasks,
		maxAttempts:  maxAttempts,
		now:          time.Now,
	}
}

// =====================================================
// SCHEDULE PICKUP
// =====================================================

func (s *pickupCoordinator) SchedulePickup(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req returnsmodel.SchedulePickupRequest) (*returnsmodel.ReturnRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewPickupError(model.ErrCodeInvalidWebhookPayload, "Invalid pickup request", err)
	}

	ret, err := s.repo.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	err = s.orchestrator.Transition(ctx, ret, returnsmodel.StatusValidated, returnsmodel.StatusPickupScheduled, func(r *returnsmodel.ReturnRequest) {
		r.Pickup = &returnsmodel.PickupDetails{
			LogisticsPartner: s.logistics.PartnerName(),
			ScheduledDate:    req.ScheduledDate,
			PickupAddress:    req.PickupAddress,
			DeliveryAddress:  req.DeliveryAddress,
		}
	})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(model.SchedulePickupPayload{
		ReturnID:        ret.ID,
		RMANumber:       ret.RMANumber,
		ScheduledDate:   req.ScheduledDate,
		PickupAddress:   req.PickupAddress,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pickup payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeSchedulePickup, payload)
	_, err = s.tasks.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueHigh),
		asynq.MaxRetry(s.maxAttempts),
		asynq.Timeout(1*time.Minute),
	)
	if err != nil {
		// The status already moved; the booking will be picked up by the
		// SLA watchdog if nothing else re-enqueues it.
		logger.Error("Failed to enqueue pickup booking", err)
		s.appendNote(ctx, ret.ID, "system", "Pickup booking could not be enqueued; operator attention required")
		return nil, fmt.Errorf("failed to enqueue pickup booking: %w", err)
	}

	logger.Info("Pickup scheduled", map[string]interface{}{
		"return_id":  ret.ID.String(),
		"rma_number": ret.RMANumber,
		"date":       req.ScheduledDate.Format("2006-01-02"),
	})

	return ret, nil
}

// =====================================================
// EXECUTE SCHEDULED PICKUP (worker side)
// =====================================================

// ExecuteScheduledPickup books the delivery with the partner and writes
// the booking details back onto the return. Transient partner failures
// are returned to asynq for backoff retry; on the last attempt, or on a
// permanent failure, the failure is recorded on the note trail instead.
func (s *pickupCoordinator) ExecuteScheduledPickup(ctx context.Context, payload model.SchedulePickupPayload, lastAttempt bool) error {
	delivery, err := s.logistics.CreateDelivery(ctx, gateway.CreateDeliveryRequest{
		Matter:          payload.ReturnID.String(),
		Reference:       payload.RMANumber,
		ScheduledDate:   payload.ScheduledDate,
		PickupAddress:   payload.PickupAddress,
		DeliveryAddress: payload.DeliveryAddress,
		ContactPhone:    payload.PickupAddress.Phone,
	})
	if err != nil {
		if gateway.IsTransient(err) && !lastAttempt {
			return err
		}
		s.appendNote(ctx, payload.ReturnID, "system",
			"Pickup scheduling failed: "+err.Error())
		logger.ErrorWithFields("Pickup booking failed permanently", err, map[string]interface{}{
			"return_id": payload.ReturnID.String(),
		})
		return fmt.Errorf("%v: %w", model.ErrPickupSchedulingFailed, asynq.SkipRetry)
	}

	ret, err := s.repo.GetReturnByID(ctx, payload.ReturnID)
	if err != nil {
		return err
	}

	if ret.Pickup == nil {
		return model.ErrPickupNotScheduled
	}

	ret.Pickup.PickupID = delivery.DeliveryID
	ret.Pickup.TrackingNumber = delivery.TrackingNumber
	ret.Pickup.TrackingURL = delivery.TrackingURL
	ret.Pickup.Attempts++

	if err := s.repo.UpdateWithVersion(ctx, ret); err != nil {
		return err
	}

	logger.Info("Pickup booked with partner", map[string]interface{}{
		"return_id":   ret.ID.String(),
		"delivery_id": delivery.DeliveryID,
		"tracking":    delivery.TrackingNumber,
	})

	return nil
}

// =====================================================
// CANCEL SCHEDULED PICKUP (worker side)
// =====================================================

// CancelScheduledPickup tells the partner to drop a booking whose return
// was cancelled. Transient partner failures retry through asynq; once
// retries are exhausted, or on a permanent rejection, the failure lands
// on the note trail for an operator to chase.
func (s *pickupCoordinator) CancelScheduledPickup(ctx context.Context, payload model.CancelPickupPayload, lastAttempt bool) error {
	err := s.logistics.CancelDelivery(ctx, payload.PickupID)
	if err != nil {
		if gateway.IsTransient(err) && !lastAttempt {
			return err
		}
		s.appendNote(ctx, payload.ReturnID, "system",
			"Partner booking "+payload.PickupID+" could not be cancelled: "+err.Error())
		logger.ErrorWithFields("Pickup cancellation failed permanently", err, map[string]interface{}{
			"return_id": payload.ReturnID.String(),
			"pickup_id": payload.PickupID,
		})
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	s.appendNote(ctx, payload.ReturnID, "system",
		"Partner booking "+payload.PickupID+" cancelled")
	logger.Info("Pickup cancelled with partner", map[string]interface{}{
		"return_id": payload.ReturnID.String(),
		"pickup_id": payload.PickupID,
	})

	return nil
}

// =====================================================
// COMPLETE PICKUP
// =====================================================

func (s *pickupCoordinator) CompletePickup(ctx context.Context, actor shared.Actor, returnID uuid.UUID, trackingNumber string) (*returnsmodel.ReturnRequest, error) {
	ret, err := s.repo.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if ret.Pickup == nil {
		return nil, model.NewPickupError(model.ErrCodePickupNotScheduled,
			"No pickup scheduled for this return", model.ErrPickupNotScheduled)
	}

	// Replayed completion with the same tracking number is a no-op;
	// a different number means two couriers claim the same item.
	if ret.Status == returnsmodel.StatusPickupCompleted || ret.Pickup.CompletedDate != nil {
		if ret.Pickup.TrackingNumber == trackingNumber {
			return ret, nil
		}
		return nil, model.NewPickupError(model.ErrCodeConflictingTrackingNumber,
			"Pickup already completed with a different tracking number", model.ErrConflictingTrackingNumber)
	}

	completedAt := s.now()
	err = s.orchestrator.Transition(ctx, ret, returnsmodel.StatusPickupScheduled, returnsmodel.StatusPickupCompleted, func(r *returnsmodel.ReturnRequest) {
		r.Pickup.TrackingNumber = trackingNumber
		r.Pickup.CompletedDate = &completedAt
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Pickup completed", map[string]interface{}{
		"return_id": ret.ID.String(),
		"tracking":  trackingNumber,
	})

	return ret, nil
}

// =====================================================
// WEBHOOK EVENTS
// =====================================================

func (s *pickupCoordinator) HandlePickupEvent(ctx context.Context, payload model.ProcessPickupEventPayload) error {
	switch payload.EventType {
	case model.EventPickedUp, model.EventCompleted:
		_, err := s.CompletePickup(ctx, shared.SystemActor(), payload.ReturnID, payload.TrackingNumber)
		if err != nil {
			// Conflicts need an operator, not a retry loop.
			if errors.Is(err, model.ErrConflictingTrackingNumber) {
				s.appendNote(ctx, payload.ReturnID, "system",
					"Webhook reported conflicting tracking number "+payload.TrackingNumber)
				return nil
			}
			return err
		}
		if payload.TrackingURL != "" {
			s.updateTrackingURL(ctx, payload.ReturnID, payload.TrackingURL)
		}
		return nil

	case model.EventCanceled:
		s.appendNote(ctx, payload.ReturnID, "system",
			"Logistics partner cancelled the pickup; rescheduling required")
		return nil

	case model.EventOrderCreated, model.EventCourierAsigned:
		// Informational only.
		return nil

	default:
		logger.Warn("Ignoring unknown pickup event", map[string]interface{}{
			"return_id":  payload.ReturnID.String(),
			"event_type": payload.EventType,
		})
		return nil
	}
}

// =====================================================
// HELPERS
// =====================================================

func (s *pickupCoordinator) updateTrackingURL(ctx context.Context, returnID uuid.UUID, trackingURL string) {
	ret, err := s.repo.GetReturnByID(ctx, returnID)
	if err != nil || ret.Pickup == nil {
		return
	}
	ret.Pickup.TrackingURL = trackingURL
	if err := s.repo.UpdateWithVersion(ctx, ret); err != nil {
		logger.Error("Failed to update tracking URL", err)
	}
}

func (s *pickupCoordinator) appendNote(ctx context.Context, returnID uuid.UUID, by, text string) {
	err := s.repo.AppendNote(ctx, returnID, returnsmodel.Note{
		At:   s.now(),
		By:   by,
		Text: text,
	})
	if err != nil {
		logger.Error("Failed to append note", err)
	}
}

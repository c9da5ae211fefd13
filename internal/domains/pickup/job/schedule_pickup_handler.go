package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/pickup/model"
	"autoparts-returns-backend/internal/domains/pickup/service"
	"autoparts-returns-backend/internal/shared/utils"
)

// SchedulePickupHandler performs the partner booking for a scheduled
// pickup. Transient partner errors bubble back to asynq for backoff
// retry; the coordinator escalates to the note trail on the final
// attempt.
type SchedulePickupHandler struct {
	pickupService service.PickupService
}

func NewSchedulePickupHandler(pickupService service.PickupService) *SchedulePickupHandler {
	return &SchedulePickupHandler{pickupService: pickupService}
}

func (h *SchedulePickupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.SchedulePickupPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal schedule pickup payload: %v: %w", err, asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	lastAttempt := retried >= maxRetry

	return h.pickupService.ExecuteScheduledPickup(ctx, payload, lastAttempt)
}

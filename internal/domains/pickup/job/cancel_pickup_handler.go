package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/pickup/model"
	"autoparts-returns-backend/internal/domains/pickup/service"
	"autoparts-returns-backend/internal/shared/utils"
)

// CancelPickupHandler drops a live partner booking for a cancelled
// return. Runs on the worker so API-side cancellation never blocks on
// the partner.
type CancelPickupHandler struct {
	pickupService service.PickupService
}

func NewCancelPickupHandler(pickupService service.PickupService) *CancelPickupHandler {
	return &CancelPickupHandler{pickupService: pickupService}
}

func (h *CancelPickupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.CancelPickupPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal cancel pickup payload: %v: %w", err, asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	lastAttempt := retried >= maxRetry

	return h.pickupService.CancelScheduledPickup(ctx, payload, lastAttempt)
}

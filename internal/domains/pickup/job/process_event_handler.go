package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/pickup/model"
	"autoparts-returns-backend/internal/domains/pickup/service"
	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/shared/utils"
	"autoparts-returns-backend/pkg/logger"
)

// ProcessPickupEventHandler applies one verified webhook event to the
// lifecycle. Version conflicts are retried: the event is still valid,
// the record just moved.
type ProcessPickupEventHandler struct {
	pickupService service.PickupService
}

func NewProcessPickupEventHandler(pickupService service.PickupService) *ProcessPickupEventHandler {
	return &ProcessPickupEventHandler{pickupService: pickupService}
}

func (h *ProcessPickupEventHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ProcessPickupEventPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal pickup event payload: %v: %w", err, asynq.SkipRetry)
	}

	err := h.pickupService.HandlePickupEvent(ctx, payload)
	if err != nil {
		if errors.Is(err, returnsmodel.ErrReturnNotFound) {
			// Event for a return we never created; drop it.
			logger.Warn("Pickup event for unknown return", map[string]interface{}{
				"return_id": payload.ReturnID.String(),
			})
			return nil
		}
		return err
	}

	return nil
}

package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/service"
	"autoparts-returns-backend/internal/shared/utils"
	"autoparts-returns-backend/pkg/logger"
)

// DeleteReturnImagesHandler removes orphaned uploads for a return.
type DeleteReturnImagesHandler struct {
	storage service.ImageStorage
}

func NewDeleteReturnImagesHandler(imageStorage service.ImageStorage) *DeleteReturnImagesHandler {
	return &DeleteReturnImagesHandler{storage: imageStorage}
}

func (h *DeleteReturnImagesHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.DeleteReturnImagesPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal delete images payload: %v: %w", err, asynq.SkipRetry)
	}

	if len(payload.ObjectKeys) == 0 {
		return nil
	}

	if err := h.storage.RemoveObjects(ctx, payload.ObjectKeys); err != nil {
		return fmt.Errorf("failed to remove images for return %s: %w", payload.ReturnID, err)
	}

	logger.Info("Return images removed", map[string]interface{}{
		"return_id": payload.ReturnID.String(),
		"count":     len(payload.ObjectKeys),
	})

	return nil
}

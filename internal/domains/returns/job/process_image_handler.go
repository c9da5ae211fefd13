package job

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/repository"
	"autoparts-returns-backend/internal/domains/returns/service"
	"autoparts-returns-backend/internal/infrastructure/storage"
	"autoparts-returns-backend/internal/shared/utils"
	"autoparts-returns-backend/pkg/logger"
)

// ProcessReturnImageHandler normalizes an uploaded photo: validate, resize
// into display and thumbnail variants, attach the display URL to the
// return, drop the raw upload.
type ProcessReturnImageHandler struct {
	repo      repository.ReturnRepository
	storage   service.ImageStorage
	processor *storage.ImageProcessor
}

func NewProcessReturnImageHandler(
	repo repository.ReturnRepository,
	imageStorage service.ImageStorage,
	processor *storage.ImageProcessor,
) *ProcessReturnImageHandler {
	return &ProcessReturnImageHandler{
		repo:      repo,
		storage:   imageStorage,
		processor: processor,
	}
}

func (h *ProcessReturnImageHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ProcessReturnImagePayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal process image payload: %v: %w", err, asynq.SkipRetry)
	}

	data, err := h.storage.Download(ctx, payload.ObjectKey)
	if err != nil {
		return fmt.Errorf("failed to download raw image %s: %w", payload.ObjectKey, err)
	}

	if err := h.processor.ValidateImage(data); err != nil {
		// Bad upload. Drop it and do not retry.
		logger.Warn("Rejected uploaded image", map[string]interface{}{
			"return_id":  payload.ReturnID.String(),
			"object_key": payload.ObjectKey,
			"reason":     err.Error(),
		})
		if delErr := h.storage.Delete(ctx, payload.ObjectKey); delErr != nil {
			logger.Error("Failed to delete rejected image", delErr)
		}
		return nil
	}

	variants, err := h.processor.ProcessImage(data)
	if err != nil {
		return fmt.Errorf("failed to process image %s: %w", payload.ObjectKey, err)
	}

	base := strings.TrimPrefix(path.Base(payload.ObjectKey), "raw_")
	base = strings.TrimSuffix(base, path.Ext(base))
	dir := path.Dir(payload.ObjectKey)

	var displayURL string
	for name, imgData := range variants {
		key := path.Join(dir, fmt.Sprintf("%s_%s.jpg", base, name))
		url, err := h.storage.Upload(ctx, key, imgData, "image/jpeg")
		if err != nil {
			return fmt.Errorf("failed to upload %s variant: %w", name, err)
		}
		if name == "display" {
			displayURL = url
		}
	}

	switch payload.Kind {
	case service.ImageKindInspection:
		err = h.repo.AppendInspectionImage(ctx, payload.ReturnID, displayURL)
	default:
		err = h.repo.AppendReturnImage(ctx, payload.ReturnID, displayURL)
	}
	if err != nil {
		return fmt.Errorf("failed to attach image to return: %w", err)
	}

	if err := h.storage.Delete(ctx, payload.ObjectKey); err != nil {
		logger.Error("Failed to delete raw upload", err)
	}

	logger.Info("Return image processed", map[string]interface{}{
		"return_id": payload.ReturnID.String(),
		"kind":      payload.Kind,
		"url":       displayURL,
	})

	return nil
}

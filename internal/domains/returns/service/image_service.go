package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/xid"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/repository"
	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/pkg/logger"
)

// =====================================================
// IMAGE SERVICE
// =====================================================

const (
	ImageKindEvidence   = "evidence"
	ImageKindInspection = "inspection"

	uploadURLExpiry = 15 * time.Minute
)

// ImageStorage is the object-store surface the image pipeline needs.
type ImageStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	RemoveObjects(ctx context.Context, keys []string) error
	PresignedPutURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	ObjectURL(key string) string
}

// UploadTicket is a one-shot presigned upload slot for one photo.
type UploadTicket struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
	ExpiresAt string `json:"expires_at"`
}

// ImageService hands out presigned upload slots and feeds confirmed
// uploads into the async normalization pipeline.
type ImageService struct {
	repo    repository.ReturnRepository
	storage ImageStorage
	tasks   TaskEnqueuer
}

func NewImageService(repo repository.ReturnRepository, storage ImageStorage, tasks TaskEnqueuer) *ImageService {
	return &ImageService{
		repo:    repo,
		storage: storage,
		tasks:   tasks,
	}
}

// RequestUpload returns a presigned PUT slot under the return's folder.
// Evidence uploads belong to the owning customer; inspection uploads to
// staff.
func (s *ImageService) RequestUpload(ctx context.Context, actor shared.Actor, returnID uuid.UUID, kind string) (*UploadTicket, error) {
	if kind != ImageKindEvidence && kind != ImageKindInspection {
		return nil, model.NewReturnError(model.ErrCodeInvalidStatus, fmt.Sprintf("unknown image kind %q", kind), nil)
	}

	ret, err := s.repo.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if kind == ImageKindEvidence && !actor.IsStaff() && ret.CustomerID != actor.ID {
		return nil, model.NewReturnError(model.ErrCodeUnauthorized, "Return does not belong to requester", model.ErrUnauthorized)
	}
	if kind == ImageKindInspection && !actor.IsStaff() {
		return nil, model.NewReturnError(model.ErrCodeUnauthorized, "Inspection images are staff only", model.ErrUnauthorized)
	}

	if ret.IsTerminal() {
		return nil, model.NewReturnError(model.ErrCodeInvalidStatus, "Return is closed", model.ErrInvalidStatus)
	}

	key := path.Join("returns", ret.ID.String(), kind, "raw_"+xid.New().String()+".jpg")
	uploadURL, err := s.storage.PresignedPutURL(ctx, key, uploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &UploadTicket{
		UploadURL: uploadURL,
		ObjectKey: key,
		ExpiresAt: time.Now().Add(uploadURLExpiry).UTC().Format(time.RFC3339),
	}, nil
}

// ConfirmUpload enqueues normalization of an uploaded object. The raw
// object is validated, resized and re-attached to the return off the
// request path.
func (s *ImageService) ConfirmUpload(ctx context.Context, actor shared.Actor, returnID uuid.UUID, objectKey, kind string) error {
	if _, err := s.repo.GetReturnByID(ctx, returnID); err != nil {
		return err
	}

	payload, err := json.Marshal(model.ProcessReturnImagePayload{
		ReturnID:  returnID,
		ObjectKey: objectKey,
		Kind:      kind,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal image task payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeProcessReturnImage, payload)
	_, err = s.tasks.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue image processing: %w", err)
	}

	logger.Info("Image processing enqueued", map[string]interface{}{
		"return_id":  returnID.String(),
		"object_key": objectKey,
		"kind":       kind,
	})

	return nil
}

// CleanupImages enqueues deletion of uploaded objects, used when a return
// is cancelled before the photos were ever attached.
func (s *ImageService) CleanupImages(ctx context.Context, returnID uuid.UUID, objectKeys []string) error {
	payload, err := json.Marshal(model.DeleteReturnImagesPayload{
		ReturnID:   returnID,
		ObjectKeys: objectKeys,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cleanup payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeDeleteReturnImages, payload)
	_, err = s.tasks.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue image cleanup: %w", err)
	}

	return nil
}

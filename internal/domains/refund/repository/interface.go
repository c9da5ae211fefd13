package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/refund/model"
)

// =====================================================
// REFUND REPOSITORY INTERFACES
// =====================================================

// RefundRepository persists refund rows. One return has at most one
// refund row (unique on return_id).
type RefundRepository interface {
	Create(ctx context.Context, refund *model.Refund) error
	GetByID(ctx context.Context, refundID uuid.UUID) (*model.Refund, error)
	GetByReturnID(ctx context.Context, returnID uuid.UUID) (*model.Refund, error)
	GetByProcessorRefundID(ctx context.Context, processorRefundID string) (*model.Refund, error)

	// UpdateStatus moves the status and stamps the matching timestamp.
	UpdateStatus(ctx context.Context, refundID uuid.UUID, status string) error

	// MarkProcessing records the processor-side id alongside the status.
	MarkProcessing(ctx context.Context, refundID uuid.UUID, processorRefundID string) error

	// MarkFailed records the failure detail for the operator.
	MarkFailed(ctx context.Context, refundID uuid.UUID, errorCode, errorMessage string) error

	// MarkManualCompleted closes a manual refund with the operator note.
	MarkManualCompleted(ctx context.Context, refundID uuid.UUID, operatorNote string) error

	ListByStatus(ctx context.Context, status string, limit int) ([]*model.Refund, error)
}

// WebhookRepository is the processed-webhook log used for settlement
// idempotency.
type WebhookRepository interface {
	// Record stores an event id; returns false when the event was
	// already recorded.
	Record(ctx context.Context, log *model.ProcessedWebhook) (bool, error)

	// DeleteOlderThan trims the log, called from the cleanup cron.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

package service

import (
	"context"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/refund/model"
	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/shared"
)

// =====================================================
// SERVICE INTERFACES
// =====================================================

// RefundService settles approved returns. Dispatch is exactly-once per
// return: one refund row, status-guarded completion, and settlement
// webhooks deduplicated against a processed-webhook log. Failed online
// refunds are never auto-retried; they land on the operator review queue.
type RefundService interface {
	InitiateRefund(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req returnsmodel.InitiateRefundRequest) (*model.Refund, error)
	MarkManualCompleted(ctx context.Context, actor shared.Actor, returnID uuid.UUID, operatorNote string) (*model.Refund, error)
	ProcessSettlementEvent(ctx context.Context, payload model.ProcessRefundEventPayload) error
	ReconcileProcessingRefunds(ctx context.Context) (int, error)
	ListFailedRefunds(ctx context.Context, limit int) ([]*model.Refund, error)
}

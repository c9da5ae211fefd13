package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/refund/model"
	"autoparts-returns-backend/internal/domains/refund/repository"
	"autoparts-returns-backend/internal/shared/utils"
	"autoparts-returns-backend/pkg/logger"
)

// OperatorReviewHandler surfaces a failed refund to operations. Failed
// refunds are never re-dispatched automatically; this task is the
// notification path, and the refund stays in the failed queue until an
// operator settles it manually.
type OperatorReviewHandler struct {
	refunds repository.RefundRepository
}

func NewOperatorReviewHandler(refunds repository.RefundRepository) *OperatorReviewHandler {
	return &OperatorReviewHandler{refunds: refunds}
}

func (h *OperatorReviewHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.OperatorReviewPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal operator review payload: %v: %w", err, asynq.SkipRetry)
	}

	refund, err := h.refunds.GetByID(ctx, payload.RefundID)
	if err != nil {
		if errors.Is(err, model.ErrRefundNotFound) {
			logger.Warn("Operator review for unknown refund", map[string]interface{}{
				"refund_id": payload.RefundID.String(),
			})
			return nil
		}
		return err
	}

	if refund.Status != model.RefundStatusFailed {
		// Settled between enqueue and execution; nothing to review.
		return nil
	}

	logger.ErrorWithFields("Refund requires operator review", model.ErrRefundProcessingFailed, map[string]interface{}{
		"refund_id": refund.ID.String(),
		"return_id": refund.ReturnID.String(),
		"amount":    refund.Amount.String(),
		"method":    refund.Method,
		"reason":    payload.Reason,
	})

	return nil
}

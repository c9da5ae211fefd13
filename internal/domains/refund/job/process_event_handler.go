package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/refund/model"
	"autoparts-returns-backend/internal/domains/refund/service"
	"autoparts-returns-backend/internal/shared/utils"
)

// ProcessRefundEventHandler applies one verified settlement webhook.
// The service dedupes against the processed-webhook log, so retries and
// redeliveries are harmless.
type ProcessRefundEventHandler struct {
	refundService service.RefundService
}

func NewProcessRefundEventHandler(refundService service.RefundService) *ProcessRefundEventHandler {
	return &ProcessRefundEventHandler{refundService: refundService}
}

func (h *ProcessRefundEventHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ProcessRefundEventPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal settlement event payload: %v: %w", err, asynq.SkipRetry)
	}

	return h.refundService.ProcessSettlementEvent(ctx, payload)
}

package job

import (
	"context"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/refund/service"
	"autoparts-returns-backend/pkg/logger"
)

// ReconcileRefundsHandler runs the periodic sweep over refunds stuck in
// processing, covering settlement webhooks that never arrived.
type ReconcileRefundsHandler struct {
	refundService service.RefundService
}

func NewReconcileRefundsHandler(refundService service.RefundService) *ReconcileRefundsHandler {
	return &ReconcileRefundsHandler{refundService: refundService}
}

func (h *ReconcileRefundsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	resolved, err := h.refundService.ReconcileProcessingRefunds(ctx)
	if err != nil {
		return err
	}

	if resolved > 0 {
		logger.Info("Reconciliation resolved refunds", map[string]interface{}{
			"resolved": resolved,
		})
	}
	return nil
}

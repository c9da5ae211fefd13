package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"autoparts-returns-backend/internal/config"
	"autoparts-returns-backend/internal/domains/refund/gateway"
	"autoparts-returns-backend/internal/domains/refund/model"
	"autoparts-returns-backend/internal/domains/refund/repository"
	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
	returnsrepo "autoparts-returns-backend/internal/domains/returns/repository"
	returnsservice "autoparts-returns-backend/internal/domains/returns/service"
	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/pkg/logger"
)

const reconcileBatchSize = 50

type refundService struct {
	refunds      repository.RefundRepository
	webhooks     repository.WebhookRepository
	returns      returnsrepo.ReturnRepository
	orchestrator *returnsservice.Orchestrator
	processor    gateway.RefundProcessor
	ledger       returnsservice.OrderLedger
	tasks        returnsservice.TaskEnqueuer
	policy       config.ReturnPolicyConfig
	now          func() time.Time
}

func NewRefundService(
	refunds repository.RefundRepository,
	webhooks repository.WebhookRepository,
	returns returnsrepo.ReturnRepository,
	orchestrator *returnsservice.Orchestrator,
	processor gateway.RefundProcessor,
	ledger returnsservice.OrderLedger,
	tasks returnsservice.TaskEnqueuer,
	policy config.ReturnPolicyConfig,
) RefundService {
	return &refundService{
		refunds:      refunds,
		webhooks:     webhooks,
		returns:      returns,
		orchestrator: orchestrator,
		processor:    processor,
		ledger:       ledger,
		tasks:        tasks,
		policy:       policy,
		now:          time.Now,
	}
}

// =====================================================
// INITIATE REFUND
// =====================================================

// InitiateRefund creates the single refund row for an approved return and,
// for the online method, dispatches it to the payment processor in the
// same call. A second call after settlement fails with ErrAlreadyRefunded;
// a call that finds an open refund returns it unchanged.
func (s *refundService) InitiateRefund(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req returnsmodel.InitiateRefundRequest) (*model.Refund, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ret, err := s.returns.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	refund, err := s.refunds.GetByReturnID(ctx, returnID)
	switch {
	case err == nil:
		if refund.IsSettled() {
			return nil, model.NewRefundError(model.ErrCodeAlreadyRefunded,
				"Refund has already been completed for this return", model.ErrAlreadyRefunded)
		}
		if refund.Status == model.RefundStatusFailed {
			return nil, model.NewRefundError(model.ErrCodeRefundProcessingFailed,
				"Refund previously failed and is awaiting operator review", model.ErrRefundProcessingFailed)
		}
		// Open refund. If the return already moved past approval this is a
		// duplicate call; otherwise a prior attempt crashed between the row
		// insert and the transition, so resume with the existing row.
		if ret.Status != returnsmodel.StatusInspectionApproved {
			return refund, nil
		}
	case errors.Is(err, model.ErrRefundNotFound):
		refund = nil
	default:
		return nil, err
	}

	if !ret.CanInitiateRefund() {
		return nil, returnsmodel.NewInvalidTransitionError(ret.Status, returnsmodel.StatusRefundInitiated)
	}

	order, err := s.ledger.GetOrder(ctx, ret.OrderID)
	if err != nil {
		return nil, returnsmodel.NewReturnError(returnsmodel.ErrCodeOrderLedgerUnavailable,
			"Could not read order for refund amount", returnsmodel.ErrOrderLedgerUnavailable)
	}

	amount, err := s.resolveAmount(ret, order, req.Amount)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = s.policy.DefaultRefundMethod
	}
	if method == model.RefundMethodOnline && order.PaymentID == "" {
		return nil, model.NewRefundError(model.ErrCodeManualRefundOnly,
			"Order has no processor payment reference; only a manual refund is possible", model.ErrManualRefundOnly)
	}

	if refund == nil {
		refund = &model.Refund{
			ID:          uuid.New(),
			ReturnID:    ret.ID,
			OrderID:     ret.OrderID,
			PaymentID:   order.PaymentID,
			Amount:      amount,
			Method:      method,
			Status:      model.RefundStatusPending,
			InitiatedBy: actor.ID,
			InitiatedAt: s.now(),
		}
		if err := s.refunds.Create(ctx, refund); err != nil {
			return nil, err
		}
	}

	err = s.orchestrator.Transition(ctx, ret, returnsmodel.StatusInspectionApproved, returnsmodel.StatusRefundInitiated, func(r *returnsmodel.ReturnRequest) {
		r.Refund = &returnsmodel.RefundSummary{
			RefundID: refund.ID.String(),
			Amount:   refund.Amount,
			Method:   refund.Method,
			Status:   refund.Status,
		}
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Refund initiated", map[string]interface{}{
		"refund_id":  refund.ID.String(),
		"return_id":  ret.ID.String(),
		"rma_number": ret.RMANumber,
		"amount":     refund.Amount.String(),
		"method":     refund.Method,
	})

	if refund.Method == model.RefundMethodManual {
		return refund, nil
	}

	return s.dispatchOnline(ctx, ret, refund)
}

// resolveAmount computes the refundable amount, capped by the order line
// total for the returned quantity.
func (s *refundService) resolveAmount(ret *returnsmodel.ReturnRequest, order *returnsmodel.LedgerOrder, override *decimal.Decimal) (decimal.Decimal, error) {
	item := order.Item(ret.SKU)
	if item == nil {
		return decimal.Zero, model.NewRefundError(model.ErrCodeInvalidRefundAmount,
			"Order line for the returned SKU no longer exists", model.ErrInvalidRefundAmount)
	}

	lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(ret.Quantity)))
	if override == nil {
		return lineTotal, nil
	}

	if override.LessThanOrEqual(decimal.Zero) || override.GreaterThan(lineTotal) {
		return decimal.Zero, model.NewRefundError(model.ErrCodeInvalidRefundAmount,
			fmt.Sprintf("Refund amount must be positive and at most %s", lineTotal.String()), model.ErrInvalidRefundAmount)
	}
	return *override, nil
}

// dispatchOnline sends the refund to the processor. Exactly one dispatch
// per refund row: any failure marks the row failed and hands it to the
// operator review queue instead of retrying.
func (s *refundService) dispatchOnline(ctx context.Context, ret *returnsmodel.ReturnRequest, refund *model.Refund) (*model.Refund, error) {
	pr, err := s.processor.CreateRefund(ctx, gateway.CreateRefundRequest{
		PaymentID: refund.PaymentID,
		Amount:    refund.Amount,
		Receipt:   ret.RMANumber,
		Notes: map[string]string{
			"return_id":  ret.ID.String(),
			"rma_number": ret.RMANumber,
		},
	})
	if err != nil {
		s.failRefund(ctx, refund, err)
		return nil, model.NewRefundError(model.ErrCodeRefundProcessingFailed,
			"Payment processor rejected the refund", fmt.Errorf("%w: %v", model.ErrRefundProcessingFailed, err))
	}

	if err := s.refunds.MarkProcessing(ctx, refund.ID, pr.RefundID); err != nil {
		return nil, err
	}
	now := s.now()
	refund.Status = model.RefundStatusProcessing
	refund.ProcessorRefundID = &pr.RefundID
	refund.ProcessingAt = &now

	if pr.Status == gateway.ProcessorStatusProcessed {
		if err := s.settleRefund(ctx, refund); err != nil {
			return nil, err
		}
	}

	return refund, nil
}

// failRefund marks the row failed and enqueues the operator review task.
// Both steps are best-effort; the caller already reports the failure.
func (s *refundService) failRefund(ctx context.Context, refund *model.Refund, cause error) {
	code := "dispatch_failed"
	message := cause.Error()
	var pErr *gateway.ProcessorError
	if errors.As(cause, &pErr) {
		if pErr.Code != "" {
			code = pErr.Code
		}
		message = pErr.Message
	}

	if err := s.refunds.MarkFailed(ctx, refund.ID, code, message); err != nil {
		logger.Error("Failed to mark refund as failed", err)
	}
	now := s.now()
	refund.Status = model.RefundStatusFailed
	refund.ErrorCode = &code
	refund.ErrorMessage = &message
	refund.FailedAt = &now

	s.enqueueOperatorReview(ctx, refund, message)
	s.appendNote(ctx, refund.ReturnID, fmt.Sprintf("Refund dispatch failed (%s): %s", code, message))
}

func (s *refundService) enqueueOperatorReview(ctx context.Context, refund *model.Refund, reason string) {
	payload, err := json.Marshal(model.OperatorReviewPayload{
		RefundID: refund.ID,
		ReturnID: refund.ReturnID,
		Reason:   reason,
	})
	if err != nil {
		logger.Error("Failed to marshal operator review payload", err)
		return
	}

	_, err = s.tasks.EnqueueContext(ctx,
		asynq.NewTask(shared.TypeRefundOperatorReview, payload),
		asynq.Queue(shared.QueueHigh),
		asynq.MaxRetry(5),
	)
	if err != nil {
		logger.Error("Failed to enqueue operator review task", err)
	}
}

// settleRefund moves the row to completed and advances the return to its
// final status. Tolerates the return already being settled by a racing
// webhook.
func (s *refundService) settleRefund(ctx context.Context, refund *model.Refund) error {
	if err := s.refunds.UpdateStatus(ctx, refund.ID, model.RefundStatusCompleted); err != nil {
		return err
	}
	now := s.now()
	refund.Status = model.RefundStatusCompleted
	refund.CompletedAt = &now

	_, err := s.orchestrator.TransitionByID(ctx, refund.ReturnID,
		returnsmodel.StatusRefundInitiated, returnsmodel.StatusRefundCompleted,
		func(r *returnsmodel.ReturnRequest) {
			if r.Refund != nil {
				r.Refund.Status = model.RefundStatusCompleted
			}
		})
	if err != nil {
		var retErr *returnsmodel.ReturnError
		if errors.As(err, &retErr) {
			logger.Warn("Return already past refund settlement", map[string]interface{}{
				"refund_id": refund.ID.String(),
				"return_id": refund.ReturnID.String(),
			})
			return nil
		}
		return err
	}

	logger.Info("Refund completed", map[string]interface{}{
		"refund_id": refund.ID.String(),
		"return_id": refund.ReturnID.String(),
		"method":    refund.Method,
	})
	return nil
}

// =====================================================
// MANUAL COMPLETION
// =====================================================

// MarkManualCompleted records an out-of-band refund (bank transfer, store
// credit) as settled. Admin only, irreversible, and guarded so that an
// already-completed refund reports ErrAlreadyRefunded.
func (s *refundService) MarkManualCompleted(ctx context.Context, actor shared.Actor, returnID uuid.UUID, operatorNote string) (*model.Refund, error) {
	if !actor.IsAdmin() {
		return nil, returnsmodel.NewReturnError(returnsmodel.ErrCodeUnauthorized,
			"Only admins may complete manual refunds", returnsmodel.ErrUnauthorized)
	}

	refund, err := s.refunds.GetByReturnID(ctx, returnID)
	if err != nil {
		if errors.Is(err, model.ErrRefundNotFound) {
			return nil, model.NewRefundError(model.ErrCodeRefundNotFound,
				"No refund exists for this return", model.ErrRefundNotFound)
		}
		return nil, err
	}

	if refund.Method != model.RefundMethodManual {
		return nil, model.NewRefundError(model.ErrCodeManualRefundOnly,
			"Online refunds settle via the processor, not manual completion", model.ErrManualRefundOnly)
	}

	if err := s.refunds.MarkManualCompleted(ctx, refund.ID, operatorNote); err != nil {
		if errors.Is(err, model.ErrAlreadyRefunded) {
			return nil, model.NewRefundError(model.ErrCodeAlreadyRefunded,
				"Refund has already been completed for this return", model.ErrAlreadyRefunded)
		}
		return nil, err
	}
	now := s.now()
	refund.Status = model.RefundStatusCompleted
	refund.OperatorNote = &operatorNote
	refund.CompletedAt = &now

	_, err = s.orchestrator.TransitionByID(ctx, returnID,
		returnsmodel.StatusRefundInitiated, returnsmodel.StatusRefundCompleted,
		func(r *returnsmodel.ReturnRequest) {
			if r.Refund != nil {
				r.Refund.Status = model.RefundStatusCompleted
			}
		})
	if err != nil {
		return nil, err
	}

	s.appendNote(ctx, returnID, fmt.Sprintf("Manual refund completed by %s: %s", actor.Email, operatorNote))

	logger.Info("Manual refund completed", map[string]interface{}{
		"refund_id": refund.ID.String(),
		"return_id": returnID.String(),
		"by":        actor.Email,
	})

	return refund, nil
}

// =====================================================
// SETTLEMENT WEBHOOK PROCESSING
// =====================================================

// ProcessSettlementEvent applies one verified settlement webhook. The
// processed-webhook log makes redelivery a no-op even across workers; a
// completed refund is never demoted by a late failure event.
func (s *refundService) ProcessSettlementEvent(ctx context.Context, payload model.ProcessRefundEventPayload) error {
	fresh, err := s.webhooks.Record(ctx, &model.ProcessedWebhook{
		ID:         uuid.New(),
		EventID:    payload.EventID,
		Gateway:    s.processor.GatewayName(),
		EventType:  payload.EventType,
		Body:       payload.Body,
		ReceivedAt: s.now(),
	})
	if err != nil {
		return err
	}
	if !fresh {
		logger.Info("Settlement webhook already processed", map[string]interface{}{
			"event_id": payload.EventID,
		})
		return nil
	}

	refund, err := s.refunds.GetByProcessorRefundID(ctx, payload.ProcessorRefundID)
	if err != nil {
		if errors.Is(err, model.ErrRefundNotFound) {
			logger.Warn("Settlement webhook for unknown refund", map[string]interface{}{
				"event_id":            payload.EventID,
				"processor_refund_id": payload.ProcessorRefundID,
			})
			return nil
		}
		return err
	}

	switch payload.EventType {
	case model.EventRefundProcessed:
		if refund.IsSettled() {
			return nil
		}
		return s.settleRefund(ctx, refund)

	case model.EventRefundFailed:
		if refund.IsSettled() {
			logger.Warn("Ignoring failure event for settled refund", map[string]interface{}{
				"refund_id": refund.ID.String(),
				"event_id":  payload.EventID,
			})
			return nil
		}
		code := payload.ErrorCode
		if code == "" {
			code = "settlement_failed"
		}
		message := payload.ErrorMessage
		if message == "" {
			message = "processor reported the refund as failed"
		}
		if err := s.refunds.MarkFailed(ctx, refund.ID, code, message); err != nil {
			return err
		}
		refund.Status = model.RefundStatusFailed
		s.enqueueOperatorReview(ctx, refund, message)
		s.appendNote(ctx, refund.ReturnID, fmt.Sprintf("Refund settlement failed (%s): %s", code, message))
		return nil

	default:
		logger.Warn("Unhandled settlement event type", map[string]interface{}{
			"event_type": payload.EventType,
			"event_id":   payload.EventID,
		})
		return nil
	}
}

// =====================================================
// RECONCILIATION
// =====================================================

// ReconcileProcessingRefunds polls the processor for refunds stuck in
// processing, covering webhooks that never arrived. Returns the number of
// refunds it settled or failed.
func (s *refundService) ReconcileProcessingRefunds(ctx context.Context) (int, error) {
	refunds, err := s.refunds.ListByStatus(ctx, model.RefundStatusProcessing, reconcileBatchSize)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, refund := range refunds {
		if refund.ProcessorRefundID == nil {
			continue
		}

		pr, err := s.processor.FetchRefund(ctx, *refund.ProcessorRefundID)
		if err != nil {
			logger.ErrorWithFields("Reconciliation fetch failed", err, map[string]interface{}{
				"refund_id":           refund.ID.String(),
				"processor_refund_id": *refund.ProcessorRefundID,
			})
			continue
		}

		switch pr.Status {
		case gateway.ProcessorStatusProcessed:
			if err := s.settleRefund(ctx, refund); err != nil {
				logger.ErrorWithFields("Reconciliation settle failed", err, map[string]interface{}{
					"refund_id": refund.ID.String(),
				})
				continue
			}
			resolved++
		case gateway.ProcessorStatusFailed:
			if err := s.refunds.MarkFailed(ctx, refund.ID, "settlement_failed", "processor reported the refund as failed during reconciliation"); err != nil {
				logger.ErrorWithFields("Reconciliation fail-mark failed", err, map[string]interface{}{
					"refund_id": refund.ID.String(),
				})
				continue
			}
			refund.Status = model.RefundStatusFailed
			s.enqueueOperatorReview(ctx, refund, "processor reported the refund as failed during reconciliation")
			s.appendNote(ctx, refund.ReturnID, "Refund settlement failed, found during reconciliation")
			resolved++
		}
	}

	if len(refunds) > 0 {
		logger.Info("Refund reconciliation pass finished", map[string]interface{}{
			"checked":  len(refunds),
			"resolved": resolved,
		})
	}
	return resolved, nil
}

// =====================================================
// OPERATOR QUERIES
// =====================================================

func (s *refundService) ListFailedRefunds(ctx context.Context, limit int) ([]*model.Refund, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.refunds.ListByStatus(ctx, model.RefundStatusFailed, limit)
}

func (s *refundService) appendNote(ctx context.Context, returnID uuid.UUID, text string) {
	note := returnsmodel.Note{
		At:   s.now(),
		By:   "system",
		Text: text,
	}
	if err := s.returns.AppendNote(ctx, returnID, note); err != nil {
		logger.Error("Failed to append return note", err)
	}
}

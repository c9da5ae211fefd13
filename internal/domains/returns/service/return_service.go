package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/xid"

	pickupmodel "autoparts-returns-backend/internal/domains/pickup/model"
	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/repository"
	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/pkg/logger"
)

// =====================================================
// RETURN SERVICE IMPLEMENTATION
// =====================================================
type returnService struct {
	repo         repository.ReturnRepository
	orchestrator *Orchestrator
	ledger       OrderLedger
	directory    Directory
	tasks        TaskEnqueuer
	policy       EligibilityPolicy
	now          func() time.Time
}

func NewReturnService(
	repo repository.ReturnRepository,
	orchestrator *Orchestrator,
	ledger OrderLedger,
	directory Directory,
	tasks TaskEnqueuer,
	policy EligibilityPolicy,
) ReturnService {
	return &returnService{
		repo:         repo,
		orchestrator: orchestrator,
		ledger:       ledger,
		directory:    directory,
		tasks:        tasks,
		policy:       policy,
		now:          time.Now,
	}
}

// =====================================================
// CREATE RETURN
// =====================================================

func (s *returnService) CreateReturn(ctx context.Context, actor shared.Actor, req model.CreateReturnRequest) (*model.ReturnRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewReturnError(model.ErrCodeInvalidStatus, "Invalid return request", err)
	}

	order, err := s.ledger.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			return nil, model.NewReturnError(model.ErrCodeInvalidOrderState, "Order does not exist", model.ErrOrderNotFound)
		}
		logger.Error("Order ledger lookup failed", err)
		return nil, model.NewReturnError(model.ErrCodeOrderLedgerUnavailable, "Could not verify order", model.ErrOrderLedgerUnavailable)
	}

	// Customers may only open returns against their own orders.
	if !actor.IsStaff() && order.CustomerID != actor.ID {
		return nil, model.NewReturnError(model.ErrCodeUnauthorized, "Order does not belong to requester", model.ErrUnauthorized)
	}

	item := order.Item(req.SKU)
	if item == nil || !order.IsDelivered() {
		return nil, model.NewReturnError(model.ErrCodeInvalidOrderState,
			fmt.Sprintf("SKU %s was not delivered on this order", req.SKU), model.ErrInvalidOrderState)
	}

	open, err := s.repo.HasOpenReturn(ctx, req.OrderID, req.SKU)
	if err != nil {
		return nil, fmt.Errorf("failed to check for open returns: %w", err)
	}
	if open {
		return nil, model.NewDuplicateRequestError(req.OrderID.String(), req.SKU)
	}

	now := s.now()
	ret := &model.ReturnRequest{
		ID:                uuid.New(),
		RMANumber:         newRMANumber(),
		OrderID:           req.OrderID,
		CustomerID:        order.CustomerID,
		SKU:               req.SKU,
		Quantity:          req.Quantity,
		Status:            model.StatusRequested,
		Version:           1,
		ReturnReason:      req.Reason,
		ReturnDescription: req.Description,
		ReturnImages:      req.Images,
		Timestamps: model.Timestamps{
			RequestedAt: now,
		},
		Notes: []model.Note{},
	}

	if err := s.repo.CreateReturn(ctx, ret); err != nil {
		// A concurrent create for the same order line surfaces here as
		// the storage-level duplicate, after both passed the check above.
		var retErr *model.ReturnError
		if errors.As(err, &retErr) {
			return nil, retErr
		}
		return nil, fmt.Errorf("failed to persist return request: %w", err)
	}

	logger.Info("Return request created", map[string]interface{}{
		"return_id":  ret.ID.String(),
		"rma_number": ret.RMANumber,
		"order_id":   ret.OrderID.String(),
		"sku":        ret.SKU,
	})

	return ret, nil
}

// newRMANumber builds the human-facing reference, e.g. RMA-C9G2VX0P4QT0BN38E2R0.
func newRMANumber() string {
	return "RMA-" + strings.ToUpper(xid.New().String())
}

// =====================================================
// VALIDATE RETURN
// =====================================================

// ValidateReturn runs the eligibility evaluation and routes the return to
// validated or terminal rejected. The full evaluation outcome is recorded
// on the record either way.
func (s *returnService) ValidateReturn(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*model.ReturnRequest, error) {
	ret, err := s.repo.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	order, err := s.ledger.GetOrder(ctx, ret.OrderID)
	if err != nil {
		logger.Error("Order ledger lookup failed during validation", err)
		return nil, model.NewReturnError(model.ErrCodeOrderLedgerUnavailable, "Could not verify order", model.ErrOrderLedgerUnavailable)
	}

	eligibility := s.policy.Evaluate(order, ret.SKU, ret.Quantity, s.now())

	target := model.StatusValidated
	if !eligibility.IsEligible {
		target = model.StatusRejected
	}

	err = s.orchestrator.Transition(ctx, ret, model.StatusRequested, target, func(r *model.ReturnRequest) {
		eligibility.Apply(r)
		r.DealerID = order.DealerID
	})
	if err != nil {
		return nil, err
	}

	if !eligibility.IsEligible {
		s.appendNote(ctx, ret.ID, "system", "Return rejected: "+eligibility.Reason)
	}

	return ret, nil
}

// =====================================================
// CANCEL RETURN
// =====================================================

func (s *returnService) CancelReturn(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req model.CancelReturnRequest) (*model.ReturnRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewReturnError(model.ErrCodeInvalidStatus, "Invalid cancellation request", err)
	}

	ret, err := s.repo.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if !actor.IsStaff() && ret.CustomerID != actor.ID {
		return nil, model.NewReturnError(model.ErrCodeUnauthorized, "Return does not belong to requester", model.ErrUnauthorized)
	}

	// Once the item is physically picked up the return must run to a
	// terminal state; cancellation is no longer possible.
	if !ret.CanCancel() {
		return nil, model.NewReturnError(model.ErrCodeCancellationWindowClosed,
			"Return can no longer be cancelled", model.ErrCancellationWindowClosed)
	}

	if err := s.orchestrator.Transition(ctx, ret, ret.Status, model.StatusCancelled, nil); err != nil {
		return nil, err
	}

	s.appendNote(ctx, ret.ID, actor.ID.String(), "Return cancelled: "+req.Reason)

	// A cancellation after booking leaves a live courier order at the
	// partner; hand it to the worker to cancel.
	if ret.Pickup != nil && ret.Pickup.PickupID != "" {
		s.enqueuePickupCancellation(ctx, ret)
	}

	return ret, nil
}

func (s *returnService) enqueuePickupCancellation(ctx context.Context, ret *model.ReturnRequest) {
	payload, err := json.Marshal(pickupmodel.CancelPickupPayload{
		ReturnID: ret.ID,
		PickupID: ret.Pickup.PickupID,
	})
	if err != nil {
		logger.Error("Failed to marshal pickup cancellation payload", err)
		return
	}

	task := asynq.NewTask(shared.TypeCancelPickup, payload)
	_, err = s.tasks.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(1*time.Minute),
	)
	if err != nil {
		// The return is already cancelled; only the partner booking is
		// left dangling, which an operator must chase by hand.
		logger.ErrorWithFields("Failed to enqueue pickup cancellation", err, map[string]interface{}{
			"return_id": ret.ID.String(),
			"pickup_id": ret.Pickup.PickupID,
		})
		s.appendNote(ctx, ret.ID, "system",
			"Partner booking "+ret.Pickup.PickupID+" could not be queued for cancellation; operator attention required")
	}
}

// =====================================================
// READS
// =====================================================

func (s *returnService) GetReturn(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*model.ReturnDetailResponse, error) {
	ret, err := s.repo.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if !actor.IsStaff() && ret.CustomerID != actor.ID {
		return nil, model.NewReturnError(model.ErrCodeUnauthorized, "Return does not belong to requester", model.ErrUnauthorized)
	}

	detail := &model.ReturnDetailResponse{ReturnRequest: ret}

	// Directory enrichment is best effort; a down directory degrades the
	// read to bare IDs.
	if customer, err := s.directory.GetCustomer(ctx, ret.CustomerID); err == nil {
		detail.Customer = customer
	}
	if ret.DealerID != nil {
		if dealer, err := s.directory.GetDealer(ctx, *ret.DealerID); err == nil {
			detail.Dealer = dealer
		}
	}

	return detail, nil
}

func (s *returnService) ListReturns(ctx context.Context, actor shared.Actor, filter model.ListReturnsFilter, page, limit int) (*model.ListReturnsResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, model.NewReturnError(model.ErrCodeInvalidStatus, "Invalid list filter", err)
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	// Customers only ever see their own returns.
	if !actor.IsStaff() {
		filter.CustomerID = &actor.ID
	}

	returns, total, err := s.repo.ListReturns(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}

	return &model.ListReturnsResponse{
		Returns: returns,
		Page:    page,
		Limit:   limit,
		Total:   total,
	}, nil
}

// =====================================================
// NOTES
// =====================================================

func (s *returnService) AddNote(ctx context.Context, actor shared.Actor, returnID uuid.UUID, text string) error {
	if strings.TrimSpace(text) == "" {
		return model.NewReturnError(model.ErrCodeInvalidStatus, "Note text is required", nil)
	}

	if _, err := s.repo.GetReturnByID(ctx, returnID); err != nil {
		return err
	}

	return s.repo.AppendNote(ctx, returnID, model.Note{
		At:   s.now(),
		By:   actor.ID.String(),
		Text: text,
	})
}

func (s *returnService) appendNote(ctx context.Context, returnID uuid.UUID, by, text string) {
	err := s.repo.AppendNote(ctx, returnID, model.Note{
		At:   s.now(),
		By:   by,
		Text: text,
	})
	if err != nil {
		logger.Error("Failed to append note", err)
	}
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoparts-returns-backend/internal/config"
	"autoparts-returns-backend/internal/domains/refund/gateway"
	gatewaymock "autoparts-returns-backend/internal/domains/refund/gateway/mock"
	"autoparts-returns-backend/internal/domains/refund/model"
	refundmock "autoparts-returns-backend/internal/domains/refund/repository/mock"
	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
	returnsmock "autoparts-returns-backend/internal/domains/returns/repository/mock"
	returnsservice "autoparts-returns-backend/internal/domains/returns/service"
	"autoparts-returns-backend/internal/shared"
)

// =====================================================
// TEST DOUBLES
// =====================================================

type captureEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (c *captureEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Type: task.Type()}, nil
}

func (c *captureEnqueuer) taskTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, task := range c.tasks {
		out = append(out, task.Type())
	}
	return out
}

type stubLedger struct {
	orders map[uuid.UUID]*returnsmodel.LedgerOrder
}

func (s *stubLedger) GetOrder(ctx context.Context, orderID uuid.UUID) (*returnsmodel.LedgerOrder, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, returnsmodel.ErrOrderNotFound
	}
	return order, nil
}

func staffActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Email: "staff@example.com", Role: shared.RoleStaff}
}

func adminActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Email: "ops@example.com", Role: shared.RoleAdmin}
}

// =====================================================
// FIXTURE
// =====================================================

type refundFixture struct {
	returns   *returnsmock.MemoryReturnRepository
	refunds   *refundmock.MemoryRefundRepository
	webhooks  *refundmock.MemoryWebhookRepository
	processor *gatewaymock.MockRefundProcessor
	ledger    *stubLedger
	tasks     *captureEnqueuer
	svc       RefundService
}

func newRefundFixture(t *testing.T) *refundFixture {
	t.Helper()

	f := &refundFixture{
		returns:   returnsmock.NewMemoryReturnRepository(),
		refunds:   refundmock.NewMemoryRefundRepository(),
		webhooks:  refundmock.NewMemoryWebhookRepository(),
		processor: gatewaymock.NewMockRefundProcessor(),
		ledger:    &stubLedger{orders: make(map[uuid.UUID]*returnsmodel.LedgerOrder)},
		tasks:     &captureEnqueuer{},
	}
	f.svc = NewRefundService(
		f.refunds, f.webhooks, f.returns,
		returnsservice.NewOrchestrator(f.returns),
		f.processor, f.ledger, f.tasks,
		config.ReturnPolicyConfig{
			ReturnWindowDays:    7,
			DefaultRefundMethod: model.RefundMethodOnline,
			PickupSLADays:       3,
		},
	)
	return f
}

// seedApprovedReturn stores a return at inspection_approved backed by a
// paid ledger order: 2 x 1499.50, so the computed refund is 2999.
func (f *refundFixture) seedApprovedReturn(t *testing.T) *returnsmodel.ReturnRequest {
	t.Helper()

	deliveredAt := time.Now().Add(-72 * time.Hour)
	inspectedAt := time.Now().Add(-time.Hour)
	inspector := uuid.New()

	order := &returnsmodel.LedgerOrder{
		ID:          uuid.New(),
		CustomerID:  uuid.New(),
		PaymentID:   "pay_Hr4hLDDEs1mVpG",
		DeliveredAt: &deliveredAt,
		Items: []returnsmodel.LedgerItem{
			{
				SKU:        "BRK-PAD-001",
				Quantity:   2,
				UnitPrice:  decimal.NewFromFloat(1499.50),
				Returnable: true,
			},
		},
	}
	f.ledger.orders[order.ID] = order

	ret := &returnsmodel.ReturnRequest{
		ID:         uuid.New(),
		RMANumber:  "RMA-REFUND0001",
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		SKU:        "BRK-PAD-001",
		Quantity:   2,
		Status:     returnsmodel.StatusInspectionApproved,
		Version:    1,
		Inspection: &returnsmodel.Inspection{
			SKUMatch:    true,
			IsApproved:  true,
			Condition:   returnsmodel.ConditionUsed,
			InspectedAt: &inspectedAt,
			InspectedBy: &inspector,
		},
		Timestamps: returnsmodel.Timestamps{RequestedAt: time.Now().Add(-48 * time.Hour)},
	}
	require.NoError(t, f.returns.CreateReturn(context.Background(), ret))
	return ret
}

// =====================================================
// INITIATION
// =====================================================

func TestInitiateRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("online refund settles end to end", func(t *testing.T) {
		f := newRefundFixture(t)
		ret := f.seedApprovedReturn(t)

		refund, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)

		assert.Equal(t, model.RefundStatusCompleted, refund.Status)
		assert.Equal(t, model.RefundMethodOnline, refund.Method)
		assert.True(t, refund.Amount.Equal(decimal.NewFromInt(2999)), "unit price x quantity")
		require.NotNil(t, refund.ProcessorRefundID)
		assert.Equal(t, "pay_Hr4hLDDEs1mVpG", refund.PaymentID)

		stored, err := f.returns.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, returnsmodel.StatusRefundCompleted, stored.Status)
		require.NotNil(t, stored.Refund)
		assert.Equal(t, refund.ID.String(), stored.Refund.RefundID)
	})

	t.Run("settlement in flight leaves processing state", func(t *testing.T) {
		f := newRefundFixture(t)
		f.processor.CreateStatus = gateway.ProcessorStatusPending
		ret := f.seedApprovedReturn(t)

		refund, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)

		assert.Equal(t, model.RefundStatusProcessing, refund.Status)

		stored, err := f.returns.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, returnsmodel.StatusRefundInitiated, stored.Status)
	})

	t.Run("duplicate initiation returns the open refund untouched", func(t *testing.T) {
		f := newRefundFixture(t)
		f.processor.CreateStatus = gateway.ProcessorStatusPending
		ret := f.seedApprovedReturn(t)

		first, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)

		second, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, f.processor.CallCount, "exactly one dispatch per refund")
	})

	t.Run("one refund row per return, enforced by storage", func(t *testing.T) {
		// Two initiations racing past the read-before-create both reach
		// the insert; the unique return_id hands the loser a typed error.
		f := newRefundFixture(t)
		ret := f.seedApprovedReturn(t)

		first := &model.Refund{
			ID:          uuid.New(),
			ReturnID:    ret.ID,
			OrderID:     ret.OrderID,
			Amount:      decimal.NewFromInt(2999),
			Method:      model.RefundMethodOnline,
			Status:      model.RefundStatusPending,
			InitiatedAt: time.Now(),
		}
		require.NoError(t, f.refunds.Create(ctx, first))

		loser := &model.Refund{
			ID:          uuid.New(),
			ReturnID:    ret.ID,
			OrderID:     ret.OrderID,
			Amount:      decimal.NewFromInt(2999),
			Method:      model.RefundMethodOnline,
			Status:      model.RefundStatusPending,
			InitiatedAt: time.Now(),
		}
		err := f.refunds.Create(ctx, loser)

		var refErr *model.RefundError
		require.ErrorAs(t, err, &refErr)
		assert.Equal(t, model.ErrCodeAlreadyRefunded, refErr.Code)
		assert.ErrorIs(t, err, model.ErrAlreadyRefunded)
	})

	t.Run("a settled refund is never dispatched twice", func(t *testing.T) {
		f := newRefundFixture(t)
		ret := f.seedApprovedReturn(t)

		_, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)

		_, err = f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.ErrorIs(t, err, model.ErrAlreadyRefunded)
		assert.Equal(t, 1, f.processor.CallCount)
	})

	t.Run("requires an approved inspection", func(t *testing.T) {
		f := newRefundFixture(t)
		ret := f.seedApprovedReturn(t)
		ret.Status = returnsmodel.StatusInspectionRejected
		ret.Inspection.IsApproved = false
		require.NoError(t, f.returns.UpdateWithVersion(ctx, ret))

		_, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})

		var retErr *returnsmodel.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, returnsmodel.ErrCodeInvalidTransition, retErr.Code)
		assert.Zero(t, f.processor.CallCount, "no money moves for a rejected inspection")

		_, err = f.refunds.GetByReturnID(ctx, ret.ID)
		assert.ErrorIs(t, err, model.ErrRefundNotFound)
	})

	t.Run("amount override must stay within the line total", func(t *testing.T) {
		f := newRefundFixture(t)
		ret := f.seedApprovedReturn(t)

		over := decimal.NewFromInt(5000)
		_, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{Amount: &over})
		require.ErrorIs(t, err, model.ErrInvalidRefundAmount)

		negative := decimal.NewFromInt(-1)
		_, err = f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{Amount: &negative})
		require.ErrorIs(t, err, model.ErrInvalidRefundAmount)

		_, err = f.refunds.GetByReturnID(ctx, ret.ID)
		assert.ErrorIs(t, err, model.ErrRefundNotFound, "no row for a rejected amount")

		partial := decimal.NewFromInt(1000)
		refund, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{Amount: &partial})
		require.NoError(t, err)
		assert.True(t, refund.Amount.Equal(partial))
	})

	t.Run("online refund needs a payment reference", func(t *testing.T) {
		f := newRefundFixture(t)
		ret := f.seedApprovedReturn(t)
		f.ledger.orders[ret.OrderID].PaymentID = ""

		_, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.ErrorIs(t, err, model.ErrManualRefundOnly)
	})

	t.Run("processor rejection parks the refund for an operator", func(t *testing.T) {
		f := newRefundFixture(t)
		f.processor.FailPermanent = true
		ret := f.seedApprovedReturn(t)

		_, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.ErrorIs(t, err, model.ErrRefundProcessingFailed)

		refund, err := f.refunds.GetByReturnID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusFailed, refund.Status)
		require.NotNil(t, refund.ErrorCode)
		assert.Equal(t, "BAD_REQUEST_ERROR", *refund.ErrorCode)

		assert.Equal(t, []string{shared.TypeRefundOperatorReview}, f.tasks.taskTypes(),
			"failed refunds go to a person, never an automatic retry")

		stored, err := f.returns.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, returnsmodel.StatusRefundInitiated, stored.Status)
		require.NotEmpty(t, stored.Notes)
		assert.Contains(t, stored.Notes[len(stored.Notes)-1].Text, "Refund dispatch failed")
	})

	t.Run("a failed refund is not re-initiated", func(t *testing.T) {
		f := newRefundFixture(t)
		f.processor.FailPermanent = true
		ret := f.seedApprovedReturn(t)

		_, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.Error(t, err)

		f.processor.FailPermanent = false
		_, err = f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.ErrorIs(t, err, model.ErrRefundProcessingFailed)
		assert.Equal(t, 1, f.processor.CallCount, "operator review owns the failed row")
	})
}

// =====================================================
// MANUAL COMPLETION
// =====================================================

func TestMarkManualCompleted(t *testing.T) {
	ctx := context.Background()

	initiateManual := func(t *testing.T, f *refundFixture) *returnsmodel.ReturnRequest {
		t.Helper()
		ret := f.seedApprovedReturn(t)
		refund, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID,
			returnsmodel.InitiateRefundRequest{Method: model.RefundMethodManual})
		require.NoError(t, err)
		require.Equal(t, model.RefundStatusPending, refund.Status)
		require.Zero(t, f.processor.CallCount, "manual refunds never touch the processor")
		return ret
	}

	t.Run("admin settles a manual refund once", func(t *testing.T) {
		f := newRefundFixture(t)
		ret := initiateManual(t, f)
		admin := adminActor()

		refund, err := f.svc.MarkManualCompleted(ctx, admin, ret.ID, "NEFT transfer ref 884211")
		require.NoError(t, err)

		assert.Equal(t, model.RefundStatusCompleted, refund.Status)
		require.NotNil(t, refund.OperatorNote)
		assert.Equal(t, "NEFT transfer ref 884211", *refund.OperatorNote)

		stored, err := f.returns.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, returnsmodel.StatusRefundCompleted, stored.Status)
		require.NotEmpty(t, stored.Notes)
		assert.Contains(t, stored.Notes[len(stored.Notes)-1].Text, admin.Email)

		_, err = f.svc.MarkManualCompleted(ctx, admin, ret.ID, "double entry")
		assert.ErrorIs(t, err, model.ErrAlreadyRefunded)
	})

	t.Run("staff cannot settle manual refunds", func(t *testing.T) {
		f := newRefundFixture(t)
		ret := initiateManual(t, f)

		_, err := f.svc.MarkManualCompleted(ctx, staffActor(), ret.ID, "trying anyway")
		assert.ErrorIs(t, err, returnsmodel.ErrUnauthorized)
	})

	t.Run("online refunds settle via the processor", func(t *testing.T) {
		f := newRefundFixture(t)
		f.processor.CreateStatus = gateway.ProcessorStatusPending
		ret := f.seedApprovedReturn(t)
		_, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)

		_, err = f.svc.MarkManualCompleted(ctx, adminActor(), ret.ID, "should not work")
		assert.ErrorIs(t, err, model.ErrManualRefundOnly)
	})

	t.Run("unknown return", func(t *testing.T) {
		f := newRefundFixture(t)

		_, err := f.svc.MarkManualCompleted(ctx, adminActor(), uuid.New(), "nothing here")
		assert.ErrorIs(t, err, model.ErrRefundNotFound)
	})
}

// =====================================================
// SETTLEMENT EVENTS
// =====================================================

func TestProcessSettlementEvent(t *testing.T) {
	ctx := context.Background()

	dispatchProcessing := func(t *testing.T, f *refundFixture) (*returnsmodel.ReturnRequest, *model.Refund) {
		t.Helper()
		f.processor.CreateStatus = gateway.ProcessorStatusPending
		ret := f.seedApprovedReturn(t)
		refund, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)
		require.Equal(t, model.RefundStatusProcessing, refund.Status)
		return ret, refund
	}

	t.Run("processed event completes the refund and the return", func(t *testing.T) {
		f := newRefundFixture(t)
		ret, refund := dispatchProcessing(t, f)

		err := f.svc.ProcessSettlementEvent(ctx, model.ProcessRefundEventPayload{
			EventID:           "evt_0001",
			EventType:         model.EventRefundProcessed,
			ProcessorRefundID: *refund.ProcessorRefundID,
		})
		require.NoError(t, err)

		stored, err := f.refunds.GetByID(ctx, refund.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusCompleted, stored.Status)
		assert.NotNil(t, stored.CompletedAt)

		storedRet, err := f.returns.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, returnsmodel.StatusRefundCompleted, storedRet.Status)
	})

	t.Run("redelivered event is a no-op", func(t *testing.T) {
		f := newRefundFixture(t)
		_, refund := dispatchProcessing(t, f)

		payload := model.ProcessRefundEventPayload{
			EventID:           "evt_0002",
			EventType:         model.EventRefundProcessed,
			ProcessorRefundID: *refund.ProcessorRefundID,
		}
		require.NoError(t, f.svc.ProcessSettlementEvent(ctx, payload))
		require.NoError(t, f.svc.ProcessSettlementEvent(ctx, payload))

		stored, err := f.refunds.GetByID(ctx, refund.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusCompleted, stored.Status)
	})

	t.Run("failed event parks the refund for an operator", func(t *testing.T) {
		f := newRefundFixture(t)
		ret, refund := dispatchProcessing(t, f)

		err := f.svc.ProcessSettlementEvent(ctx, model.ProcessRefundEventPayload{
			EventID:           "evt_0003",
			EventType:         model.EventRefundFailed,
			ProcessorRefundID: *refund.ProcessorRefundID,
			ErrorCode:         "GATEWAY_ERROR",
			ErrorMessage:      "issuing bank declined the credit",
		})
		require.NoError(t, err)

		stored, err := f.refunds.GetByID(ctx, refund.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusFailed, stored.Status)
		require.NotNil(t, stored.ErrorCode)
		assert.Equal(t, "GATEWAY_ERROR", *stored.ErrorCode)

		assert.Contains(t, f.tasks.taskTypes(), shared.TypeRefundOperatorReview)

		storedRet, err := f.returns.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, returnsmodel.StatusRefundInitiated, storedRet.Status,
			"a person decides what happens to a failed settlement")
	})

	t.Run("completed wins over a late failure event", func(t *testing.T) {
		f := newRefundFixture(t)
		_, refund := dispatchProcessing(t, f)

		require.NoError(t, f.svc.ProcessSettlementEvent(ctx, model.ProcessRefundEventPayload{
			EventID:           "evt_0004",
			EventType:         model.EventRefundProcessed,
			ProcessorRefundID: *refund.ProcessorRefundID,
		}))

		require.NoError(t, f.svc.ProcessSettlementEvent(ctx, model.ProcessRefundEventPayload{
			EventID:           "evt_0005",
			EventType:         model.EventRefundFailed,
			ProcessorRefundID: *refund.ProcessorRefundID,
		}))

		stored, err := f.refunds.GetByID(ctx, refund.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusCompleted, stored.Status, "money already moved")
		assert.NotContains(t, f.tasks.taskTypes(), shared.TypeRefundOperatorReview)
	})

	t.Run("unknown processor refund is logged and dropped", func(t *testing.T) {
		f := newRefundFixture(t)

		err := f.svc.ProcessSettlementEvent(ctx, model.ProcessRefundEventPayload{
			EventID:           "evt_0006",
			EventType:         model.EventRefundProcessed,
			ProcessorRefundID: "rfnd_unknown",
		})
		assert.NoError(t, err, "not our event; retrying will not help")
	})
}

// =====================================================
// RECONCILIATION
// =====================================================

func TestReconcileProcessingRefunds(t *testing.T) {
	ctx := context.Background()

	t.Run("settles refunds whose webhook never arrived", func(t *testing.T) {
		f := newRefundFixture(t)
		f.processor.CreateStatus = gateway.ProcessorStatusPending
		ret := f.seedApprovedReturn(t)
		refund, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)

		f.processor.SettleRefund(*refund.ProcessorRefundID, gateway.ProcessorStatusProcessed)

		resolved, err := f.svc.ReconcileProcessingRefunds(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, resolved)

		stored, err := f.refunds.GetByID(ctx, refund.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusCompleted, stored.Status)

		storedRet, err := f.returns.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, returnsmodel.StatusRefundCompleted, storedRet.Status)
	})

	t.Run("flags refunds the processor reports as failed", func(t *testing.T) {
		f := newRefundFixture(t)
		f.processor.CreateStatus = gateway.ProcessorStatusPending
		ret := f.seedApprovedReturn(t)
		refund, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)

		f.processor.SettleRefund(*refund.ProcessorRefundID, gateway.ProcessorStatusFailed)

		resolved, err := f.svc.ReconcileProcessingRefunds(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, resolved)

		stored, err := f.refunds.GetByID(ctx, refund.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusFailed, stored.Status)
		assert.Contains(t, f.tasks.taskTypes(), shared.TypeRefundOperatorReview)
	})

	t.Run("still-pending refunds stay in processing", func(t *testing.T) {
		f := newRefundFixture(t)
		f.processor.CreateStatus = gateway.ProcessorStatusPending
		ret := f.seedApprovedReturn(t)
		refund, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
		require.NoError(t, err)

		resolved, err := f.svc.ReconcileProcessingRefunds(ctx)
		require.NoError(t, err)
		assert.Zero(t, resolved)

		stored, err := f.refunds.GetByID(ctx, refund.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusProcessing, stored.Status)
	})
}

// =====================================================
// OPERATOR QUERIES
// =====================================================

func TestListFailedRefunds(t *testing.T) {
	ctx := context.Background()
	f := newRefundFixture(t)
	f.processor.FailPermanent = true
	ret := f.seedApprovedReturn(t)

	_, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
	require.Error(t, err)

	failed, err := f.svc.ListFailedRefunds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, model.RefundStatusFailed, failed[0].Status)
}

// =====================================================
// CRASH RECOVERY
// =====================================================

// A crash between the refund row insert and the lifecycle transition
// leaves an open row with the return still at inspection_approved. The
// next initiation call must resume with that row, not create a second.
func TestInitiateRefundResumesAfterCrash(t *testing.T) {
	ctx := context.Background()
	f := newRefundFixture(t)
	ret := f.seedApprovedReturn(t)

	orphan := &model.Refund{
		ID:          uuid.New(),
		ReturnID:    ret.ID,
		OrderID:     ret.OrderID,
		PaymentID:   "pay_Hr4hLDDEs1mVpG",
		Amount:      decimal.NewFromInt(2999),
		Method:      model.RefundMethodOnline,
		Status:      model.RefundStatusPending,
		InitiatedBy: uuid.New(),
		InitiatedAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, f.refunds.Create(ctx, orphan))

	refund, err := f.svc.InitiateRefund(ctx, staffActor(), ret.ID, returnsmodel.InitiateRefundRequest{})
	require.NoError(t, err)

	assert.Equal(t, orphan.ID, refund.ID, "the orphaned row is resumed, not duplicated")
	assert.Equal(t, model.RefundStatusCompleted, refund.Status)
	assert.Equal(t, 1, f.processor.CallCount)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pickupmodel "autoparts-returns-backend/internal/domains/pickup/model"
	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/repository/mock"
	"autoparts-returns-backend/internal/shared"
)

// =====================================================
// OUTBOUND PORT STUBS
// =====================================================

type stubLedger struct {
	orders map[uuid.UUID]*model.LedgerOrder
	err    error
}

func newStubLedger(orders ...*model.LedgerOrder) *stubLedger {
	s := &stubLedger{orders: make(map[uuid.UUID]*model.LedgerOrder)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *stubLedger) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.LedgerOrder, error) {
	if s.err != nil {
		return nil, s.err
	}
	order, ok := s.orders[orderID]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

type stubDirectory struct{}

func (stubDirectory) GetCustomer(ctx context.Context, customerID uuid.UUID) (*model.Party, error) {
	return &model.Party{ID: customerID, Name: "Asha Auto Traders"}, nil
}

func (stubDirectory) GetDealer(ctx context.Context, dealerID uuid.UUID) (*model.Party, error) {
	return &model.Party{ID: dealerID, Name: "Verma Spares"}, nil
}

type captureEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	fail  bool
}

func (c *captureEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errors.New("redis unreachable")
	}
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Type: task.Type()}, nil
}

// blindDuplicateCheckRepo never sees open returns, so the service-level
// duplicate check passes and creation relies on storage uniqueness alone.
type blindDuplicateCheckRepo struct {
	*mock.MemoryReturnRepository
}

func (r *blindDuplicateCheckRepo) HasOpenReturn(ctx context.Context, orderID uuid.UUID, sku string) (bool, error) {
	return false, nil
}

func customerActor(id uuid.UUID) shared.Actor {
	return shared.Actor{ID: id, Email: "customer@example.com", Role: shared.RoleCustomer}
}

func staffActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Email: "staff@example.com", Role: shared.RoleStaff}
}

// =====================================================
// FIXTURE
// =====================================================

type returnFixture struct {
	repo   *mock.MemoryReturnRepository
	ledger *stubLedger
	tasks  *captureEnqueuer
	svc    ReturnService
	order  *model.LedgerOrder
}

func newReturnFixture(t *testing.T, deliveredAgo time.Duration) *returnFixture {
	t.Helper()

	deliveredAt := time.Now().Add(-deliveredAgo)
	order := deliveredOrder(deliveredAt)
	order.DealerID = ptrUUID(uuid.New())

	repo := mock.NewMemoryReturnRepository()
	ledger := newStubLedger(order)
	tasks := &captureEnqueuer{}
	svc := NewReturnService(repo, NewOrchestrator(repo), ledger, stubDirectory{}, tasks,
		EligibilityPolicy{ReturnWindowDays: 7})

	return &returnFixture{repo: repo, ledger: ledger, tasks: tasks, svc: svc, order: order}
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }

func validCreateRequest(orderID uuid.UUID) model.CreateReturnRequest {
	return model.CreateReturnRequest{
		OrderID:  orderID,
		SKU:      "BRK-PAD-001",
		Quantity: 2,
		Reason:   "pads glazed after first fitment",
	}
}

// =====================================================
// CREATE
// =====================================================

func TestCreateReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a requested return with an RMA number", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)

		ret, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		require.NoError(t, err)

		assert.Equal(t, model.StatusRequested, ret.Status)
		assert.Equal(t, 1, ret.Version)
		assert.Equal(t, f.order.CustomerID, ret.CustomerID)
		assert.Regexp(t, `^RMA-[0-9A-Z]{20}$`, ret.RMANumber)
		assert.False(t, ret.Timestamps.RequestedAt.IsZero())
		assert.Nil(t, ret.DealerID, "dealer is only assigned at validation")
	})

	t.Run("rejects a malformed request", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		req := validCreateRequest(f.order.ID)
		req.Quantity = 0

		_, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), req)

		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodeInvalidStatus, retErr.Code)
	})

	t.Run("rejects an unknown order", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)

		_, err := f.svc.CreateReturn(ctx, staffActor(), validCreateRequest(uuid.New()))

		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodeInvalidOrderState, retErr.Code)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("customers may only touch their own orders", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)

		_, err := f.svc.CreateReturn(ctx, customerActor(uuid.New()), validCreateRequest(f.order.ID))
		assert.ErrorIs(t, err, model.ErrUnauthorized)

		_, err = f.svc.CreateReturn(ctx, staffActor(), validCreateRequest(f.order.ID))
		assert.NoError(t, err, "staff may open returns on behalf of customers")
	})

	t.Run("rejects an sku that was not delivered", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		req := validCreateRequest(f.order.ID)
		req.SKU = "CLT-KIT-900"

		_, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), req)
		assert.ErrorIs(t, err, model.ErrInvalidOrderState)
	})

	t.Run("rejects an undelivered order", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		f.order.DeliveredAt = nil

		_, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		assert.ErrorIs(t, err, model.ErrInvalidOrderState)
	})

	t.Run("one open return per order and sku", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		actor := customerActor(f.order.CustomerID)

		_, err := f.svc.CreateReturn(ctx, actor, validCreateRequest(f.order.ID))
		require.NoError(t, err)

		_, err = f.svc.CreateReturn(ctx, actor, validCreateRequest(f.order.ID))
		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodeDuplicateRequest, retErr.Code)
	})

	t.Run("a racing create loses with the duplicate error", func(t *testing.T) {
		// Both writers pass the open-return check before either inserts;
		// the storage-level uniqueness decides the loser.
		f := newReturnFixture(t, 48*time.Hour)
		repo := &blindDuplicateCheckRepo{MemoryReturnRepository: f.repo}
		svc := NewReturnService(repo, NewOrchestrator(repo), f.ledger, stubDirectory{}, f.tasks,
			EligibilityPolicy{ReturnWindowDays: 7})
		actor := customerActor(f.order.CustomerID)

		_, err := svc.CreateReturn(ctx, actor, validCreateRequest(f.order.ID))
		require.NoError(t, err)

		_, err = svc.CreateReturn(ctx, actor, validCreateRequest(f.order.ID))
		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodeDuplicateRequest, retErr.Code)
		assert.ErrorIs(t, err, model.ErrDuplicateRequest)
	})

	t.Run("a closed return frees the order line", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		actor := customerActor(f.order.CustomerID)

		first, err := f.svc.CreateReturn(ctx, actor, validCreateRequest(f.order.ID))
		require.NoError(t, err)
		_, err = f.svc.CancelReturn(ctx, actor, first.ID, model.CancelReturnRequest{Reason: "ordered the wrong part"})
		require.NoError(t, err)

		_, err = f.svc.CreateReturn(ctx, actor, validCreateRequest(f.order.ID))
		assert.NoError(t, err)
	})
}

// =====================================================
// VALIDATE
// =====================================================

func TestValidateReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("eligible return moves to validated", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		created, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		require.NoError(t, err)

		ret, err := f.svc.ValidateReturn(ctx, staffActor(), created.ID)
		require.NoError(t, err)

		assert.Equal(t, model.StatusValidated, ret.Status)
		assert.True(t, ret.IsEligible)
		assert.Equal(t, f.order.DealerID, ret.DealerID)
		assert.NotNil(t, ret.Timestamps.ValidatedAt)
	})

	t.Run("expired window moves to terminal rejected", func(t *testing.T) {
		f := newReturnFixture(t, 30*24*time.Hour)
		created, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		require.NoError(t, err)

		ret, err := f.svc.ValidateReturn(ctx, staffActor(), created.ID)
		require.NoError(t, err)

		assert.Equal(t, model.StatusRejected, ret.Status)
		assert.True(t, ret.IsTerminal())
		assert.False(t, ret.IsEligible)
		assert.Contains(t, ret.EligibilityReason, "expired")

		stored, err := f.repo.GetReturnByID(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, stored.Notes, 1, "rejection reason must land on the note trail")
		assert.Contains(t, stored.Notes[0].Text, "expired")
	})

	t.Run("eligibility outcome is recorded either way", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		req := validCreateRequest(f.order.ID)
		req.Quantity = 3
		f.order.Items[0].ReturnedQuantity = 2

		created, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), req)
		require.NoError(t, err)

		ret, err := f.svc.ValidateReturn(ctx, staffActor(), created.ID)
		require.NoError(t, err)

		assert.Equal(t, model.StatusRejected, ret.Status)
		assert.True(t, ret.IsWithinReturnWindow)
		assert.True(t, ret.IsProductReturnable)
		assert.Contains(t, ret.EligibilityReason, "exceeds returnable quantity")
	})

	t.Run("validation is not repeatable", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		created, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		require.NoError(t, err)

		_, err = f.svc.ValidateReturn(ctx, staffActor(), created.ID)
		require.NoError(t, err)

		_, err = f.svc.ValidateReturn(ctx, staffActor(), created.ID)
		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodeInvalidTransition, retErr.Code)
	})
}

// =====================================================
// CANCEL
// =====================================================

func TestCancelReturn(t *testing.T) {
	ctx := context.Background()
	cancelReq := model.CancelReturnRequest{Reason: "found the part locally"}

	t.Run("owner cancels before pickup", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		actor := customerActor(f.order.CustomerID)
		created, err := f.svc.CreateReturn(ctx, actor, validCreateRequest(f.order.ID))
		require.NoError(t, err)

		ret, err := f.svc.CancelReturn(ctx, actor, created.ID, cancelReq)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, ret.Status)

		stored, err := f.repo.GetReturnByID(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, stored.Notes, 1)
		assert.Contains(t, stored.Notes[0].Text, "found the part locally")
	})

	t.Run("closed after the item is picked up", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		ret := seedReturn(t, f.repo, model.StatusPickupCompleted)

		_, err := f.svc.CancelReturn(ctx, staffActor(), ret.ID, cancelReq)

		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodeCancellationWindowClosed, retErr.Code)
	})

	t.Run("strangers cannot cancel", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		created, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		require.NoError(t, err)

		_, err = f.svc.CancelReturn(ctx, customerActor(uuid.New()), created.ID, cancelReq)
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	})

	t.Run("reason is required", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		created, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		require.NoError(t, err)

		_, err = f.svc.CancelReturn(ctx, customerActor(f.order.CustomerID), created.ID, model.CancelReturnRequest{})
		assert.Error(t, err)
	})

	t.Run("a booked pickup is handed to the worker for cancellation", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		ret := seedReturn(t, f.repo, model.StatusPickupScheduled)
		ret.Pickup = &model.PickupDetails{
			LogisticsPartner: "borzo",
			PickupID:         "mock-delivery-7",
		}
		require.NoError(t, f.repo.UpdateWithVersion(ctx, ret))

		_, err := f.svc.CancelReturn(ctx, staffActor(), ret.ID, cancelReq)
		require.NoError(t, err)

		require.Len(t, f.tasks.tasks, 1)
		task := f.tasks.tasks[0]
		assert.Equal(t, shared.TypeCancelPickup, task.Type())

		var payload pickupmodel.CancelPickupPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		assert.Equal(t, ret.ID, payload.ReturnID)
		assert.Equal(t, "mock-delivery-7", payload.PickupID)
	})

	t.Run("no partner task before the pickup is booked", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		created, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		require.NoError(t, err)

		_, err = f.svc.CancelReturn(ctx, customerActor(f.order.CustomerID), created.ID, cancelReq)
		require.NoError(t, err)
		assert.Empty(t, f.tasks.tasks)
	})

	t.Run("a failed hand-off still cancels the return and leaves a note", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		f.tasks.fail = true
		ret := seedReturn(t, f.repo, model.StatusPickupScheduled)
		ret.Pickup = &model.PickupDetails{
			LogisticsPartner: "borzo",
			PickupID:         "mock-delivery-8",
		}
		require.NoError(t, f.repo.UpdateWithVersion(ctx, ret))

		cancelled, err := f.svc.CancelReturn(ctx, staffActor(), ret.ID, cancelReq)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, cancelled.Status)

		stored, err := f.repo.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		var noted bool
		for _, note := range stored.Notes {
			if strings.Contains(note.Text, "could not be queued for cancellation") {
				noted = true
			}
		}
		assert.True(t, noted, "the dangling partner booking must be flagged for an operator")
	})
}

// =====================================================
// READS
// =====================================================

func TestGetReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("enriches with directory data", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		created, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		require.NoError(t, err)

		detail, err := f.svc.GetReturn(ctx, customerActor(f.order.CustomerID), created.ID)
		require.NoError(t, err)
		require.NotNil(t, detail.Customer)
		assert.Equal(t, "Asha Auto Traders", detail.Customer.Name)
	})

	t.Run("hidden from other customers", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		created, err := f.svc.CreateReturn(ctx, customerActor(f.order.CustomerID), validCreateRequest(f.order.ID))
		require.NoError(t, err)

		_, err = f.svc.GetReturn(ctx, customerActor(uuid.New()), created.ID)
		assert.ErrorIs(t, err, model.ErrUnauthorized)

		_, err = f.svc.GetReturn(ctx, staffActor(), created.ID)
		assert.NoError(t, err)
	})
}

func TestListReturns(t *testing.T) {
	ctx := context.Background()

	t.Run("customers are scoped to their own returns", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)
		mine := seedReturn(t, f.repo, model.StatusRequested)
		seedReturn(t, f.repo, model.StatusRequested)

		out, err := f.svc.ListReturns(ctx, customerActor(mine.CustomerID), model.ListReturnsFilter{}, 1, 20)
		require.NoError(t, err)
		require.Len(t, out.Returns, 1)
		assert.Equal(t, mine.ID, out.Returns[0].ID)

		all, err := f.svc.ListReturns(ctx, staffActor(), model.ListReturnsFilter{}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, 2, all.Total)
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		f := newReturnFixture(t, 48*time.Hour)

		_, err := f.svc.ListReturns(ctx, staffActor(), model.ListReturnsFilter{Status: "refunded"}, 1, 20)
		assert.Error(t, err)
	})
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()
	f := newReturnFixture(t, 48*time.Hour)
	ret := seedReturn(t, f.repo, model.StatusRequested)
	actor := staffActor()

	require.NoError(t, f.svc.AddNote(ctx, actor, ret.ID, "customer called about the pickup slot"))

	err := f.svc.AddNote(ctx, actor, ret.ID, "   ")
	assert.Error(t, err, "blank notes are rejected")

	stored, err := f.repo.GetReturnByID(ctx, ret.ID)
	require.NoError(t, err)
	require.Len(t, stored.Notes, 1)
	assert.Equal(t, actor.ID.String(), stored.Notes[0].By)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/repository/mock"
)

func seedReturn(t *testing.T, repo *mock.MemoryReturnRepository, status string) *model.ReturnRequest {
	t.Helper()

	ret := &model.ReturnRequest{
		ID:         uuid.New(),
		RMANumber:  "RMA-TEST0001",
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		SKU:        "BRK-PAD-001",
		Quantity:   1,
		Status:     status,
		Version:    1,
		Timestamps: model.Timestamps{RequestedAt: time.Now()},
	}
	require.NoError(t, repo.CreateReturn(context.Background(), ret))
	return ret
}

func TestOrchestratorTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("moves status and bumps version", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		orch := NewOrchestrator(repo)
		ret := seedReturn(t, repo, model.StatusRequested)

		err := orch.Transition(ctx, ret, model.StatusRequested, model.StatusValidated, nil)
		require.NoError(t, err)

		assert.Equal(t, model.StatusValidated, ret.Status)
		assert.Equal(t, 2, ret.Version)
		require.NotNil(t, ret.Timestamps.ValidatedAt)

		stored, err := repo.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusValidated, stored.Status)
		assert.Equal(t, 2, stored.Version)
	})

	t.Run("applies mutation before the write", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		orch := NewOrchestrator(repo)
		ret := seedReturn(t, repo, model.StatusRequested)
		dealerID := uuid.New()

		err := orch.Transition(ctx, ret, model.StatusRequested, model.StatusValidated, func(r *model.ReturnRequest) {
			r.DealerID = &dealerID
		})
		require.NoError(t, err)

		stored, err := repo.GetReturnByID(ctx, ret.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.DealerID)
		assert.Equal(t, dealerID, *stored.DealerID)
	})

	t.Run("rejects a stale caller expectation", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		orch := NewOrchestrator(repo)
		ret := seedReturn(t, repo, model.StatusValidated)

		err := orch.Transition(ctx, ret, model.StatusRequested, model.StatusValidated, nil)

		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodeInvalidTransition, retErr.Code)
		assert.Equal(t, model.StatusValidated, ret.Status)
	})

	t.Run("rejects an illegal edge", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		orch := NewOrchestrator(repo)
		ret := seedReturn(t, repo, model.StatusRequested)

		err := orch.Transition(ctx, ret, model.StatusRequested, model.StatusRefundCompleted, nil)

		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodeInvalidTransition, retErr.Code)
	})

	t.Run("two racing writers resolve to one winner", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		orch := NewOrchestrator(repo)
		seeded := seedReturn(t, repo, model.StatusRequested)

		first, err := repo.GetReturnByID(ctx, seeded.ID)
		require.NoError(t, err)
		second, err := repo.GetReturnByID(ctx, seeded.ID)
		require.NoError(t, err)

		require.NoError(t, orch.Transition(ctx, first, model.StatusRequested, model.StatusValidated, nil))

		err = orch.Transition(ctx, second, model.StatusRequested, model.StatusRejected, nil)
		require.ErrorIs(t, err, model.ErrVersionConflict)
		assert.Equal(t, model.StatusRequested, second.Status, "loser must be restored")

		stored, err := repo.GetReturnByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusValidated, stored.Status)
	})

	t.Run("stage timestamps are stamped exactly once", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		orch := NewOrchestrator(repo)
		ret := seedReturn(t, repo, model.StatusPickupScheduled)

		earlier := time.Now().Add(-2 * time.Hour)
		ret.Timestamps.PickupCompletedAt = &earlier
		ret.Pickup = &model.PickupDetails{PickupID: "mock-delivery-1"}

		err := orch.Transition(ctx, ret, model.StatusPickupScheduled, model.StatusPickupCompleted, nil)
		require.NoError(t, err)

		require.NotNil(t, ret.Timestamps.PickupCompletedAt)
		assert.True(t, ret.Timestamps.PickupCompletedAt.Equal(earlier),
			"existing stamp must never be overwritten")
	})
}

func TestOrchestratorTransitionByID(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMemoryReturnRepository()
	orch := NewOrchestrator(repo)

	t.Run("reads fresh then transitions", func(t *testing.T) {
		seeded := seedReturn(t, repo, model.StatusRequested)

		ret, err := orch.TransitionByID(ctx, seeded.ID, model.StatusRequested, model.StatusValidated, nil)
		require.NoError(t, err)
		assert.Equal(t, model.StatusValidated, ret.Status)
	})

	t.Run("unknown return", func(t *testing.T) {
		_, err := orch.TransitionByID(ctx, uuid.New(), model.StatusRequested, model.StatusValidated, nil)
		assert.ErrorIs(t, err, model.ErrReturnNotFound)
	})
}

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

func seedPickedUpReturn(t *testing.T, repo *mock.MemoryReturnRepository) *model.ReturnRequest {
	t.Helper()

	ret := seedReturn(t, repo, model.StatusPickupCompleted)
	completedAt := time.Now().Add(-time.Hour)
	ret.Pickup = &model.PickupDetails{
		PickupID:         "mock-delivery-1",
		LogisticsPartner: "borzo",
		TrackingNumber:   "TRK000001",
		CompletedDate:    &completedAt,
	}
	require.NoError(t, repo.UpdateWithVersion(context.Background(), ret))
	return ret
}

func TestStartInspection(t *testing.T) {
	ctx := context.Background()

	t.Run("opens an inspection once the item is back", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		svc := NewInspectionService(repo, NewOrchestrator(repo))
		ret := seedPickedUpReturn(t, repo)

		out, err := svc.StartInspection(ctx, staffActor(), ret.ID)
		require.NoError(t, err)

		assert.Equal(t, model.StatusInspectionInProgress, out.Status)
		assert.NotNil(t, out.Inspection)
		assert.NotNil(t, out.Timestamps.InspectionStartedAt)
	})

	t.Run("refuses before pickup completes", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		svc := NewInspectionService(repo, NewOrchestrator(repo))
		ret := seedReturn(t, repo, model.StatusPickupScheduled)

		_, err := svc.StartInspection(ctx, staffActor(), ret.ID)

		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodePickupNotCompleted, retErr.Code)
	})

	t.Run("refuses without a completed pickup block", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		svc := NewInspectionService(repo, NewOrchestrator(repo))
		ret := seedReturn(t, repo, model.StatusPickupCompleted)

		_, err := svc.StartInspection(ctx, staffActor(), ret.ID)
		assert.ErrorIs(t, err, model.ErrPickupNotCompleted)
	})
}

func TestCompleteInspection(t *testing.T) {
	ctx := context.Background()

	start := func(t *testing.T) (*mock.MemoryReturnRepository, InspectionService, uuid.UUID) {
		t.Helper()
		repo := mock.NewMemoryReturnRepository()
		svc := NewInspectionService(repo, NewOrchestrator(repo))
		ret := seedPickedUpReturn(t, repo)
		_, err := svc.StartInspection(ctx, staffActor(), ret.ID)
		require.NoError(t, err)
		return repo, svc, ret.ID
	}

	t.Run("approval unlocks the refund stage", func(t *testing.T) {
		_, svc, returnID := start(t)
		actor := staffActor()

		out, err := svc.CompleteInspection(ctx, actor, returnID, model.CompleteInspectionRequest{
			SKUMatch:   true,
			IsApproved: true,
			Condition:  model.ConditionUsed,
		})
		require.NoError(t, err)

		assert.Equal(t, model.StatusInspectionApproved, out.Status)
		require.NotNil(t, out.Inspection)
		assert.True(t, out.Inspection.IsApproved)
		require.NotNil(t, out.Inspection.InspectedBy)
		assert.Equal(t, actor.ID, *out.Inspection.InspectedBy)
		assert.NotNil(t, out.Timestamps.InspectionCompletedAt)
		assert.True(t, out.CanInitiateRefund())
	})

	t.Run("rejection is terminal and noted", func(t *testing.T) {
		repo, svc, returnID := start(t)

		out, err := svc.CompleteInspection(ctx, staffActor(), returnID, model.CompleteInspectionRequest{
			SKUMatch:        false,
			IsApproved:      false,
			Condition:       model.ConditionWrongItem,
			RejectionReason: "returned part is a different brake pad model",
		})
		require.NoError(t, err)

		assert.Equal(t, model.StatusInspectionRejected, out.Status)
		assert.True(t, out.IsTerminal())
		assert.False(t, out.CanInitiateRefund())

		stored, err := repo.GetReturnByID(ctx, returnID)
		require.NoError(t, err)
		require.Len(t, stored.Notes, 1)
		assert.Contains(t, stored.Notes[0].Text, "different brake pad model")
	})

	t.Run("rejection must say why", func(t *testing.T) {
		_, svc, returnID := start(t)

		_, err := svc.CompleteInspection(ctx, staffActor(), returnID, model.CompleteInspectionRequest{
			IsApproved: false,
		})
		assert.ErrorIs(t, err, model.ErrRejectionReasonRequired)
	})

	t.Run("requires an open inspection", func(t *testing.T) {
		repo := mock.NewMemoryReturnRepository()
		svc := NewInspectionService(repo, NewOrchestrator(repo))
		ret := seedPickedUpReturn(t, repo)

		_, err := svc.CompleteInspection(ctx, staffActor(), ret.ID, model.CompleteInspectionRequest{
			IsApproved: true,
		})

		var retErr *model.ReturnError
		require.ErrorAs(t, err, &retErr)
		assert.Equal(t, model.ErrCodeInvalidTransition, retErr.Code)
	})
}

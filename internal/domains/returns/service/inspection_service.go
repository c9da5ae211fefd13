package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/repository"
	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/pkg/logger"
)

// =====================================================
// INSPECTION SERVICE IMPLEMENTATION
// =====================================================
type inspectionService struct {
	repo         repository.ReturnRepository
	orchestrator *Orchestrator
	now          func() time.Time
}

func NewInspectionService(repo repository.ReturnRepository, orchestrator *Orchestrator) InspectionService {
	return &inspectionService{
		repo:         repo,
		orchestrator: orchestrator,
		now:          time.Now,
	}
}

// =====================================================
// START INSPECTION
// =====================================================

func (s *inspectionService) StartInspection(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*model.ReturnRequest, error) {
	ret, err := s.repo.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	// The physical item has to be back at the dealer before staff may
	// open an inspection.
	if !ret.CanStartInspection() {
		return nil, model.NewReturnError(model.ErrCodePickupNotCompleted,
			"Pickup must be completed before inspection can start", model.ErrPickupNotCompleted)
	}

	err = s.orchestrator.Transition(ctx, ret, model.StatusPickupCompleted, model.StatusInspectionInProgress, func(r *model.ReturnRequest) {
		r.Inspection = &model.Inspection{}
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Inspection started", map[string]interface{}{
		"return_id":  ret.ID.String(),
		"rma_number": ret.RMANumber,
		"staff_id":   actor.ID.String(),
	})

	return ret, nil
}

// =====================================================
// COMPLETE INSPECTION
// =====================================================

func (s *inspectionService) CompleteInspection(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req model.CompleteInspectionRequest) (*model.ReturnRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ret, err := s.repo.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	target := model.StatusInspectionApproved
	if !req.IsApproved {
		target = model.StatusInspectionRejected
	}

	inspectedAt := s.now()
	staffID := actor.ID

	err = s.orchestrator.Transition(ctx, ret, model.StatusInspectionInProgress, target, func(r *model.ReturnRequest) {
		r.Inspection = &model.Inspection{
			SKUMatch:        req.SKUMatch,
			Images:          req.Images,
			IsApproved:      req.IsApproved,
			Condition:       req.Condition,
			ConditionNotes:  req.ConditionNotes,
			RejectionReason: req.RejectionReason,
			InspectedAt:     &inspectedAt,
			InspectedBy:     &staffID,
		}
	})
	if err != nil {
		return nil, err
	}

	if !req.IsApproved {
		s.appendNote(ctx, ret.ID, actor.ID.String(), "Inspection rejected: "+req.RejectionReason)
	}

	logger.Info("Inspection completed", map[string]interface{}{
		"return_id":  ret.ID.String(),
		"rma_number": ret.RMANumber,
		"approved":   req.IsApproved,
		"staff_id":   actor.ID.String(),
	})

	return ret, nil
}

func (s *inspectionService) appendNote(ctx context.Context, returnID uuid.UUID, by, text string) {
	err := s.repo.AppendNote(ctx, returnID, model.Note{
		At:   s.now(),
		By:   by,
		Text: text,
	})
	if err != nil {
		logger.Error("Failed to append note", err)
	}
}

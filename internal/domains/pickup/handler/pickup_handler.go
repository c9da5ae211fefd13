package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/pickup/model"
	"autoparts-returns-backend/internal/domains/pickup/service"
	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/shared/middleware"
	"autoparts-returns-backend/internal/shared/response"
)

// =====================================================
// PICKUP HANDLER
// =====================================================
type PickupHandler struct {
	pickupService service.PickupService
}

func NewPickupHandler(pickupService service.PickupService) *PickupHandler {
	return &PickupHandler{
		pickupService: pickupService,
	}
}

// =====================================================
// ROUTES REGISTRATION
// =====================================================

func (h *PickupHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := router.Group("/returns", middleware.RequireStaff())
	{
		staff.POST("/:id/pickup", h.SchedulePickup)                 // POST /v1/returns/:id/pickup
		staff.POST("/:id/pickup/complete", h.CompletePickup)        // POST /v1/returns/:id/pickup/complete
	}
}

// =====================================================
// SCHEDULE PICKUP
// =====================================================

func (h *PickupHandler) SchedulePickup(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Return ID must be a valid UUID")
		return
	}

	var req returnsmodel.SchedulePickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, "Validation failed", map[string]string{
			"error": err.Error(),
		})
		return
	}

	result, err := h.pickupService.SchedulePickup(c.Request.Context(), actor, returnID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, "Pickup scheduled", result)
}

// =====================================================
// COMPLETE PICKUP
// =====================================================

func (h *PickupHandler) CompletePickup(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Return ID must be a valid UUID")
		return
	}

	var req returnsmodel.CompletePickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, "Validation failed", map[string]string{
			"error": err.Error(),
		})
		return
	}

	result, err := h.pickupService.CompletePickup(c.Request.Context(), actor, returnID, req.TrackingNumber)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Pickup completed", result)
}

// =====================================================
// ERROR MAPPING
// =====================================================

func (h *PickupHandler) handleServiceError(c *gin.Context, err error) {
	var pickupErr *model.PickupError
	if errors.As(err, &pickupErr) {
		statusCode := http.StatusUnprocessableEntity
		switch pickupErr.Code {
		case model.ErrCodeConflictingTrackingNumber:
			statusCode = http.StatusConflict
		case model.ErrCodeInvalidWebhookPayload:
			statusCode = http.StatusBadRequest
		}
		response.Error(c, statusCode, pickupErr.Message, map[string]string{
			"code": pickupErr.Code,
		})
		return
	}

	var retErr *returnsmodel.ReturnError
	if errors.As(err, &retErr) {
		response.Error(c, http.StatusConflict, retErr.Message, map[string]string{
			"code": retErr.Code,
		})
		return
	}

	if errors.Is(err, returnsmodel.ErrReturnNotFound) {
		response.Error(c, http.StatusNotFound, "Return not found", map[string]string{
			"code": returnsmodel.ErrCodeReturnNotFound,
		})
		return
	}

	if errors.Is(err, returnsmodel.ErrVersionConflict) {
		response.Error(c, http.StatusConflict, "Concurrent modification detected. Please refresh and try again.", map[string]string{
			"code": returnsmodel.ErrCodeVersionConflict,
		})
		return
	}

	response.Error(c, http.StatusInternalServerError, "Internal server error", map[string]string{
		"error": err.Error(),
	})
}

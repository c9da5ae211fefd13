package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/refund/model"
	"autoparts-returns-backend/internal/domains/refund/service"
	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/shared/middleware"
	"autoparts-returns-backend/internal/shared/response"
)

// =====================================================
// REFUND HANDLER
// =====================================================
type RefundHandler struct {
	refundService service.RefundService
}

func NewRefundHandler(refundService service.RefundService) *RefundHandler {
	return &RefundHandler{
		refundService: refundService,
	}
}

// =====================================================
// ROUTES REGISTRATION
// =====================================================

func (h *RefundHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := router.Group("/returns", middleware.RequireStaff())
	{
		staff.POST("/:id/refund", h.InitiateRefund) // POST /v1/returns/:id/refund
	}

	admin := router.Group("/returns", middleware.RequireAdmin())
	{
		admin.POST("/:id/refund/manual-complete", h.MarkManualCompleted) // POST /v1/returns/:id/refund/manual-complete
	}

	ops := router.Group("/refunds", middleware.RequireStaff())
	{
		ops.GET("/failed", h.ListFailedRefunds) // GET /v1/refunds/failed
	}
}

// =====================================================
// INITIATE REFUND
// =====================================================

func (h *RefundHandler) InitiateRefund(c *gin.Context) {
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

	var req returnsmodel.InitiateRefundRequest
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

	result, err := h.refundService.InitiateRefund(c.Request.Context(), actor, returnID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Refund initiated", result)
}

// =====================================================
// MANUAL COMPLETION
// =====================================================

func (h *RefundHandler) MarkManualCompleted(c *gin.Context) {
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

	var req model.ManualCompleteRequest
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

	result, err := h.refundService.MarkManualCompleted(c.Request.Context(), actor, returnID, req.OperatorNote)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Refund marked completed", result)
}

// =====================================================
// FAILED REFUNDS (operator review queue)
// =====================================================

func (h *RefundHandler) ListFailedRefunds(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	refunds, err := h.refundService.ListFailedRefunds(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Failed refunds", refunds)
}

// =====================================================
// ERROR MAPPING
// =====================================================

func (h *RefundHandler) handleServiceError(c *gin.Context, err error) {
	var refundErr *model.RefundError
	if errors.As(err, &refundErr) {
		statusCode := http.StatusUnprocessableEntity
		switch refundErr.Code {
		case model.ErrCodeRefundNotFound:
			statusCode = http.StatusNotFound
		case model.ErrCodeAlreadyRefunded:
			statusCode = http.StatusConflict
		case model.ErrCodeRefundProcessingFailed:
			statusCode = http.StatusBadGateway
		}
		response.Error(c, statusCode, refundErr.Message, map[string]string{
			"code": refundErr.Code,
		})
		return
	}

	var retErr *returnsmodel.ReturnError
	if errors.As(err, &retErr) {
		statusCode := http.StatusConflict
		switch retErr.Code {
		case returnsmodel.ErrCodeUnauthorized:
			statusCode = http.StatusForbidden
		case returnsmodel.ErrCodeOrderLedgerUnavailable:
			statusCode = http.StatusBadGateway
		}
		response.Error(c, statusCode, retErr.Message, map[string]string{
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

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/service"
	"autoparts-returns-backend/internal/shared/middleware"
	"autoparts-returns-backend/internal/shared/response"
)

// =====================================================
// RETURN HANDLER
// =====================================================
type ReturnHandler struct {
	returnService     service.ReturnService
	inspectionService service.InspectionService
	imageService      *service.ImageService
}

func NewReturnHandler(
	returnService service.ReturnService,
	inspectionService service.InspectionService,
	imageService *service.ImageService,
) *ReturnHandler {
	return &ReturnHandler{
		returnService:     returnService,
		inspectionService: inspectionService,
		imageService:      imageService,
	}
}

// =====================================================
// ROUTES REGISTRATION
// =====================================================

func (h *ReturnHandler) RegisterRoutes(router *gin.RouterGroup) {
	returns := router.Group("/returns")
	{
		returns.POST("", h.CreateReturn)                          // POST /v1/returns
		returns.GET("", h.ListReturns)                            // GET /v1/returns?status=requested&page=1
		returns.GET("/:id", h.GetReturn)                          // GET /v1/returns/:id
		returns.POST("/:id/cancel", h.CancelReturn)               // POST /v1/returns/:id/cancel
		returns.POST("/:id/images/upload-url", h.RequestUpload)   // POST /v1/returns/:id/images/upload-url
		returns.POST("/:id/images/confirm", h.ConfirmUpload)      // POST /v1/returns/:id/images/confirm
	}

	staff := router.Group("/returns", middleware.RequireStaff())
	{
		staff.POST("/:id/validate", h.ValidateReturn)                    // POST /v1/returns/:id/validate
		staff.POST("/:id/inspection/start", h.StartInspection)           // POST /v1/returns/:id/inspection/start
		staff.POST("/:id/inspection/complete", h.CompleteInspection)     // POST /v1/returns/:id/inspection/complete
		staff.POST("/:id/notes", h.AddNote)                              // POST /v1/returns/:id/notes
	}
}

// =====================================================
// CREATE RETURN
// =====================================================

func (h *ReturnHandler) CreateReturn(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	var req model.CreateReturnRequest
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

	result, err := h.returnService.CreateReturn(c.Request.Context(), actor, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Return request created", result)
}

// =====================================================
// VALIDATE RETURN
// =====================================================

func (h *ReturnHandler) ValidateReturn(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, ok := h.parseReturnID(c)
	if !ok {
		return
	}

	result, err := h.returnService.ValidateReturn(c.Request.Context(), actor, returnID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	message := "Return validated"
	if result.Status == model.StatusRejected {
		message = "Return rejected: " + result.EligibilityReason
	}

	response.Success(c, http.StatusOK, message, result)
}

// =====================================================
// CANCEL RETURN
// =====================================================

func (h *ReturnHandler) CancelReturn(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, ok := h.parseReturnID(c)
	if !ok {
		return
	}

	var req model.CancelReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", map[string]string{
			"error": err.Error(),
		})
		return
	}

	result, err := h.returnService.CancelReturn(c.Request.Context(), actor, returnID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Return cancelled", result)
}

// =====================================================
// INSPECTION
// =====================================================

func (h *ReturnHandler) StartInspection(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, ok := h.parseReturnID(c)
	if !ok {
		return
	}

	result, err := h.inspectionService.StartInspection(c.Request.Context(), actor, returnID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Inspection started", result)
}

func (h *ReturnHandler) CompleteInspection(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, ok := h.parseReturnID(c)
	if !ok {
		return
	}

	var req model.CompleteInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", map[string]string{
			"error": err.Error(),
		})
		return
	}

	result, err := h.inspectionService.CompleteInspection(c.Request.Context(), actor, returnID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Inspection completed", result)
}

// =====================================================
// READS
// =====================================================

func (h *ReturnHandler) GetReturn(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, ok := h.parseReturnID(c)
	if !ok {
		return
	}

	result, err := h.returnService.GetReturn(c.Request.Context(), actor, returnID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "OK", result)
}

func (h *ReturnHandler) ListReturns(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	var filter model.ListReturnsFilter
	filter.Status = c.Query("status")

	if raw := c.Query("order_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "order_id must be a valid UUID")
			return
		}
		filter.OrderID = &id
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "customer_id must be a valid UUID")
			return
		}
		filter.CustomerID = &id
	}
	if raw := c.Query("dealer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "dealer_id must be a valid UUID")
			return
		}
		filter.DealerID = &id
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "from must be RFC3339")
			return
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "to must be RFC3339")
			return
		}
		filter.To = &t
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.returnService.ListReturns(c.Request.Context(), actor, filter, page, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, result.Returns, &response.Meta{
		Page:  result.Page,
		Limit: result.Limit,
		Total: result.Total,
	})
}

// =====================================================
// NOTES
// =====================================================

func (h *ReturnHandler) AddNote(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, ok := h.parseReturnID(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := h.returnService.AddNote(c.Request.Context(), actor, returnID, req.Text); err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Note added", nil)
}

// =====================================================
// IMAGES
// =====================================================

func (h *ReturnHandler) RequestUpload(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, ok := h.parseReturnID(c)
	if !ok {
		return
	}

	kind := c.DefaultQuery("kind", service.ImageKindEvidence)

	ticket, err := h.imageService.RequestUpload(c.Request.Context(), actor, returnID, kind)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Upload URL issued", ticket)
}

func (h *ReturnHandler) ConfirmUpload(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	returnID, ok := h.parseReturnID(c)
	if !ok {
		return
	}

	var req struct {
		ObjectKey string `json:"object_key" binding:"required"`
		Kind      string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", map[string]string{
			"error": err.Error(),
		})
		return
	}
	if req.Kind == "" {
		req.Kind = service.ImageKindEvidence
	}

	if err := h.imageService.ConfirmUpload(c.Request.Context(), actor, returnID, req.ObjectKey, req.Kind); err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, "Image queued for processing", nil)
}

// =====================================================
// HELPERS
// =====================================================

func (h *ReturnHandler) parseReturnID(c *gin.Context) (uuid.UUID, bool) {
	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid return ID", map[string]string{
			"error": "Return ID must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return returnID, true
}

func (h *ReturnHandler) handleServiceError(c *gin.Context, err error) {
	var retErr *model.ReturnError
	if errors.As(err, &retErr) {
		statusCode := h.getHTTPStatusFromErrorCode(retErr.Code)
		response.Error(c, statusCode, retErr.Message, map[string]string{
			"code": retErr.Code,
		})
		return
	}

	if errors.Is(err, model.ErrReturnNotFound) {
		response.Error(c, http.StatusNotFound, "Return not found", map[string]string{
			"code": model.ErrCodeReturnNotFound,
		})
		return
	}

	if errors.Is(err, model.ErrVersionConflict) {
		response.Error(c, http.StatusConflict, "Concurrent modification detected. Please refresh and try again.", map[string]string{
			"code": model.ErrCodeVersionConflict,
		})
		return
	}

	if errors.Is(err, model.ErrRejectionReasonRequired) {
		response.Error(c, http.StatusUnprocessableEntity, "Rejection reason is required", map[string]string{
			"code": model.ErrCodeRejectionReasonRequired,
		})
		return
	}

	if errors.Is(err, model.ErrUnauthorized) {
		response.Error(c, http.StatusForbidden, "Unauthorized access", map[string]string{
			"code": model.ErrCodeUnauthorized,
		})
		return
	}

	response.Error(c, http.StatusInternalServerError, "Internal server error", map[string]string{
		"error": err.Error(),
	})
}

// getHTTPStatusFromErrorCode maps business error codes to HTTP status codes
func (h *ReturnHandler) getHTTPStatusFromErrorCode(code string) int {
	statusMap := map[string]int{
		model.ErrCodeReturnNotFound:           http.StatusNotFound,
		model.ErrCodeDuplicateRequest:         http.StatusConflict,
		model.ErrCodeInvalidOrderState:        http.StatusUnprocessableEntity,
		model.ErrCodeVersionConflict:          http.StatusConflict,
		model.ErrCodeInvalidTransition:        http.StatusConflict,
		model.ErrCodeNotEligible:              http.StatusUnprocessableEntity,
		model.ErrCodePickupNotCompleted:       http.StatusUnprocessableEntity,
		model.ErrCodeCancellationWindowClosed: http.StatusUnprocessableEntity,
		model.ErrCodeRejectionReasonRequired:  http.StatusUnprocessableEntity,
		model.ErrCodeUnauthorized:             http.StatusForbidden,
		model.ErrCodeOrderLedgerUnavailable:   http.StatusBadGateway,
		model.ErrCodeInvalidStatus:            http.StatusBadRequest,
	}

	if status, ok := statusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

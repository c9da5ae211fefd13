package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/refund/gateway"
	"autoparts-returns-backend/internal/domains/refund/model"
	returnssvc "autoparts-returns-backend/internal/domains/returns/service"
	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/internal/shared/response"
	pkgcache "autoparts-returns-backend/pkg/cache"
	"autoparts-returns-backend/pkg/logger"
)

// =====================================================
// RAZORPAY WEBHOOK HANDLER
// =====================================================

const settlementDedupTTL = 48 * time.Hour

// WebhookHandler ingests settlement callbacks from the payment processor:
// verify the signature over the raw body, dedupe replays, then hand the
// event to the worker. Lifecycle and refund rows are only ever touched by
// the worker, behind the processed-webhook log.
type WebhookHandler struct {
	processor gateway.RefundProcessor
	cache     pkgcache.Cache
	tasks     returnssvc.TaskEnqueuer
}

func NewWebhookHandler(processor gateway.RefundProcessor, cache pkgcache.Cache, tasks returnssvc.TaskEnqueuer) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		cache:     cache,
		tasks:     tasks,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/webhooks/razorpay", h.HandleSettlementWebhook)
}

func (h *WebhookHandler) HandleSettlementWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "Cannot read request body")
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if !h.processor.VerifyWebhookSignature(body, signature) {
		logger.Warn("Rejected settlement webhook with bad signature", map[string]interface{}{
			"remote": c.ClientIP(),
		})
		response.Unauthorized(c, "Invalid signature")
		return
	}

	var webhook model.SettlementWebhookRequest
	if err := json.Unmarshal(body, &webhook); err != nil {
		response.BadRequest(c, "Invalid webhook payload")
		return
	}

	if webhook.Event != model.EventRefundProcessed && webhook.Event != model.EventRefundFailed {
		response.Success(c, http.StatusOK, "Ignored", nil)
		return
	}

	if webhook.Payload.Refund.Entity.ID == "" {
		response.BadRequest(c, "Webhook has no refund entity")
		return
	}

	// The processor assigns every delivery attempt of the same event the
	// same id; fall back to a body hash if the header is ever missing.
	eventID := c.GetHeader("X-Razorpay-Event-Id")
	if eventID == "" {
		bodyHash := sha256.Sum256(body)
		eventID = hex.EncodeToString(bodyHash[:])
	}

	dedupKey := "webhook:razorpay:" + eventID
	fresh, err := h.cache.SetNX(c.Request.Context(), dedupKey, 1, settlementDedupTTL)
	if err != nil {
		logger.Error("Webhook dedup check failed", err)
		// The worker dedupes again against the processed-webhook log.
	} else if !fresh {
		response.Success(c, http.StatusOK, "Already processed", nil)
		return
	}

	payload, err := json.Marshal(model.ProcessRefundEventPayload{
		EventID:           eventID,
		EventType:         webhook.Event,
		ProcessorRefundID: webhook.Payload.Refund.Entity.ID,
		Body:              body,
	})
	if err != nil {
		response.InternalServerError(c, "Failed to process webhook")
		return
	}

	task := asynq.NewTask(shared.TypeProcessRefundEvent, payload)
	_, err = h.tasks.EnqueueContext(c.Request.Context(), task,
		asynq.Queue(shared.QueueHigh),
		asynq.MaxRetry(10),
	)
	if err != nil {
		logger.Error("Failed to enqueue settlement event", err)
		_ = h.cache.Delete(c.Request.Context(), dedupKey)
		response.InternalServerError(c, "Failed to process webhook")
		return
	}

	logger.Info("Settlement webhook accepted", map[string]interface{}{
		"event_id":            eventID,
		"event_type":          webhook.Event,
		"processor_refund_id": webhook.Payload.Refund.Entity.ID,
	})

	response.Success(c, http.StatusOK, "Accepted", nil)
}

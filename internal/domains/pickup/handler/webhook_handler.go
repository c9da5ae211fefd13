package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/pickup/gateway"
	"autoparts-returns-backend/internal/domains/pickup/model"
	returnssvc "autoparts-returns-backend/internal/domains/returns/service"
	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/internal/shared/response"
	pkgcache "autoparts-returns-backend/pkg/cache"
	"autoparts-returns-backend/pkg/logger"
)

// =====================================================
// BORZO WEBHOOK HANDLER
// =====================================================

const webhookDedupTTL = 48 * time.Hour

// WebhookHandler ingests Borzo callbacks: verify the signature over the
// raw body, dedupe replays, then hand the event to the worker. The
// endpoint itself never touches the lifecycle.
type WebhookHandler struct {
	logistics gateway.LogisticsGateway
	cache     pkgcache.Cache
	tasks     returnssvc.TaskEnqueuer
}

func NewWebhookHandler(logistics gateway.LogisticsGateway, cache pkgcache.Cache, tasks returnssvc.TaskEnqueuer) *WebhookHandler {
	return &WebhookHandler{
		logistics: logistics,
		cache:     cache,
		tasks:     tasks,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/webhooks/borzo", h.HandleBorzoWebhook)
}

func (h *WebhookHandler) HandleBorzoWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "Cannot read request body")
		return
	}

	signature := c.GetHeader("X-DV-Signature")
	if !h.logistics.VerifyCallbackSignature(body, signature) {
		logger.Warn("Rejected borzo webhook with bad signature", map[string]interface{}{
			"remote": c.ClientIP(),
		})
		response.Unauthorized(c, "Invalid signature")
		return
	}

	var webhook model.BorzoWebhookRequest
	if err := json.Unmarshal(body, &webhook); err != nil {
		response.BadRequest(c, "Invalid webhook payload")
		return
	}

	returnID, err := uuid.Parse(webhook.Delivery.Matter)
	if err != nil {
		// Not one of ours; acknowledge so the partner stops retrying.
		logger.Warn("Borzo webhook with unknown matter", map[string]interface{}{
			"matter": webhook.Delivery.Matter,
		})
		response.Success(c, http.StatusOK, "Ignored", nil)
		return
	}

	// Replay guard: the partner retries aggressively on slow responses.
	bodyHash := sha256.Sum256(body)
	dedupKey := "webhook:borzo:" + hex.EncodeToString(bodyHash[:])
	fresh, err := h.cache.SetNX(c.Request.Context(), dedupKey, 1, webhookDedupTTL)
	if err != nil {
		logger.Error("Webhook dedup check failed", err)
		// Processing is idempotent downstream, so keep going.
	} else if !fresh {
		response.Success(c, http.StatusOK, "Already processed", nil)
		return
	}

	payload, err := json.Marshal(model.ProcessPickupEventPayload{
		ReturnID:       returnID,
		EventType:      webhook.EventType,
		EventDatetime:  webhook.EventDatetime,
		TrackingNumber: webhook.Delivery.TrackingNumber,
		TrackingURL:    webhook.Delivery.TrackingURL,
	})
	if err != nil {
		response.InternalServerError(c, "Failed to process webhook")
		return
	}

	task := asynq.NewTask(shared.TypeProcessPickupEvent, payload)
	_, err = h.tasks.EnqueueContext(c.Request.Context(), task,
		asynq.Queue(shared.QueueHigh),
		asynq.MaxRetry(10),
	)
	if err != nil {
		logger.Error("Failed to enqueue pickup event", err)
		// 500 makes the partner retry later; the dedup key is already
		// set, so release it for the retry.
		_ = h.cache.Delete(c.Request.Context(), dedupKey)
		response.InternalServerError(c, "Failed to process webhook")
		return
	}

	logger.Info("Borzo webhook accepted", map[string]interface{}{
		"return_id":  returnID.String(),
		"event_type": webhook.EventType,
	})

	response.Success(c, http.StatusOK, "Accepted", nil)
}

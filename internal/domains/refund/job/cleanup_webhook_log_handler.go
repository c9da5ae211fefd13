package job

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/refund/repository"
	"autoparts-returns-backend/pkg/logger"
)

// Entries older than this can no longer be redelivered by the processor,
// so keeping them only grows the table.
const webhookLogRetention = 30 * 24 * time.Hour

// CleanupWebhookLogHandler prunes the processed-webhook log daily.
type CleanupWebhookLogHandler struct {
	webhooks repository.WebhookRepository
}

func NewCleanupWebhookLogHandler(webhooks repository.WebhookRepository) *CleanupWebhookLogHandler {
	return &CleanupWebhookLogHandler{webhooks: webhooks}
}

func (h *CleanupWebhookLogHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-webhookLogRetention)

	removed, err := h.webhooks.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	logger.Info("Webhook log cleanup finished", map[string]interface{}{
		"removed": removed,
		"cutoff":  cutoff.Format(time.RFC3339),
	})
	return nil
}

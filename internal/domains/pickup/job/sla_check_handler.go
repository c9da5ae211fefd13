package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	returnsrepo "autoparts-returns-backend/internal/domains/returns/repository"
	"autoparts-returns-backend/pkg/logger"
)

// PickupSLACheckHandler is the cron watchdog for pickups that were
// scheduled but never completed. It surfaces them in the logs so an
// operator can chase the partner.
type PickupSLACheckHandler struct {
	repo       returnsrepo.ReturnRepository
	slaDays    int
	batchLimit int
}

func NewPickupSLACheckHandler(repo returnsrepo.ReturnRepository, slaDays int) *PickupSLACheckHandler {
	return &PickupSLACheckHandler{
		repo:       repo,
		slaDays:    slaDays,
		batchLimit: 100,
	}
}

func (h *PickupSLACheckHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().AddDate(0, 0, -h.slaDays)

	stale, err := h.repo.ListStalePickups(ctx, cutoff, h.batchLimit)
	if err != nil {
		return fmt.Errorf("failed to list stale pickups: %w", err)
	}

	if len(stale) == 0 {
		return nil
	}

	for _, ret := range stale {
		logger.Warn("Pickup SLA breached", map[string]interface{}{
			"return_id":    ret.ID.String(),
			"rma_number":   ret.RMANumber,
			"scheduled_at": ret.Timestamps.PickupScheduledAt,
		})
	}

	logger.Info("Pickup SLA check finished", map[string]interface{}{
		"breached": len(stale),
		"sla_days": h.slaDays,
	})

	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"autoparts-returns-backend/internal/domains/refund/model"
)

// =====================================================
// PROCESSED WEBHOOK REPOSITORY IMPLEMENTATION
// =====================================================
type webhookRepository struct {
	pool *pgxpool.Pool
}

func NewWebhookRepository(pool *pgxpool.Pool) WebhookRepository {
	return &webhookRepository{pool: pool}
}

// Record inserts the event id; the unique index on (gateway, event_id)
// makes the insert itself the idempotency check.
func (r *webhookRepository) Record(ctx context.Context, log *model.ProcessedWebhook) (bool, error) {
	query := `
		INSERT INTO processed_webhooks (
			id, event_id, gateway, event_type, body, received_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.EventID,
		log.Gateway,
		log.EventType,
		log.Body,
		log.ReceivedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// unique_violation: already processed
			return false, nil
		}
		return false, fmt.Errorf("failed to record webhook: %w", err)
	}

	return true, nil
}

func (r *webhookRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM processed_webhooks WHERE received_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old webhook logs: %w", err)
	}

	return result.RowsAffected(), nil
}

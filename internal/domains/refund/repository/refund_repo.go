package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"autoparts-returns-backend/internal/domains/refund/model"
)

// =====================================================
// REFUND REPOSITORY IMPLEMENTATION
// =====================================================
type refundRepository struct {
	pool *pgxpool.Pool
}

func NewRefundRepository(pool *pgxpool.Pool) RefundRepository {
	return &refundRepository{pool: pool}
}

const refundColumns = `
	id, return_id, order_id, payment_id,
	amount, method, status,
	processor_refund_id, error_code, error_message, operator_note,
	initiated_by,
	initiated_at, processing_at, completed_at, failed_at,
	created_at, updated_at
`

func scanRefund(row pgx.Row) (*model.Refund, error) {
	var refund model.Refund
	err := row.Scan(
		&refund.ID,
		&refund.ReturnID,
		&refund.OrderID,
		&refund.PaymentID,
		&refund.Amount,
		&refund.Method,
		&refund.Status,
		&refund.ProcessorRefundID,
		&refund.ErrorCode,
		&refund.ErrorMessage,
		&refund.OperatorNote,
		&refund.InitiatedBy,
		&refund.InitiatedAt,
		&refund.ProcessingAt,
		&refund.CompletedAt,
		&refund.FailedAt,
		&refund.CreatedAt,
		&refund.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *refundRepository) Create(ctx context.Context, refund *model.Refund) error {
	query := `
		INSERT INTO refunds (
			id, return_id, order_id, payment_id,
			amount, method, status, initiated_by, initiated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		refund.ID,
		refund.ReturnID,
		refund.OrderID,
		refund.PaymentID,
		refund.Amount,
		refund.Method,
		refund.Status,
		refund.InitiatedBy,
		refund.InitiatedAt,
	).Scan(&refund.CreatedAt, &refund.UpdatedAt)

	if err != nil {
		// refunds.return_id is unique; a concurrent initiation racing
		// past the read-before-create loses here, not with a raw pg error.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.NewRefundError(model.ErrCodeAlreadyRefunded,
				"A refund already exists for this return", model.ErrAlreadyRefunded)
		}
		return fmt.Errorf("failed to create refund: %w", err)
	}

	return nil
}

func (r *refundRepository) GetByID(ctx context.Context, refundID uuid.UUID) (*model.Refund, error) {
	query := fmt.Sprintf(`SELECT %s FROM refunds WHERE id = $1`, refundColumns)

	refund, err := scanRefund(r.pool.QueryRow(ctx, query, refundID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund by id: %w", err)
	}

	return refund, nil
}

func (r *refundRepository) GetByReturnID(ctx context.Context, returnID uuid.UUID) (*model.Refund, error) {
	query := fmt.Sprintf(`SELECT %s FROM refunds WHERE return_id = $1`, refundColumns)

	refund, err := scanRefund(r.pool.QueryRow(ctx, query, returnID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund by return id: %w", err)
	}

	return refund, nil
}

func (r *refundRepository) GetByProcessorRefundID(ctx context.Context, processorRefundID string) (*model.Refund, error) {
	query := fmt.Sprintf(`SELECT %s FROM refunds WHERE processor_refund_id = $1`, refundColumns)

	refund, err := scanRefund(r.pool.QueryRow(ctx, query, processorRefundID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund by processor refund id: %w", err)
	}

	return refund, nil
}

func (r *refundRepository) UpdateStatus(ctx context.Context, refundID uuid.UUID, status string) error {
	query := `
		UPDATE refunds
		SET status = $1,
			processing_at = CASE WHEN $1 = 'processing' THEN NOW() ELSE processing_at END,
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
			failed_at = CASE WHEN $1 = 'failed' THEN NOW() ELSE failed_at END,
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, status, refundID)
	if err != nil {
		return fmt.Errorf("failed to update refund status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrRefundNotFound
	}

	return nil
}

func (r *refundRepository) MarkProcessing(ctx context.Context, refundID uuid.UUID, processorRefundID string) error {
	query := `
		UPDATE refunds
		SET status = 'processing',
			processor_refund_id = $1,
			processing_at = NOW(),
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, processorRefundID, refundID)
	if err != nil {
		return fmt.Errorf("failed to mark refund processing: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrRefundNotFound
	}

	return nil
}

func (r *refundRepository) MarkFailed(ctx context.Context, refundID uuid.UUID, errorCode, errorMessage string) error {
	query := `
		UPDATE refunds
		SET status = 'failed',
			error_code = $1,
			error_message = $2,
			failed_at = NOW(),
			updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, errorCode, errorMessage, refundID)
	if err != nil {
		return fmt.Errorf("failed to mark refund failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrRefundNotFound
	}

	return nil
}

// MarkManualCompleted only fires while the refund is still open; a
// settled refund never changes again.
func (r *refundRepository) MarkManualCompleted(ctx context.Context, refundID uuid.UUID, operatorNote string) error {
	query := `
		UPDATE refunds
		SET status = 'completed',
			operator_note = $1,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'failed')
	`

	result, err := r.pool.Exec(ctx, query, operatorNote, refundID)
	if err != nil {
		return fmt.Errorf("failed to mark refund completed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrAlreadyRefunded
	}

	return nil
}

func (r *refundRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*model.Refund, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM refunds
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, refundColumns)

	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds by status: %w", err)
	}
	defer rows.Close()

	var refunds []*model.Refund
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refunds = append(refunds, refund)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating refunds: %w", rows.Err())
	}

	return refunds, nil
}

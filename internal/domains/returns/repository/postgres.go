package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/shared/utils"
	"autoparts-returns-backend/pkg/database"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresReturnRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresReturnRepository(pool *pgxpool.Pool) ReturnRepository {
	return &postgresReturnRepository{
		pool: pool,
	}
}

const returnColumns = `
	id, rma_number, order_id, customer_id, dealer_id, sku, quantity,
	status, version,
	is_eligible, eligibility_reason, return_window_days,
	is_within_return_window, is_product_returnable,
	return_reason, return_description, return_images,
	pickup, inspection, refund,
	timestamps, notes,
	created_at, updated_at
`

func scanReturn(row pgx.Row) (*model.ReturnRequest, error) {
	var ret model.ReturnRequest
	err := row.Scan(
		&ret.ID,
		&ret.RMANumber,
		&ret.OrderID,
		&ret.CustomerID,
		&ret.DealerID,
		&ret.SKU,
		&ret.Quantity,
		&ret.Status,
		&ret.Version,
		&ret.IsEligible,
		&ret.EligibilityReason,
		&ret.ReturnWindowDays,
		&ret.IsWithinReturnWindow,
		&ret.IsProductReturnable,
		&ret.ReturnReason,
		&ret.ReturnDescription,
		&ret.ReturnImages,
		&ret.Pickup,
		&ret.Inspection,
		&ret.Refund,
		&ret.Timestamps,
		&ret.Notes,
		&ret.CreatedAt,
		&ret.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// =====================================================
// CREATE RETURN
// =====================================================

func (r *postgresReturnRepository) CreateReturn(ctx context.Context, ret *model.ReturnRequest) error {
	query := `
		INSERT INTO return_requests (
			id, rma_number, order_id, customer_id, sku, quantity,
			status, version,
			is_eligible, eligibility_reason, return_window_days,
			is_within_return_window, is_product_returnable,
			return_reason, return_description, return_images,
			timestamps, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8,
			$9, $10, $11,
			$12, $13,
			$14, $15, $16,
			$17, $18
		)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		ret.ID,
		ret.RMANumber,
		ret.OrderID,
		ret.CustomerID,
		ret.SKU,
		ret.Quantity,
		ret.Status,
		ret.Version,
		ret.IsEligible,
		ret.EligibilityReason,
		ret.ReturnWindowDays,
		ret.IsWithinReturnWindow,
		ret.IsProductReturnable,
		ret.ReturnReason,
		ret.ReturnDescription,
		ret.ReturnImages,
		ret.Timestamps,
		ret.Notes,
	).Scan(&ret.CreatedAt, &ret.UpdatedAt)

	if err != nil {
		// The partial unique index on (order_id, sku) for open returns
		// catches concurrent creates the service-level check cannot see.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.NewDuplicateRequestError(ret.OrderID.String(), ret.SKU)
		}
		return fmt.Errorf("failed to create return request: %w", err)
	}

	return nil
}

// =====================================================
// GET RETURN
// =====================================================

func (r *postgresReturnRepository) GetReturnByID(ctx context.Context, returnID uuid.UUID) (*model.ReturnRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM return_requests
		WHERE id = $1
	`, returnColumns)

	ret, err := scanReturn(r.pool.QueryRow(ctx, query, returnID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to get return by id: %w", err)
	}

	return ret, nil
}

func (r *postgresReturnRepository) GetReturnByRMANumber(ctx context.Context, rmaNumber string) (*model.ReturnRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM return_requests
		WHERE rma_number = $1
	`, returnColumns)

	ret, err := scanReturn(r.pool.QueryRow(ctx, query, rmaNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to get return by rma number: %w", err)
	}

	return ret, nil
}

func (r *postgresReturnRepository) HasOpenReturn(ctx context.Context, orderID uuid.UUID, sku string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM return_requests
			WHERE order_id = $1
			  AND sku = $2
			  AND status NOT IN ($3, $4, $5, $6)
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query,
		orderID,
		sku,
		model.StatusRefundCompleted,
		model.StatusRejected,
		model.StatusInspectionRejected,
		model.StatusCancelled,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check open return: %w", err)
	}

	return exists, nil
}

// =====================================================
// VERSIONED UPDATE
// =====================================================

func (r *postgresReturnRepository) UpdateWithVersion(ctx context.Context, ret *model.ReturnRequest) error {
	query := `
		UPDATE return_requests
		SET status = $1,
			dealer_id = $2,
			is_eligible = $3,
			eligibility_reason = $4,
			is_within_return_window = $5,
			is_product_returnable = $6,
			pickup = $7,
			inspection = $8,
			refund = $9,
			timestamps = $10,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $11 AND version = $12
	`

	result, err := r.pool.Exec(ctx, query,
		ret.Status,
		ret.DealerID,
		ret.IsEligible,
		ret.EligibilityReason,
		ret.IsWithinReturnWindow,
		ret.IsProductReturnable,
		ret.Pickup,
		ret.Inspection,
		ret.Refund,
		ret.Timestamps,
		ret.ID,
		ret.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update return request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrVersionConflict
	}

	ret.Version++
	return nil
}

// =====================================================
// APPEND-ONLY WRITES
// =====================================================

// AppendNote uses a jsonb append so concurrent notes never clobber each
// other and never bump the lifecycle version.
func (r *postgresReturnRepository) AppendNote(ctx context.Context, returnID uuid.UUID, note model.Note) error {
	query := `
		UPDATE return_requests
		SET notes = COALESCE(notes, '[]'::jsonb) || $1::jsonb,
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, []model.Note{note}, returnID)
	if err != nil {
		return fmt.Errorf("failed to append note: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrReturnNotFound
	}

	return nil
}

func (r *postgresReturnRepository) AppendReturnImage(ctx context.Context, returnID uuid.UUID, imageURL string) error {
	query := `
		UPDATE return_requests
		SET return_images = COALESCE(return_images, '[]'::jsonb) || $1::jsonb,
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, []string{imageURL}, returnID)
	if err != nil {
		return fmt.Errorf("failed to append return image: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrReturnNotFound
	}

	return nil
}

func (r *postgresReturnRepository) AppendInspectionImage(ctx context.Context, returnID uuid.UUID, imageURL string) error {
	query := `
		UPDATE return_requests
		SET inspection = jsonb_set(
				COALESCE(inspection, '{}'::jsonb),
				'{images}',
				COALESCE(inspection->'images', '[]'::jsonb) || $1::jsonb
			),
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, []string{imageURL}, returnID)
	if err != nil {
		return fmt.Errorf("failed to append inspection image: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrReturnNotFound
	}

	return nil
}

// =====================================================
// LIST RETURNS
// =====================================================

func (r *postgresReturnRepository) ListReturns(ctx context.Context, filter model.ListReturnsFilter, page, limit int) ([]*model.ReturnRequest, int, error) {
	whereClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.OrderID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("order_id = $%d", argIdx))
		args = append(args, *filter.OrderID)
		argIdx++
	}

	if filter.CustomerID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("customer_id = $%d", argIdx))
		args = append(args, *filter.CustomerID)
		argIdx++
	}

	if filter.DealerID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("dealer_id = $%d", argIdx))
		args = append(args, *filter.DealerID)
		argIdx++
	}

	if filter.From != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *filter.To)
		argIdx++
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + utils.JoinWithAnd(whereClauses)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM return_requests %s`, whereSQL)

	offset := (page - 1) * limit
	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM return_requests
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, returnColumns, whereSQL, argIdx, argIdx+1)

	// Count and page run inside one transaction so the total matches
	// the rows returned.
	var total int
	returns, err := database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) ([]*model.ReturnRequest, error) {
		if err := tx.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, fmt.Errorf("failed to count returns: %w", err)
		}

		rows, err := tx.Query(ctx, listQuery, append(args, limit, offset)...)
		if err != nil {
			return nil, fmt.Errorf("failed to list returns: %w", err)
		}
		defer rows.Close()

		return collectReturns(rows)
	})
	if err != nil {
		return nil, 0, err
	}

	return returns, total, nil
}

func (r *postgresReturnRepository) ListReturnsByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*model.ReturnRequest, int, error) {
	filter := model.ListReturnsFilter{CustomerID: &customerID}
	return r.ListReturns(ctx, filter, page, limit)
}

func (r *postgresReturnRepository) ListStalePickups(ctx context.Context, cutoff time.Time, limit int) ([]*model.ReturnRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM return_requests
		WHERE status = $1
		  AND (timestamps->>'pickup_scheduled_at')::timestamptz < $2
		ORDER BY created_at ASC
		LIMIT $3
	`, returnColumns)

	rows, err := r.pool.Query(ctx, query, model.StatusPickupScheduled, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pickups: %w", err)
	}
	defer rows.Close()

	return collectReturns(rows)
}

func collectReturns(rows pgx.Rows) ([]*model.ReturnRequest, error) {
	var returns []*model.ReturnRequest
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		returns = append(returns, ret)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating returns: %w", rows.Err())
	}

	return returns, nil
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/returns/model"
)

// =====================================================
// RETURN REPOSITORY INTERFACE
// =====================================================

// ReturnRepository persists return requests. All status-bearing writes are
// version-checked; append-only fields (notes, images) are written without a
// version bump so they never race with lifecycle transitions.
type ReturnRepository interface {
	// Create
	CreateReturn(ctx context.Context, ret *model.ReturnRequest) error

	// Read
	GetReturnByID(ctx context.Context, returnID uuid.UUID) (*model.ReturnRequest, error)
	GetReturnByRMANumber(ctx context.Context, rmaNumber string) (*model.ReturnRequest, error)
	HasOpenReturn(ctx context.Context, orderID uuid.UUID, sku string) (bool, error)

	// UpdateWithVersion writes status, dealer assignment, eligibility
	// outcome and the stage blocks in one compare-and-swap on version.
	// Returns model.ErrVersionConflict when the row moved underneath us.
	// On success the in-memory version is bumped to match the row.
	UpdateWithVersion(ctx context.Context, ret *model.ReturnRequest) error

	// Append-only writes
	AppendNote(ctx context.Context, returnID uuid.UUID, note model.Note) error
	AppendReturnImage(ctx context.Context, returnID uuid.UUID, imageURL string) error
	AppendInspectionImage(ctx context.Context, returnID uuid.UUID, imageURL string) error

	// List
	ListReturns(ctx context.Context, filter model.ListReturnsFilter, page, limit int) ([]*model.ReturnRequest, int, error)
	ListReturnsByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*model.ReturnRequest, int, error)

	// ListStalePickups returns pickups still in pickup_scheduled whose
	// scheduled date is older than the cutoff, for the SLA watchdog.
	ListStalePickups(ctx context.Context, cutoff time.Time, limit int) ([]*model.ReturnRequest, error)
}

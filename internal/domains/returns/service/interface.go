package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/shared"
)

// =====================================================
// SERVICE INTERFACES
// =====================================================

// ReturnService drives the customer-facing part of the lifecycle:
// creation, validation, cancellation and reads.
type ReturnService interface {
	CreateReturn(ctx context.Context, actor shared.Actor, req model.CreateReturnRequest) (*model.ReturnRequest, error)
	ValidateReturn(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*model.ReturnRequest, error)
	CancelReturn(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req model.CancelReturnRequest) (*model.ReturnRequest, error)
	GetReturn(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*model.ReturnDetailResponse, error)
	ListReturns(ctx context.Context, actor shared.Actor, filter model.ListReturnsFilter, page, limit int) (*model.ListReturnsResponse, error)
	AddNote(ctx context.Context, actor shared.Actor, returnID uuid.UUID, text string) error
}

// InspectionService is the staff-side review of returned items.
type InspectionService interface {
	StartInspection(ctx context.Context, actor shared.Actor, returnID uuid.UUID) (*model.ReturnRequest, error)
	CompleteInspection(ctx context.Context, actor shared.Actor, returnID uuid.UUID, req model.CompleteInspectionRequest) (*model.ReturnRequest, error)
}

// =====================================================
// OUTBOUND PORTS
// =====================================================

// OrderLedger is the read-side view of the commerce system of record.
type OrderLedger interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*model.LedgerOrder, error)
}

// Directory resolves customer and dealer display info. Callers must
// tolerate failure: reads degrade to bare IDs when the directory is down.
type Directory interface {
	GetCustomer(ctx context.Context, customerID uuid.UUID) (*model.Party, error)
	GetDealer(ctx context.Context, dealerID uuid.UUID) (*model.Party, error)
}

// TaskEnqueuer is the slice of *asynq.Client the services use, kept as an
// interface so tests can capture enqueued tasks.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

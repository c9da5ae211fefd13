package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// REFUND ENTITY
// =====================================================

// Refund is the money-movement record for one approved return. The
// return record carries a denormalized summary; this row is the source
// of truth for the dispatch itself.
type Refund struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ReturnID uuid.UUID `json:"return_id" db:"return_id"`
	OrderID  uuid.UUID `json:"order_id" db:"order_id"`

	// Processor reference of the original payment, from the order ledger.
	PaymentID string `json:"payment_id" db:"payment_id"`

	Amount decimal.Decimal `json:"amount" db:"amount"`
	Method string          `json:"method" db:"method"` // online | manual
	Status string          `json:"status" db:"status"`

	// Processor-side tracking for online refunds
	ProcessorRefundID *string `json:"processor_refund_id,omitempty" db:"processor_refund_id"`
	ErrorCode         *string `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage      *string `json:"error_message,omitempty" db:"error_message"`

	// Manual path
	OperatorNote *string `json:"operator_note,omitempty" db:"operator_note"`

	InitiatedBy uuid.UUID `json:"initiated_by" db:"initiated_by"`

	InitiatedAt  time.Time  `json:"initiated_at" db:"initiated_at"`
	ProcessingAt *time.Time `json:"processing_at,omitempty" db:"processing_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	FailedAt     *time.Time `json:"failed_at,omitempty" db:"failed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsSettled reports whether money has moved; a settled refund must never
// be dispatched again.
func (r *Refund) IsSettled() bool {
	return r.Status == RefundStatusCompleted
}

// IsOpen reports whether the dispatch is still in flight.
func (r *Refund) IsOpen() bool {
	return r.Status == RefundStatusPending || r.Status == RefundStatusProcessing
}

// =====================================================
// WEBHOOK LOG ENTITY
// =====================================================

// ProcessedWebhook is one settled processor callback, kept for
// idempotency and audit.
type ProcessedWebhook struct {
	ID         uuid.UUID `json:"id" db:"id"`
	EventID    string    `json:"event_id" db:"event_id"`
	Gateway    string    `json:"gateway" db:"gateway"`
	EventType  string    `json:"event_type" db:"event_type"`
	Body       []byte    `json:"body" db:"body"`
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}

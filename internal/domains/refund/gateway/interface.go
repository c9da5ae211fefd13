package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// =====================================================
// GATEWAY INTERFACES
// =====================================================

// RefundProcessor is the payment-processor integration for online
// refunds.
type RefundProcessor interface {
	// CreateRefund asks the processor to refund part of a payment.
	CreateRefund(ctx context.Context, req CreateRefundRequest) (*ProcessorRefund, error)

	// FetchRefund reads the current processor-side state of a refund,
	// used by reconciliation.
	FetchRefund(ctx context.Context, processorRefundID string) (*ProcessorRefund, error)

	// VerifyWebhookSignature checks the settlement webhook HMAC over the
	// raw body.
	VerifyWebhookSignature(body []byte, signature string) bool

	// GatewayName identifies the processor on refund rows.
	GatewayName() string
}

// =====================================================
// COMMON REQUEST/RESPONSE TYPES
// =====================================================

// CreateRefundRequest dispatches one refund against an original payment.
type CreateRefundRequest struct {
	PaymentID string          // processor reference of the original payment
	Amount    decimal.Decimal // refund amount, major units
	Receipt   string          // our RMA number
	Notes     map[string]string
}

// Processor-side refund statuses, normalized.
const (
	ProcessorStatusPending   = "pending"
	ProcessorStatusProcessed = "processed"
	ProcessorStatusFailed    = "failed"
)

// ProcessorRefund is the processor's view of a refund.
type ProcessorRefund struct {
	RefundID string
	Status   string // one of the ProcessorStatus constants
	Amount   decimal.Decimal
}

// =====================================================
// GATEWAY ERRORS
// =====================================================

// ProcessorError carries the transient/permanent distinction. Financial
// operations are never blindly retried; the caller only uses Transient
// to decide wording for the operator, not to loop.
type ProcessorError struct {
	StatusCode int
	Code       string
	Message    string
	Transient  bool
}

func (e *ProcessorError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// IsTransient reports whether err was a network or 5xx class failure.
func IsTransient(err error) bool {
	var pErr *ProcessorError
	if errors.As(err, &pErr) {
		return pErr.Transient
	}
	return false
}

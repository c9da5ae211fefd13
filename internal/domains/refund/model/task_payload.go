package model

import (
	"github.com/google/uuid"
)

// ProcessRefundEventPayload carries one verified settlement webhook from
// the ingestion endpoint to the worker.
type ProcessRefundEventPayload struct {
	EventID           string `json:"event_id"`
	EventType         string `json:"event_type"`
	ProcessorRefundID string `json:"processor_refund_id"`
	ErrorCode         string `json:"error_code,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	Body              []byte `json:"body"`
}

// OperatorReviewPayload pushes a failed refund to the operator queue.
// Refunds are never auto-retried; a person decides what happens next.
type OperatorReviewPayload struct {
	RefundID uuid.UUID `json:"refund_id"`
	ReturnID uuid.UUID `json:"return_id"`
	Reason   string    `json:"reason"`
}

package model

// =====================================================
// SETTLEMENT WEBHOOK TYPES
// =====================================================
const (
	EventRefundProcessed = "refund.processed"
	EventRefundFailed    = "refund.failed"
)

// SettlementWebhookRequest is the processor's settlement notification.
// The envelope follows the Razorpay wire shape; the event id used for
// dedup arrives in the X-Razorpay-Event-Id header.
type SettlementWebhookRequest struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Refund WebhookRefundWrapper `json:"refund"`
}

type WebhookRefundWrapper struct {
	Entity WebhookRefundEntity `json:"entity"`
}

// WebhookRefundEntity is the refund object embedded in the event.
// Amount is in minor units, matching the processor API.
type WebhookRefundEntity struct {
	ID        string            `json:"id"`
	PaymentID string            `json:"payment_id"`
	Amount    int64             `json:"amount"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes,omitempty"`
}

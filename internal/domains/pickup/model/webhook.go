package model

// =====================================================
// BORZO WEBHOOK TYPES
// =====================================================

// Event types Borzo posts to the callback URL. Anything else is logged
// and ignored.
const (
	EventOrderCreated   = "order_created"
	EventCourierAsigned = "courier_assigned"
	EventPickedUp       = "picked_up"
	EventCompleted      = "completed"
	EventCanceled       = "canceled"
)

// BorzoWebhookRequest is the callback body. The HMAC signature arrives in
// the X-DV-Signature header and is verified against the raw body.
type BorzoWebhookRequest struct {
	EventType     string            `json:"event_type"`
	EventDatetime string            `json:"event_datetime"`
	Delivery      BorzoDeliveryData `json:"delivery"`
}

type BorzoDeliveryData struct {
	OrderID        string `json:"order_id"`
	Matter         string `json:"matter"` // our return id
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	TrackingURL    string `json:"tracking_url,omitempty"`
}

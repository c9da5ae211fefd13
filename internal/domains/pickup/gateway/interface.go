package gateway

import (
	"context"
	"errors"
	"time"

	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
)

// =====================================================
// GATEWAY INTERFACES
// =====================================================

// LogisticsGateway is the courier integration used for return pickups.
type LogisticsGateway interface {
	// CreateDelivery books a pickup. Idempotent on Matter: booking the
	// same matter twice returns the existing delivery.
	CreateDelivery(ctx context.Context, req CreateDeliveryRequest) (*Delivery, error)

	// CancelDelivery cancels a previously booked pickup.
	CancelDelivery(ctx context.Context, deliveryID string) error

	// VerifyCallbackSignature checks the webhook HMAC over the raw body.
	VerifyCallbackSignature(body []byte, signature string) bool

	// PartnerName identifies the partner on the return record.
	PartnerName() string
}

// =====================================================
// COMMON REQUEST/RESPONSE TYPES
// =====================================================

// CreateDeliveryRequest books a courier pickup of a returned item.
type CreateDeliveryRequest struct {
	Matter          string // our return id, the partner-side idempotency key
	Reference       string // RMA number, shown to the courier
	ScheduledDate   time.Time
	PickupAddress   returnsmodel.Address
	DeliveryAddress returnsmodel.Address
	ContactPhone    string
}

// Delivery is the booked pickup as the partner reports it.
type Delivery struct {
	DeliveryID     string
	Status         string
	TrackingNumber string
	TrackingURL    string
}

// =====================================================
// GATEWAY ERRORS
// =====================================================

// GatewayError classifies partner failures so the job layer can decide
// between retry (transient) and operator escalation (permanent).
type GatewayError struct {
	StatusCode int
	Message    string
	Transient  bool
}

func (e *GatewayError) Error() string {
	return e.Message
}

// IsTransient reports whether err is a partner failure worth retrying
// (timeouts, 5xx). Permanent failures go straight to the operator.
func IsTransient(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Transient
	}
	return false
}

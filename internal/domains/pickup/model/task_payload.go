package model

import (
	"time"

	"github.com/google/uuid"

	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
)

// SchedulePickupPayload carries a pickup booking to the worker.
type SchedulePickupPayload struct {
	ReturnID        uuid.UUID            `json:"return_id"`
	RMANumber       string               `json:"rma_number"`
	ScheduledDate   time.Time            `json:"scheduled_date"`
	PickupAddress   returnsmodel.Address `json:"pickup_address"`
	DeliveryAddress returnsmodel.Address `json:"delivery_address"`
}

// CancelPickupPayload asks the worker to cancel a live partner booking
// after the return itself has been cancelled.
type CancelPickupPayload struct {
	ReturnID uuid.UUID `json:"return_id"`
	PickupID string    `json:"pickup_id"`
}

// ProcessPickupEventPayload is one verified webhook event handed to the
// worker for lifecycle processing.
type ProcessPickupEventPayload struct {
	ReturnID       uuid.UUID `json:"return_id"`
	EventType      string    `json:"event_type"`
	EventDatetime  string    `json:"event_datetime"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	TrackingURL    string    `json:"tracking_url,omitempty"`
}

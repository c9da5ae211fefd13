package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// CREATE RETURN REQUEST
// =====================================================
type CreateReturnRequest struct {
	OrderID     uuid.UUID `json:"order_id" binding:"required"`
	SKU         string    `json:"sku" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required"`
	Reason      string    `json:"reason" binding:"required"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images,omitempty"`
}

func (req CreateReturnRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.OrderID, validation.Required),
		validation.Field(&req.SKU, validation.Required, validation.Length(1, 64)),
		validation.Field(&req.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&req.Reason, validation.Required, validation.Length(3, 200)),
		validation.Field(&req.Description, validation.Length(0, 2000)),
		validation.Field(&req.Images, validation.Length(0, 10)),
	)
}

// =====================================================
// SCHEDULE PICKUP REQUEST
// =====================================================
type SchedulePickupRequest struct {
	ScheduledDate   time.Time `json:"scheduled_date" binding:"required"`
	PickupAddress   Address   `json:"pickup_address" binding:"required"`
	DeliveryAddress Address   `json:"delivery_address" binding:"required"`
}

func (req SchedulePickupRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ScheduledDate, validation.Required),
		validation.Field(&req.PickupAddress, validation.Required),
		validation.Field(&req.DeliveryAddress, validation.Required),
	)
}

// Validate makes Address usable as a nested ozzo field.
func (a Address) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Line1, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.City, validation.Required),
		validation.Field(&a.State, validation.Required),
		validation.Field(&a.PostalCode, validation.Required, validation.Length(4, 10)),
	)
}

// =====================================================
// COMPLETE PICKUP REQUEST
// =====================================================
type CompletePickupRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

func (req CompletePickupRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.TrackingNumber, validation.Required, validation.Length(1, 64)),
	)
}

// =====================================================
// COMPLETE INSPECTION REQUEST
// =====================================================
type CompleteInspectionRequest struct {
	SKUMatch        bool     `json:"sku_match"`
	Images          []string `json:"images,omitempty"`
	IsApproved      bool     `json:"is_approved"`
	Condition       string   `json:"condition,omitempty"`
	ConditionNotes  string   `json:"condition_notes,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
}

func (req CompleteInspectionRequest) Validate() error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Condition, validation.In(
			ConditionNew,
			ConditionUsed,
			ConditionDamaged,
			ConditionWrongItem,
		)),
		validation.Field(&req.RejectionReason, validation.Length(0, 500)),
	)
	if err != nil {
		return err
	}

	// A rejection must always say why.
	if !req.IsApproved && req.RejectionReason == "" {
		return ErrRejectionReasonRequired
	}

	return nil
}

// =====================================================
// INITIATE REFUND REQUEST
// =====================================================
type InitiateRefundRequest struct {
	// Amount overrides the computed refund amount; zero means
	// "unit price x quantity" from the order ledger.
	Amount *decimal.Decimal `json:"amount,omitempty"`
	// Method overrides the configured default refund method.
	Method string `json:"method,omitempty"`
}

func (req InitiateRefundRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Method, validation.In(RefundMethodOnline, RefundMethodManual)),
	)
}

// =====================================================
// CANCEL RETURN REQUEST
// =====================================================
type CancelReturnRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (req CancelReturnRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Reason, validation.Required, validation.Length(3, 500)),
	)
}

// =====================================================
// LIST RETURNS
// =====================================================
type ListReturnsFilter struct {
	Status     string     `form:"status"`
	OrderID    *uuid.UUID `form:"order_id"`
	CustomerID *uuid.UUID `form:"customer_id"`
	DealerID   *uuid.UUID `form:"dealer_id"`
	From       *time.Time `form:"from"`
	To         *time.Time `form:"to"`
}

func (f ListReturnsFilter) Validate() error {
	if f.Status != "" && !IsValidStatus(f.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// =====================================================
// RESPONSES
// =====================================================

// ReturnDetailResponse is the return record enriched with directory data.
type ReturnDetailResponse struct {
	*ReturnRequest
	Customer *Party `json:"customer,omitempty"`
	Dealer   *Party `json:"dealer,omitempty"`
}

type ListReturnsResponse struct {
	Returns []*ReturnRequest `json:"returns"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	Total   int              `json:"total"`
}

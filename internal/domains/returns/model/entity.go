package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// RETURN STATUS CONSTANTS
// =====================================================
const (
	StatusRequested            = "requested"
	StatusValidated            = "validated"
	StatusPickupScheduled      = "pickup_scheduled"
	StatusPickupCompleted      = "pickup_completed"
	StatusInspectionInProgress = "inspection_in_progress"
	StatusInspectionApproved   = "inspection_approved"
	StatusInspectionRejected   = "inspection_rejected"
	StatusRefundInitiated      = "refund_initiated"
	StatusRefundCompleted      = "refund_completed"
	StatusRejected             = "rejected"
	StatusCancelled            = "cancelled"
)

var ValidStatuses = []string{
	StatusRequested,
	StatusValidated,
	StatusPickupScheduled,
	StatusPickupCompleted,
	StatusInspectionInProgress,
	StatusInspectionApproved,
	StatusInspectionRejected,
	StatusRefundInitiated,
	StatusRefundCompleted,
	StatusRejected,
	StatusCancelled,
}

// =====================================================
// REFUND METHOD CONSTANTS
// =====================================================
const (
	RefundMethodOnline = "online"
	RefundMethodManual = "manual"
)

// =====================================================
// ITEM CONDITION CONSTANTS
// =====================================================
const (
	ConditionNew       = "new"
	ConditionUsed      = "used"
	ConditionDamaged   = "damaged"
	ConditionWrongItem = "wrong_item"
)

// =====================================================
// ENTITY: ReturnRequest
// =====================================================

// ReturnRequest is one return claim for a single SKU within an order.
// The record is owned by the repository; all status mutation goes through
// version-checked updates driven by the lifecycle orchestrator.
type ReturnRequest struct {
	ID        uuid.UUID `json:"id" db:"id"`
	RMANumber string    `json:"rma_number" db:"rma_number"`

	// References
	OrderID    uuid.UUID  `json:"order_id" db:"order_id"`
	CustomerID uuid.UUID  `json:"customer_id" db:"customer_id"`
	DealerID   *uuid.UUID `json:"dealer_id,omitempty" db:"dealer_id"` // assigned post-validation
	SKU        string     `json:"sku" db:"sku"`
	Quantity   int        `json:"quantity" db:"quantity"`

	// Lifecycle
	Status  string `json:"status" db:"status"`
	Version int    `json:"version" db:"version"`

	// Eligibility
	IsEligible           bool   `json:"is_eligible" db:"is_eligible"`
	EligibilityReason    string `json:"eligibility_reason" db:"eligibility_reason"`
	ReturnWindowDays     int    `json:"return_window_days" db:"return_window_days"`
	IsWithinReturnWindow bool   `json:"is_within_return_window" db:"is_within_return_window"`
	IsProductReturnable  bool   `json:"is_product_returnable" db:"is_product_returnable"`

	// Customer narrative
	ReturnReason      string   `json:"return_reason" db:"return_reason"`
	ReturnDescription string   `json:"return_description" db:"return_description"`
	ReturnImages      []string `json:"return_images" db:"return_images"`

	// Stage blocks, present only once the stage has started
	Pickup     *PickupDetails `json:"pickup,omitempty" db:"pickup"`
	Inspection *Inspection    `json:"inspection,omitempty" db:"inspection"`
	Refund     *RefundSummary `json:"refund,omitempty" db:"refund"`

	// Audit
	Timestamps Timestamps `json:"timestamps" db:"timestamps"`
	Notes      []Note     `json:"notes" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PickupDetails records the logistics-partner pickup for the returned item.
type PickupDetails struct {
	PickupID         string     `json:"pickup_id"`
	LogisticsPartner string     `json:"logistics_partner"`
	ScheduledDate    time.Time  `json:"scheduled_date"`
	TrackingNumber   string     `json:"tracking_number,omitempty"`
	TrackingURL      string     `json:"tracking_url,omitempty"`
	PickupAddress    Address    `json:"pickup_address"`
	DeliveryAddress  Address    `json:"delivery_address"`
	CompletedDate    *time.Time `json:"completed_date,omitempty"`
	Attempts         int        `json:"attempts"`
}

// Inspection captures the staff review of the returned item.
type Inspection struct {
	SKUMatch        bool       `json:"sku_match"`
	Images          []string   `json:"images,omitempty"`
	IsApproved      bool       `json:"is_approved"`
	Condition       string     `json:"condition,omitempty"`
	ConditionNotes  string     `json:"condition_notes,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	InspectedAt     *time.Time `json:"inspected_at,omitempty"`
	InspectedBy     *uuid.UUID `json:"inspected_by,omitempty"`
}

// RefundSummary is the denormalized refund view on the return record.
// The refund domain owns the full refund row; this block keeps the return
// self-describing for reads and audits.
type RefundSummary struct {
	RefundID string          `json:"refund_id"`
	Amount   decimal.Decimal `json:"refund_amount"`
	Method   string          `json:"refund_method"` // online | manual
	Status   string          `json:"refund_status"`
}

// Address for pickup and delivery points.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone,omitempty"`
}

// Timestamps are set exactly once each as the return advances; the
// repository never overwrites an already-set stage timestamp.
type Timestamps struct {
	RequestedAt           time.Time  `json:"requested_at"`
	ValidatedAt           *time.Time `json:"validated_at,omitempty"`
	PickupScheduledAt     *time.Time `json:"pickup_scheduled_at,omitempty"`
	PickupCompletedAt     *time.Time `json:"pickup_completed_at,omitempty"`
	InspectionStartedAt   *time.Time `json:"inspection_started_at,omitempty"`
	InspectionCompletedAt *time.Time `json:"inspection_completed_at,omitempty"`
}

// Note is one entry of the append-only audit trail.
type Note struct {
	At   time.Time `json:"at"`
	By   string    `json:"by"` // actor id or "system"
	Text string    `json:"text"`
}

// =====================================================
// ENTITY HELPERS
// =====================================================

// IsTerminal reports whether the return has reached a final state.
func (r *ReturnRequest) IsTerminal() bool {
	return IsTerminalStatus(r.Status)
}

// CanStartInspection requires the physical item to be back before staff
// may open an inspection.
func (r *ReturnRequest) CanStartInspection() bool {
	return r.Status == StatusPickupCompleted &&
		r.Pickup != nil && r.Pickup.CompletedDate != nil
}

// CanCancel reports whether the cancellation window is still open.
// Once the item has been picked up the physical step is committed and
// the return must run to a terminal state.
func (r *ReturnRequest) CanCancel() bool {
	switch r.Status {
	case StatusRequested, StatusValidated, StatusPickupScheduled:
		return true
	}
	return false
}

// CanInitiateRefund requires an approved inspection.
func (r *ReturnRequest) CanInitiateRefund() bool {
	return r.Status == StatusInspectionApproved &&
		r.Inspection != nil && r.Inspection.IsApproved
}

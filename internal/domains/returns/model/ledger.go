package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// ORDER LEDGER TYPES (external read model)
// =====================================================

// LedgerOrder is the read-only view of an order served by the external
// Order Ledger. Eligibility evaluation never needs more than this.
type LedgerOrder struct {
	ID          uuid.UUID    `json:"id"`
	CustomerID  uuid.UUID    `json:"customer_id"`
	DealerID    *uuid.UUID   `json:"dealer_id,omitempty"`
	PaymentID   string       `json:"payment_id,omitempty"` // processor payment reference
	DeliveredAt *time.Time   `json:"delivered_at,omitempty"`
	Items       []LedgerItem `json:"items"`
}

// LedgerItem is one SKU line of a ledger order.
type LedgerItem struct {
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	ReturnedQuantity int             `json:"returned_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Returnable       bool            `json:"returnable"`
}

// Item looks up a SKU line. Returns nil when the order has no such SKU.
func (o *LedgerOrder) Item(sku string) *LedgerItem {
	for i := range o.Items {
		if o.Items[i].SKU == sku {
			return &o.Items[i]
		}
	}
	return nil
}

// IsDelivered reports whether the order has been delivered.
func (o *LedgerOrder) IsDelivered() bool {
	return o.DeliveredAt != nil
}

// =====================================================
// DIRECTORY TYPES (external read model)
// =====================================================

// Party is the display view of a customer or dealer from the directory.
// Lookup failures degrade to bare IDs; lifecycle correctness never
// depends on directory data.
type Party struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
	Email string    `json:"email,omitempty"`
}

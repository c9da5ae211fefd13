package service

import (
	"fmt"
	"time"

	"autoparts-returns-backend/internal/domains/returns/model"
)

// =====================================================
// ELIGIBILITY EVALUATOR
// =====================================================

// EligibilityPolicy holds the policy knobs; values come from config.
type EligibilityPolicy struct {
	ReturnWindowDays int
}

// Eligibility is the full outcome of one evaluation, recorded verbatim on
// the return request so the decision is auditable later.
type Eligibility struct {
	IsEligible           bool
	Reason               string
	ReturnWindowDays     int
	IsWithinReturnWindow bool
	IsProductReturnable  bool
}

// Evaluate decides whether the requested quantity of the SKU may be
// returned. Pure: same order, request and clock always give the same
// answer. The caller injects now.
func (p EligibilityPolicy) Evaluate(order *model.LedgerOrder, sku string, quantity int, now time.Time) Eligibility {
	out := Eligibility{
		ReturnWindowDays: p.ReturnWindowDays,
	}

	if !order.IsDelivered() {
		out.Reason = "order has not been delivered"
		return out
	}

	item := order.Item(sku)
	if item == nil {
		out.Reason = fmt.Sprintf("sku %s is not part of the order", sku)
		return out
	}

	out.IsProductReturnable = item.Returnable
	if !item.Returnable {
		out.Reason = fmt.Sprintf("sku %s is not returnable", sku)
		return out
	}

	windowEnd := order.DeliveredAt.AddDate(0, 0, p.ReturnWindowDays)
	out.IsWithinReturnWindow = !now.After(windowEnd)
	if !out.IsWithinReturnWindow {
		out.Reason = fmt.Sprintf("return window of %d days expired on %s",
			p.ReturnWindowDays, windowEnd.Format("2006-01-02"))
		return out
	}

	remaining := item.Quantity - item.ReturnedQuantity
	if quantity > remaining {
		out.Reason = fmt.Sprintf("requested quantity %d exceeds returnable quantity %d", quantity, remaining)
		return out
	}

	out.IsEligible = true
	return out
}

// Apply writes the evaluation outcome onto the return record.
func (e Eligibility) Apply(ret *model.ReturnRequest) {
	ret.IsEligible = e.IsEligible
	ret.EligibilityReason = e.Reason
	ret.ReturnWindowDays = e.ReturnWindowDays
	ret.IsWithinReturnWindow = e.IsWithinReturnWindow
	ret.IsProductReturnable = e.IsProductReturnable
}

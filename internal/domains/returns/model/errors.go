package model

import (
	"errors"
	"fmt"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeReturnNotFound           = "RET001"
	ErrCodeDuplicateRequest         = "RET002"
	ErrCodeInvalidOrderState        = "RET003"
	ErrCodeVersionConflict          = "RET004"
	ErrCodeInvalidTransition        = "RET005"
	ErrCodeNotEligible              = "RET006"
	ErrCodePickupNotCompleted       = "RET007"
	ErrCodeCancellationWindowClosed = "RET008"
	ErrCodeRejectionReasonRequired  = "RET009"
	ErrCodeUnauthorized             = "RET010"
	ErrCodeOrderLedgerUnavailable   = "RET011"
	ErrCodeInvalidStatus            = "RET012"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrReturnNotFound           = errors.New("return request not found")
	ErrOrderNotFound            = errors.New("order not found in ledger")
	ErrDuplicateRequest         = errors.New("an open return already exists for this order and SKU")
	ErrInvalidOrderState        = errors.New("order SKU is not in a returnable state")
	ErrVersionConflict          = errors.New("version conflict - concurrent modification detected")
	ErrInvalidTransition        = errors.New("invalid lifecycle transition")
	ErrNotEligible              = errors.New("return is not eligible")
	ErrPickupNotCompleted       = errors.New("pickup has not been completed")
	ErrCancellationWindowClosed = errors.New("cancellation window closed - item already picked up")
	ErrRejectionReasonRequired  = errors.New("rejection reason is required when inspection is not approved")
	ErrUnauthorized             = errors.New("unauthorized access")
	ErrOrderLedgerUnavailable   = errors.New("order ledger is unavailable")
	ErrInvalidStatus            = errors.New("invalid return status")
)

// =====================================================
// CUSTOM ERROR TYPE
// =====================================================

type ReturnError struct {
	Code    string
	Message string
	Err     error
}

func (e *ReturnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ReturnError) Unwrap() error {
	return e.Err
}

// NewReturnError creates a new return error
func NewReturnError(code, message string, err error) *ReturnError {
	return &ReturnError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewInvalidTransitionError(from, to string) *ReturnError {
	return NewReturnError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("cannot transition return from '%s' to '%s'", from, to),
		ErrInvalidTransition,
	)
}

func NewDuplicateRequestError(orderID, sku string) *ReturnError {
	return NewReturnError(
		ErrCodeDuplicateRequest,
		fmt.Sprintf("an open return already exists for order %s, SKU %s", orderID, sku),
		ErrDuplicateRequest,
	)
}

package model

import (
	"errors"
	"fmt"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeRefundNotFound          = "RFD001"
	ErrCodeAlreadyRefunded         = "RFD002"
	ErrCodeRefundProcessingFailed  = "RFD003"
	ErrCodeInvalidRefundAmount     = "RFD004"
	ErrCodeManualRefundOnly        = "RFD005"
	ErrCodeInvalidWebhookSignature = "RFD006"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrRefundNotFound          = errors.New("refund not found")
	ErrAlreadyRefunded         = errors.New("refund already completed for this return")
	ErrRefundProcessingFailed  = errors.New("refund processing failed at payment processor")
	ErrInvalidRefundAmount     = errors.New("refund amount must be positive and not exceed the order line total")
	ErrManualRefundOnly        = errors.New("manual completion is only valid for manual refunds")
	ErrInvalidWebhookSignature = errors.New("webhook signature verification failed")
)

// =====================================================
// CUSTOM ERROR TYPE
// =====================================================

type RefundError struct {
	Code    string
	Message string
	Err     error
}

func (e *RefundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RefundError) Unwrap() error {
	return e.Err
}

func NewRefundError(code, message string, err error) *RefundError {
	return &RefundError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

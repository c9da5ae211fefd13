package model

import (
	"errors"
	"fmt"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodePickupSchedulingFailed    = "PCK001"
	ErrCodeConflictingTrackingNumber = "PCK002"
	ErrCodePickupNotScheduled        = "PCK003"
	ErrCodeInvalidWebhookSignature   = "PCK004"
	ErrCodeInvalidWebhookPayload     = "PCK005"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrPickupSchedulingFailed    = errors.New("pickup scheduling failed at logistics partner")
	ErrConflictingTrackingNumber = errors.New("pickup already completed with a different tracking number")
	ErrPickupNotScheduled        = errors.New("no pickup has been scheduled for this return")
	ErrInvalidWebhookSignature   = errors.New("webhook signature verification failed")
	ErrInvalidWebhookPayload     = errors.New("webhook payload could not be parsed")
)

// =====================================================
// CUSTOM ERROR TYPE
// =====================================================

type PickupError struct {
	Code    string
	Message string
	Err     error
}

func (e *PickupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PickupError) Unwrap() error {
	return e.Err
}

func NewPickupError(code, message string, err error) *PickupError {
	return &PickupError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

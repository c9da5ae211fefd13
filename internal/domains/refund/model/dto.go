package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// =====================================================
// MANUAL COMPLETE REQUEST
// =====================================================
type ManualCompleteRequest struct {
	OperatorNote string `json:"operator_note" binding:"required"`
}

func (req ManualCompleteRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.OperatorNote, validation.Required, validation.Length(3, 500)),
	)
}

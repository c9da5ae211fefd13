package model

import (
	"github.com/google/uuid"
)

// ProcessReturnImagePayload for async return-image processing
type ProcessReturnImagePayload struct {
	ReturnID  uuid.UUID `json:"return_id"`
	ObjectKey string    `json:"object_key"`
	Kind      string    `json:"kind"` // "evidence" or "inspection"
}

// DeleteReturnImagesPayload for cleaning up objects of a rejected upload
type DeleteReturnImagesPayload struct {
	ReturnID   uuid.UUID `json:"return_id"`
	ObjectKeys []string  `json:"object_keys"`
}

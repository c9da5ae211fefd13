package model

// =====================================================
// REFUND STATUS CONSTANTS
// =====================================================
const (
	RefundStatusPending    = "pending"    // created, not yet dispatched / awaiting manual action
	RefundStatusProcessing = "processing" // accepted by the processor, settlement in flight
	RefundStatusCompleted  = "completed"  // money moved, terminal
	RefundStatusFailed     = "failed"     // dispatch failed, waiting on operator
)

// =====================================================
// REFUND METHOD CONSTANTS
// =====================================================
const (
	RefundMethodOnline = "online"
	RefundMethodManual = "manual"
)

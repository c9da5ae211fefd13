package model

// =====================================================
// LIFECYCLE STATE GRAPH
// =====================================================
//
// requested -> validated -> pickup_scheduled -> pickup_completed ->
// inspection_in_progress -> inspection_approved -> refund_initiated ->
// refund_completed
//
// Alternate exits: requested -> rejected (ineligible),
// inspection_in_progress -> inspection_rejected, and cancellation from any
// state before pickup_completed.

var transitions = map[string][]string{
	StatusRequested:            {StatusValidated, StatusRejected, StatusCancelled},
	StatusValidated:            {StatusPickupScheduled, StatusCancelled},
	StatusPickupScheduled:      {StatusPickupCompleted, StatusCancelled},
	StatusPickupCompleted:      {StatusInspectionInProgress},
	StatusInspectionInProgress: {StatusInspectionApproved, StatusInspectionRejected},
	StatusInspectionApproved:   {StatusRefundInitiated},
	StatusRefundInitiated:      {StatusRefundCompleted},
}

// statusRank orders statuses along the happy path; terminal side exits share
// the rank of the stage they leave from. Used to assert monotonic progress.
var statusRank = map[string]int{
	StatusRequested:            0,
	StatusValidated:            1,
	StatusPickupScheduled:      2,
	StatusPickupCompleted:      3,
	StatusInspectionInProgress: 4,
	StatusInspectionApproved:   5,
	StatusInspectionRejected:   5,
	StatusRefundInitiated:      6,
	StatusRefundCompleted:      7,
	StatusRejected:             1,
	StatusCancelled:            3,
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status has no outgoing transitions.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusRefundCompleted, StatusInspectionRejected, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// StatusRank returns the position of a status on the lifecycle, used to
// verify that observed status sequences never move backwards.
func StatusRank(status string) int {
	rank, ok := statusRank[status]
	if !ok {
		return -1
	}
	return rank
}

// IsValidStatus reports whether s is a known lifecycle status.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

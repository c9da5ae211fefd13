package shared

import "github.com/google/uuid"

// =====================================================
// TASK TYPES
// =====================================================
const (
	TypeSchedulePickup       = "pickup:schedule"
	TypeCancelPickup         = "pickup:cancel"
	TypeProcessPickupEvent   = "pickup:process_event"
	TypePickupSLACheck       = "pickup:sla_check"
	TypeProcessReturnImage   = "returns:process_image"
	TypeDeleteReturnImages   = "returns:delete_images"
	TypeProcessRefundEvent   = "refund:process_event"
	TypeRefundOperatorReview = "refund:operator_review"
	TypeReconcileRefunds     = "refund:reconcile"
	TypeCleanupWebhookLog    = "webhooks:cleanup_log"
)

// =====================================================
// QUEUES
// =====================================================
const (
	QueueHigh    = "high"
	QueueDefault = "default"
	QueueLow     = "low"
)

// =====================================================
// ACTOR (identity context)
// =====================================================

// Actor roles
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// Actor identifies who is performing a lifecycle command. It is extracted
// from the JWT by the auth middleware and passed into every transition;
// the orchestrator itself holds no session state.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  string
}

func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SystemActor is the identity used for webhook and job driven
// transitions, where no human is on the request path.
func SystemActor() Actor {
	return Actor{ID: uuid.Nil, Email: "system", Role: RoleAdmin}
}

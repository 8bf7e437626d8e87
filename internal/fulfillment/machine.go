package fulfillment

import (
	"fmt"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

// Action is a fulfillment transition request. Legality lives in one
// declarative table below instead of ad hoc checks scattered per handler, so
// the legal set is a closed, testable enum.
type Action string

const (
	ActionConfirm       Action = "confirm"
	ActionStartPrep     Action = "start_preparing"
	ActionMarkReady     Action = "mark_ready"
	ActionAccept        Action = "accept"
	ActionConfirmPickup Action = "confirm_pickup"
	ActionDeliver       Action = "deliver"
	ActionUnassign      Action = "unassign"
	ActionAssign        Action = "assign"
	ActionComplete      Action = "complete"
	ActionCancel        Action = "cancel"
	ActionRefund        Action = "refund"
)

type riderRequirement int

const (
	riderAny riderRequirement = iota
	riderMustBeUnassigned
	riderMustMatchActor
)

type rule struct {
	from         []domain.OrderStatus // nil means any non-terminal status
	except       []domain.OrderStatus // carved out of a nil from set
	to           domain.OrderStatus   // empty means the status does not change
	roles        []string
	rider        riderRequirement
	deliveryOnly bool
	needsReason  bool
	eventType    string
}

var transitions = map[Action]rule{
	ActionConfirm: {
		from:      []domain.OrderStatus{domain.OrderStatusPending},
		to:        domain.OrderStatusConfirmed,
		roles:     []string{domain.RoleVendor},
		eventType: domain.EventStatusChanged,
	},
	ActionStartPrep: {
		from:      []domain.OrderStatus{domain.OrderStatusConfirmed},
		to:        domain.OrderStatusPreparing,
		roles:     []string{domain.RoleVendor},
		eventType: domain.EventStatusChanged,
	},
	ActionMarkReady: {
		from:      []domain.OrderStatus{domain.OrderStatusPreparing},
		to:        domain.OrderStatusReadyForPickup,
		roles:     []string{domain.RoleVendor},
		eventType: domain.EventStatusChanged,
	},
	ActionAccept: {
		from:         []domain.OrderStatus{domain.OrderStatusReadyForPickup},
		to:           domain.OrderStatusOutForDelivery,
		roles:        []string{domain.RoleRider},
		rider:        riderMustBeUnassigned,
		deliveryOnly: true,
		eventType:    domain.EventRiderAccepted,
	},
	ActionConfirmPickup: {
		from:      []domain.OrderStatus{domain.OrderStatusOutForDelivery},
		roles:     []string{domain.RoleRider},
		rider:     riderMustMatchActor,
		eventType: domain.EventRiderPickedUp,
	},
	ActionDeliver: {
		from:      []domain.OrderStatus{domain.OrderStatusOutForDelivery},
		to:        domain.OrderStatusDelivered,
		roles:     []string{domain.RoleRider},
		rider:     riderMustMatchActor,
		eventType: domain.EventDelivered,
	},
	ActionUnassign: {
		except:      []domain.OrderStatus{domain.OrderStatusDelivered},
		to:          domain.OrderStatusReadyForPickup,
		roles:       []string{domain.RoleRider},
		rider:       riderMustMatchActor,
		needsReason: true,
		eventType:   domain.EventRiderUnassigned,
	},
	ActionAssign: {
		from:         []domain.OrderStatus{domain.OrderStatusPreparing, domain.OrderStatusReadyForPickup},
		to:           domain.OrderStatusOutForDelivery,
		roles:        []string{domain.RoleVendor},
		rider:        riderMustBeUnassigned,
		deliveryOnly: true,
		eventType:    domain.EventRiderAssigned,
	},
	ActionComplete: {
		from:      []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusReadyForPickup},
		to:        domain.OrderStatusCompleted,
		roles:     []string{domain.RoleVendor, domain.RoleSystem},
		eventType: domain.EventStatusChanged,
	},
	ActionCancel: {
		to:          domain.OrderStatusCancelled,
		roles:       []string{domain.RoleVendor, domain.RoleCustomer, domain.RoleSystem},
		needsReason: true,
		eventType:   domain.EventStatusChanged,
	},
	ActionRefund: {
		to:        domain.OrderStatusRefunded,
		roles:     []string{domain.RoleVendor, domain.RoleSystem},
		eventType: domain.EventStatusChanged,
	},
}

// Transition is the outcome of a legality check: the status to move to (or
// the current one when the action only records an event) and the event type
// to append.
type Transition struct {
	From      domain.OrderStatus
	To        domain.OrderStatus
	EventType string
}

// Eval applies the transition table to an order for (action, role, actor).
// It returns ErrIllegalTransition for a wrong status, wrong actor, missing
// rider precondition, or a non-delivery order on a rider action. Eval reads
// a snapshot; the repository repeats the precondition inside the UPDATE's
// WHERE clause so a concurrent writer loses cleanly instead of racing.
func Eval(order *domain.Order, action Action, role, actorID, reason string) (Transition, error) {
	r, ok := transitions[action]
	if !ok {
		return Transition{}, fmt.Errorf("unknown action %q: %w", action, domain.ErrIllegalTransition)
	}

	if !roleAllowed(r.roles, role) {
		return Transition{}, fmt.Errorf("role %s may not %s: %w", role, action, domain.ErrIllegalTransition)
	}

	if !statusAllowed(r, order.Status) {
		return Transition{}, fmt.Errorf("%s is not legal from %s: %w", action, order.Status, domain.ErrIllegalTransition)
	}

	if r.deliveryOnly && order.FulfillmentType != domain.FulfillmentDelivery {
		return Transition{}, fmt.Errorf("%s requires a delivery order: %w", action, domain.ErrIllegalTransition)
	}

	switch r.rider {
	case riderMustBeUnassigned:
		if order.Rider != nil {
			return Transition{}, fmt.Errorf("rider %s already assigned: %w", order.Rider.ID, domain.ErrIllegalTransition)
		}
	case riderMustMatchActor:
		if order.Rider == nil || order.Rider.ID != actorID {
			return Transition{}, fmt.Errorf("actor %s is not the assigned rider: %w", actorID, domain.ErrIllegalTransition)
		}
	}

	if r.needsReason && reason == "" {
		return Transition{}, fmt.Errorf("%s requires a reason: %w", action, domain.ErrIllegalTransition)
	}

	to := r.to
	if to == "" {
		to = order.Status
	}

	return Transition{From: order.Status, To: to, EventType: r.eventType}, nil
}

func roleAllowed(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func statusAllowed(r rule, status domain.OrderStatus) bool {
	if r.from == nil {
		if status.Terminal() {
			return false
		}
		for _, s := range r.except {
			if s == status {
				return false
			}
		}
		return true
	}
	for _, s := range r.from {
		if s == status {
			return true
		}
	}
	return false
}

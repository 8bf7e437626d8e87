package domain

import "time"

// Event types recorded in the audit trail and published to order.events.
const (
	EventOrderCreated    = "order_created"
	EventStatusChanged   = "status_changed"
	EventRiderAccepted   = "rider_accepted"
	EventRiderAssigned   = "rider_assigned"
	EventRiderPickedUp   = "rider_picked_up"
	EventDelivered       = "delivered"
	EventRiderUnassigned = "rider_unassigned"
)

// Actor roles stamped on order events.
const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleRider    = "rider"
	RoleSystem   = "system"
)

// OrderEventMessage is the payload published to the order.events topic for
// every fulfillment transition. The notification worker fans it out to
// customers and riders; publish failures never roll back the transition.
type OrderEventMessage struct {
	OrderID     string        `json:"order_id"`
	OrderNumber int64         `json:"order_number"`
	VendorID    string        `json:"vendor_id"`
	CustomerID  string        `json:"customer_id"`
	RiderID     string        `json:"rider_id,omitempty"`
	EventType   string        `json:"event_type"`
	ActorID     string        `json:"actor_id"`
	ActorRole   string        `json:"actor_role"`
	FromStatus  OrderStatus   `json:"from_status,omitempty"`
	ToStatus    OrderStatus   `json:"to_status,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Snapshot    MoneySnapshot `json:"snapshot"`
	Timestamp   time.Time     `json:"timestamp"`
}

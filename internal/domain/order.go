package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// Terminal reports whether no further transition may leave the status.
// Delivered is not terminal: it still moves to completed.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReadyForPickup, OrderStatusOutForDelivery,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled,
		OrderStatusRefunded:
		return true
	}
	return false
}

type FulfillmentType string

const (
	FulfillmentDelivery     FulfillmentType = "delivery"
	FulfillmentPickup       FulfillmentType = "pickup"
	FulfillmentSelfDelivery FulfillmentType = "self_delivery"
)

func (t FulfillmentType) Valid() bool {
	switch t {
	case FulfillmentDelivery, FulfillmentPickup, FulfillmentSelfDelivery:
		return true
	}
	return false
}

type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentFulfilled   FulfillmentStatus = "fulfilled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentRefunded PaymentStatus = "refunded"
)

// RiderIdentity is the stamp persisted on an order when a rider takes it.
type RiderIdentity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// MoneySnapshot freezes an order's totals at a point in time, in minor
// currency units. Every order event carries one so the audit trail replays
// independently of any later edit.
type MoneySnapshot struct {
	TotalAmount    int64 `json:"total_amount"`
	TaxAmount      int64 `json:"tax_amount"`
	DiscountAmount int64 `json:"discount_amount"`
	DeliveryFee    int64 `json:"delivery_fee"`
}

type Order struct {
	ID                string            `json:"id"`
	OrderNumber       int64             `json:"order_number"`
	VendorID          string            `json:"vendor_id"`
	CustomerID        string            `json:"customer_id"`
	Status            OrderStatus       `json:"status"`
	FulfillmentType   FulfillmentType   `json:"fulfillment_type"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	Rider             *RiderIdentity    `json:"rider,omitempty"`
	Currency          string            `json:"currency"`
	Totals            MoneySnapshot     `json:"totals"`
	Lines             []OrderLine       `json:"lines,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// OrderLine is an immutable snapshot taken at checkout. It never re-reads
// live catalog pricing.
type OrderLine struct {
	ID             string `json:"id"`
	OrderID        string `json:"-"`
	VariantID      string `json:"variant_id"`
	Title          string `json:"title"`
	UnitAmount     int64  `json:"unit_amount"`
	Quantity       int    `json:"quantity"`
	SubtotalAmount int64  `json:"subtotal_amount"`
	TaxAmount      int64  `json:"tax_amount"`
}

// OrderEvent is an append-only audit row. Rows are never mutated or deleted.
type OrderEvent struct {
	ID         string        `json:"id"`
	OrderID    string        `json:"order_id"`
	EventType  string        `json:"event_type"`
	ActorID    string        `json:"actor_id"`
	ActorRole  string        `json:"actor_role"`
	FromStatus OrderStatus   `json:"from_status,omitempty"`
	ToStatus   OrderStatus   `json:"to_status,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Snapshot   MoneySnapshot `json:"snapshot"`
	CreatedAt  time.Time     `json:"created_at"`
}

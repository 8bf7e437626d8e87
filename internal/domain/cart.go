package domain

import (
	"fmt"
	"time"
)

// CartTTL is the sliding expiry window refreshed on every cart mutation.
const CartTTL = 24 * time.Hour

// CartOwner identifies who a cart belongs to. Exactly one of CustomerID or
// SessionID must be set: customer carts survive login, session carts belong
// to anonymous shoppers until merged.
type CartOwner struct {
	CustomerID string `json:"customer_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

func (o CartOwner) Validate() error {
	if (o.CustomerID == "") == (o.SessionID == "") {
		return fmt.Errorf("exactly one of customer_id or session_id must be set")
	}
	return nil
}

// Key is the storage key enforcing one active cart per (owner, vendor) pair.
func (o CartOwner) Key() string {
	if o.CustomerID != "" {
		return "u:" + o.CustomerID
	}
	return "s:" + o.SessionID
}

func CustomerKey(customerID string) string { return "u:" + customerID }
func SessionKey(sessionID string) string   { return "s:" + sessionID }

type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id,omitempty"`
	SessionID  string     `json:"session_id,omitempty"`
	VendorID   string     `json:"vendor_id"`
	Currency   string     `json:"currency"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Lines      []CartLine `json:"lines"`
}

// Expired reports whether the cart is past its sliding window. An expired
// cart is treated as gone even before the reaper deletes the row.
func (c *Cart) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

type CartLine struct {
	ID        string `json:"id"`
	CartID    string `json:"-"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

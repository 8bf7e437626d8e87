package domain

import "time"

// Variant is the read model of a vendor-specific, priced, stocked SKU. The
// catalog service owns the authoritative data; the core only reads
// availability, stock and price tiers.
type Variant struct {
	ID        string    `json:"id"`
	VendorID  string    `json:"vendor_id"`
	Title     string    `json:"title"`
	Currency  string    `json:"currency"`
	Available bool      `json:"available"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
}

// PriceTier is a quantity-banded unit price for a variant. A nil MinQuantity
// means the band is open at 0, a nil MaxQuantity means it is open upward.
type PriceTier struct {
	ID          string `json:"id"`
	VariantID   string `json:"variant_id"`
	Currency    string `json:"currency"`
	BaseAmount  int64  `json:"base_amount"`
	SaleAmount  *int64 `json:"sale_amount,omitempty"`
	MinQuantity *int   `json:"min_quantity,omitempty"`
	MaxQuantity *int   `json:"max_quantity,omitempty"`
}

// Contains reports whether quantity falls inside the tier's band.
func (t PriceTier) Contains(quantity int) bool {
	if t.MinQuantity != nil && quantity < *t.MinQuantity {
		return false
	}
	if t.MaxQuantity != nil && quantity > *t.MaxQuantity {
		return false
	}
	return true
}

// Vendor is the read model of the organization provider's vendor profile.
// Coordinates may be absent when the vendor has not set a pickup point.
type Vendor struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

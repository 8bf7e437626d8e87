package dispatch

import (
	"context"
	"database/sql"
	"time"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

// Repository holds rider heartbeats and the read side of matching: unclaimed
// deliveries joined with their vendor's coordinates.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertLocation records a heartbeat. One row per rider; each beat replaces
// the previous position and restarts the staleness clock.
func (r *Repository) UpsertLocation(ctx context.Context, loc domain.RiderLocation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rider_locations (rider_id, latitude, longitude, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (rider_id)
		DO UPDATE SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`, loc.RiderID, loc.Latitude, loc.Longitude, loc.Status, time.Now().UTC())
	return err
}

func (r *Repository) GetLocation(ctx context.Context, riderID string) (*domain.RiderLocation, error) {
	loc := &domain.RiderLocation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT rider_id, latitude, longitude, status, updated_at
		FROM rider_locations
		WHERE rider_id = $1
	`, riderID).Scan(&loc.RiderID, &loc.Latitude, &loc.Longitude, &loc.Status, &loc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// ListOnline returns riders that are online and whose heartbeat is still
// fresh. Stale rows stay in the table but never reach matching.
func (r *Repository) ListOnline(ctx context.Context) ([]domain.RiderLocation, error) {
	cutoff := time.Now().UTC().Add(-domain.RiderLocationTTL)

	rows, err := r.db.QueryContext(ctx, `
		SELECT rider_id, latitude, longitude, status, updated_at
		FROM rider_locations
		WHERE status = $1 AND updated_at > $2
	`, domain.RiderOnline, cutoff)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	locations := []domain.RiderLocation{}
	for rows.Next() {
		var loc domain.RiderLocation
		if err := rows.Scan(&loc.RiderID, &loc.Latitude, &loc.Longitude, &loc.Status, &loc.UpdatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return locations, nil
}

// DeliveryCandidate is an unclaimed delivery order with its vendor's
// position, when the vendor has one on file.
type DeliveryCandidate struct {
	OrderID         string    `json:"order_id"`
	OrderNumber     int64     `json:"order_number"`
	VendorID        string    `json:"vendor_id"`
	VendorName      string    `json:"vendor_name"`
	TotalAmount     int64     `json:"total_amount"`
	DeliveryFee     int64     `json:"delivery_fee"`
	Currency        string    `json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
	VendorLatitude  *float64  `json:"vendor_latitude,omitempty"`
	VendorLongitude *float64  `json:"vendor_longitude,omitempty"`
}

// ListDeliveryCandidates returns every ready delivery order without a rider.
func (r *Repository) ListDeliveryCandidates(ctx context.Context) ([]DeliveryCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.order_number, o.vendor_id, COALESCE(v.name, ''),
			o.total_amount, o.delivery_fee, o.currency, o.created_at,
			v.latitude, v.longitude
		FROM orders o
		LEFT JOIN vendors v ON v.id = o.vendor_id
		WHERE o.status = $1 AND o.fulfillment_type = $2 AND o.rider_id IS NULL
		ORDER BY o.created_at
	`, domain.OrderStatusReadyForPickup, domain.FulfillmentDelivery)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	candidates := []DeliveryCandidate{}
	for rows.Next() {
		var c DeliveryCandidate
		if err := rows.Scan(&c.OrderID, &c.OrderNumber, &c.VendorID, &c.VendorName,
			&c.TotalAmount, &c.DeliveryFee, &c.Currency, &c.CreatedAt,
			&c.VendorLatitude, &c.VendorLongitude); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return candidates, nil
}

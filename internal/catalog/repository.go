package catalog

import (
	"context"
	"database/sql"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

// Repository reads the catalog projection the core depends on: variant
// availability, stock and price tiers. Catalog administration lives in
// another system; nothing here writes.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	variant := &domain.Variant{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, vendor_id, title, currency, available, stock, created_at
		FROM variants
		WHERE id = $1
	`, id).Scan(&variant.ID, &variant.VendorID, &variant.Title, &variant.Currency,
		&variant.Available, &variant.Stock, &variant.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return variant, nil
}

func (r *Repository) ListTiers(ctx context.Context, variantID, currency string) ([]domain.PriceTier, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, variant_id, currency, base_amount, sale_amount, min_quantity, max_quantity
		FROM price_tiers
		WHERE variant_id = $1 AND currency = $2
		ORDER BY min_quantity NULLS FIRST
	`, variantID, currency)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tiers []domain.PriceTier
	for rows.Next() {
		var t domain.PriceTier
		if err := rows.Scan(&t.ID, &t.VariantID, &t.Currency, &t.BaseAmount,
			&t.SaleAmount, &t.MinQuantity, &t.MaxQuantity); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tiers, nil
}

func (r *Repository) GetVendor(ctx context.Context, id string) (*domain.Vendor, error) {
	vendor := &domain.Vendor{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, latitude, longitude
		FROM vendors
		WHERE id = $1
	`, id).Scan(&vendor.ID, &vendor.Name, &vendor.Latitude, &vendor.Longitude)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return vendor, nil
}

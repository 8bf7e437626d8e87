package cart

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwondhaf/boxconv-sub001/internal/catalog"
	"github.com/mwondhaf/boxconv-sub001/internal/domain"
	"github.com/mwondhaf/boxconv-sub001/internal/pricing"
)

// Store owns carts and cart lines. The one-active-cart-per-(owner, vendor)
// invariant is enforced by the UNIQUE (owner_key, vendor_id) constraint and
// an atomic upsert, not by application-level find-then-create.
type Store struct {
	db       *sql.DB
	catalog  *catalog.Repository
	resolver *pricing.Resolver
}

func NewStore(db *sql.DB, catalogRepo *catalog.Repository, resolver *pricing.Resolver) *Store {
	return &Store{db: db, catalog: catalogRepo, resolver: resolver}
}

// GetOrCreate returns the owner's live cart for the vendor, creating or
// reviving one as needed. Safe under concurrent calls for the same pair:
// the upsert keyed on (owner_key, vendor_id) makes the race converge on a
// single row. Every return refreshes the sliding expiry.
func (s *Store) GetOrCreate(ctx context.Context, owner domain.CartOwner, vendorID, currency string) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if vendorID == "" {
		return nil, fmt.Errorf("vendor_id is required")
	}
	currency = s.resolver.Currency(currency)
	now := time.Now().UTC()
	expiresAt := now.Add(domain.CartTTL)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := lockCartByKey(ctx, tx, owner.Key(), vendorID)
	if err != nil {
		return nil, err
	}

	var cartID string
	switch {
	case existing == nil:
		cartID = uuid.New().String()
		// The conflict arm covers two requests inserting the same pair at
		// once: the loser adopts the winner's row.
		err = tx.QueryRowContext(ctx, `
			INSERT INTO carts (id, customer_id, session_id, owner_key, vendor_id, currency, expires_at, created_at, updated_at)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, $8)
			ON CONFLICT (owner_key, vendor_id) DO UPDATE
				SET expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at
			RETURNING id
		`, cartID, owner.CustomerID, owner.SessionID, owner.Key(), vendorID, currency, expiresAt, now).Scan(&cartID)
		if err != nil {
			return nil, err
		}

	case existing.Expired(now):
		// Revive the row as a fresh cart: the old contents are gone.
		cartID = existing.ID
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE carts SET currency = $2, expires_at = $3, created_at = $4, updated_at = $4
			WHERE id = $1
		`, cartID, currency, expiresAt, now); err != nil {
			return nil, err
		}

	default:
		cartID = existing.ID
		if _, err := tx.ExecContext(ctx, `
			UPDATE carts SET expires_at = $2, updated_at = $3 WHERE id = $1
		`, cartID, expiresAt, now); err != nil {
			return nil, err
		}
	}

	cart, err := loadCart(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}

	return cart, tx.Commit()
}

// Get returns the cart with its lines, or ErrNotFound. A cart past its
// expiry is never returned, even while the row still exists.
func (s *Store) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := loadCart(ctx, s.db, cartID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrNotFound
	}
	if cart.Expired(time.Now().UTC()) {
		return nil, domain.ErrCartExpired
	}
	return cart, nil
}

// AddItem applies a quantity delta to the cart's line for the variant. A new
// line is inserted only for a positive delta; a resulting quantity at or
// below zero deletes the line. The cart expiry refreshes on success.
func (s *Store) AddItem(ctx context.Context, cartID, variantID string, delta int) (*domain.Cart, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	cart, err := lockCartByID(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("cart %s: %w", cartID, domain.ErrNotFound)
	}
	if cart.Expired(now) {
		return nil, fmt.Errorf("cart %s: %w", cartID, domain.ErrCartExpired)
	}

	variant, err := s.catalog.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, fmt.Errorf("variant %s: %w", variantID, domain.ErrNotFound)
	}
	if !variant.Available {
		return nil, fmt.Errorf("variant %s: %w", variantID, domain.ErrUnavailable)
	}
	if variant.VendorID != cart.VendorID {
		return nil, fmt.Errorf("variant %s belongs to vendor %s: %w", variantID, variant.VendorID, domain.ErrCrossVendor)
	}

	if delta > 0 {
		var quantity int
		err = tx.QueryRowContext(ctx, `
			INSERT INTO cart_lines (id, cart_id, variant_id, quantity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (cart_id, variant_id) DO UPDATE
				SET quantity = cart_lines.quantity + EXCLUDED.quantity
			RETURNING quantity
		`, uuid.New().String(), cartID, variantID, delta).Scan(&quantity)
		if err != nil {
			return nil, err
		}
		if quantity <= 0 {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM cart_lines WHERE cart_id = $1 AND variant_id = $2
			`, cartID, variantID); err != nil {
				return nil, err
			}
		}
	} else {
		// A non-positive delta only ever shrinks an existing line; with no
		// line present it is a no-op.
		var quantity int
		err = tx.QueryRowContext(ctx, `
			UPDATE cart_lines SET quantity = quantity + $3
			WHERE cart_id = $1 AND variant_id = $2
			RETURNING quantity
		`, cartID, variantID, delta).Scan(&quantity)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if err == nil && quantity <= 0 {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM cart_lines WHERE cart_id = $1 AND variant_id = $2
			`, cartID, variantID); err != nil {
				return nil, err
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE carts SET expires_at = $2, updated_at = $3 WHERE id = $1
	`, cartID, now.Add(domain.CartTTL), now); err != nil {
		return nil, err
	}

	updated, err := loadCart(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}

	return updated, tx.Commit()
}

// Merge folds an anonymous session's cart into the customer's cart for the
// same vendor, in one transaction. Repeating a completed merge is a no-op
// because the guest cart no longer exists.
func (s *Store) Merge(ctx context.Context, sessionID, customerID, vendorID string) (*domain.Cart, error) {
	if sessionID == "" || customerID == "" {
		return nil, fmt.Errorf("session_id and customer_id are required")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(domain.CartTTL)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	guest, err := lockCartByKey(ctx, tx, domain.SessionKey(sessionID), vendorID)
	if err != nil {
		return nil, err
	}
	if guest != nil && guest.Expired(now) {
		guest = nil
	}
	if guest == nil {
		// Nothing to merge; hand back whatever the customer already has.
		owned, err := lockCartByKey(ctx, tx, domain.CustomerKey(customerID), vendorID)
		if err != nil {
			return nil, err
		}
		if owned == nil || owned.Expired(now) {
			return nil, tx.Commit()
		}
		cart, err := loadCart(ctx, tx, owned.ID)
		if err != nil {
			return nil, err
		}
		return cart, tx.Commit()
	}

	owned, err := lockCartByKey(ctx, tx, domain.CustomerKey(customerID), vendorID)
	if err != nil {
		return nil, err
	}
	if owned != nil && owned.Expired(now) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, owned.ID); err != nil {
			return nil, err
		}
		owned = nil
	}

	var targetID string
	if owned == nil {
		// Re-own the guest cart in place.
		targetID = guest.ID
		if _, err := tx.ExecContext(ctx, `
			UPDATE carts
			SET customer_id = $2, session_id = NULL, owner_key = $3, expires_at = $4, updated_at = $5
			WHERE id = $1
		`, guest.ID, customerID, domain.CustomerKey(customerID), expiresAt, now); err != nil {
			return nil, err
		}
	} else {
		targetID = owned.ID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_lines (id, cart_id, variant_id, quantity)
			SELECT gen_random_uuid()::text, $2, variant_id, quantity
			FROM cart_lines WHERE cart_id = $1
			ON CONFLICT (cart_id, variant_id) DO UPDATE
				SET quantity = cart_lines.quantity + EXCLUDED.quantity
		`, guest.ID, owned.ID); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, guest.ID); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE carts SET expires_at = $2, updated_at = $3 WHERE id = $1
		`, owned.ID, expiresAt, now); err != nil {
			return nil, err
		}
	}

	cart, err := loadCart(ctx, tx, targetID)
	if err != nil {
		return nil, err
	}

	return cart, tx.Commit()
}

// DeleteExpired removes carts past their expiry in a bounded batch and
// reports how many rows went. Lines go with the cart via ON DELETE CASCADE.
// Correctness does not depend on it; lookups already treat expired carts as
// gone. It only bounds storage.
func (s *Store) DeleteExpired(ctx context.Context, batch int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE id IN (
			SELECT id FROM carts WHERE expires_at < $1 LIMIT $2
		)
	`, time.Now().UTC(), batch)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func lockCartByKey(ctx context.Context, tx *sql.Tx, ownerKey, vendorID string) (*domain.Cart, error) {
	return scanCartRow(tx.QueryRowContext(ctx, `
		SELECT id, customer_id, session_id, vendor_id, currency, expires_at, created_at, updated_at
		FROM carts
		WHERE owner_key = $1 AND vendor_id = $2
		FOR UPDATE
	`, ownerKey, vendorID))
}

func lockCartByID(ctx context.Context, tx *sql.Tx, id string) (*domain.Cart, error) {
	return scanCartRow(tx.QueryRowContext(ctx, `
		SELECT id, customer_id, session_id, vendor_id, currency, expires_at, created_at, updated_at
		FROM carts
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func scanCartRow(row *sql.Row) (*domain.Cart, error) {
	cart := &domain.Cart{}
	var customerID, sessionID sql.NullString
	err := row.Scan(&cart.ID, &customerID, &sessionID, &cart.VendorID,
		&cart.Currency, &cart.ExpiresAt, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	cart.CustomerID = customerID.String
	cart.SessionID = sessionID.String
	return cart, nil
}

func loadCart(ctx context.Context, q querier, id string) (*domain.Cart, error) {
	cart, err := scanCartRow(q.QueryRowContext(ctx, `
		SELECT id, customer_id, session_id, vendor_id, currency, expires_at, created_at, updated_at
		FROM carts
		WHERE id = $1
	`, id))
	if err != nil || cart == nil {
		return cart, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, cart_id, variant_id, quantity
		FROM cart_lines
		WHERE cart_id = $1
		ORDER BY variant_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cart.Lines = []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ID, &line.CartID, &line.VariantID, &line.Quantity); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cart, nil
}

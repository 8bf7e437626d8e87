package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

// Issue is one finding from checkout validation. Blocking issues stop the
// checkout; warnings are informational so the customer sees the full picture
// in one pass instead of fixing problems one at a time.
type Issue struct {
	VariantID string `json:"variant_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

const (
	IssueVariantMissing     = "variant_missing"
	IssueVariantUnavailable = "variant_unavailable"
	IssueOutOfStock         = "out_of_stock"
	IssueInsufficientStock  = "insufficient_stock"
)

type PricedLine struct {
	VariantID  string `json:"variant_id"`
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
	OnSale     bool   `json:"on_sale"`
	Subtotal   int64  `json:"subtotal"`
}

type CheckoutReport struct {
	Errors   []Issue      `json:"errors"`
	Warnings []Issue      `json:"warnings"`
	Lines    []PricedLine `json:"lines"`
	Total    int64        `json:"total"`
	Currency string       `json:"currency"`
}

func (r *CheckoutReport) OK() bool {
	return len(r.Errors) == 0
}

// ValidateForCheckout re-fetches every line's variant and price from the
// live catalog. Client-supplied prices are never trusted; this is the
// authoritative re-pricing pass.
func (s *Store) ValidateForCheckout(ctx context.Context, cartID string) (*CheckoutReport, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	report := &CheckoutReport{
		Errors:   []Issue{},
		Warnings: []Issue{},
		Lines:    []PricedLine{},
		Currency: cart.Currency,
	}

	for _, line := range cart.Lines {
		variant, err := s.catalog.GetVariant(ctx, line.VariantID)
		if err != nil {
			return nil, err
		}
		if variant == nil {
			report.Errors = append(report.Errors, Issue{
				VariantID: line.VariantID,
				Code:      IssueVariantMissing,
				Message:   "variant no longer exists",
			})
			continue
		}
		if !variant.Available {
			report.Errors = append(report.Errors, Issue{
				VariantID: line.VariantID,
				Code:      IssueVariantUnavailable,
				Message:   "variant is no longer available",
			})
			continue
		}
		if variant.Stock <= 0 {
			report.Errors = append(report.Errors, Issue{
				VariantID: line.VariantID,
				Code:      IssueOutOfStock,
				Message:   "variant is out of stock",
			})
			continue
		}
		if line.Quantity > variant.Stock {
			report.Warnings = append(report.Warnings, Issue{
				VariantID: line.VariantID,
				Code:      IssueInsufficientStock,
				Message:   fmt.Sprintf("requested %d but only %d in stock", line.Quantity, variant.Stock),
			})
		}

		tiers, err := s.catalog.ListTiers(ctx, line.VariantID, cart.Currency)
		if err != nil {
			return nil, err
		}
		price := s.resolver.Resolve(tiers, line.Quantity)
		subtotal := price.UnitAmount * int64(line.Quantity)

		report.Lines = append(report.Lines, PricedLine{
			VariantID:  line.VariantID,
			Title:      variant.Title,
			Quantity:   line.Quantity,
			UnitAmount: price.UnitAmount,
			OnSale:     price.OnSale,
			Subtotal:   subtotal,
		})
		report.Total += subtotal
	}

	return report, nil
}

// Checkout turns a validated cart into an order: snapshot lines at live
// prices, a sequence-numbered order in pending state, the order_created
// audit event, and the cart deleted, all in one transaction. Checkout
// refuses while blocking validation errors exist.
func (s *Store) Checkout(ctx context.Context, cartID string, fulfillmentType domain.FulfillmentType, deliveryFee int64) (*domain.Order, *CheckoutReport, error) {
	if !fulfillmentType.Valid() {
		return nil, nil, fmt.Errorf("unknown fulfillment type %q", fulfillmentType)
	}
	if deliveryFee < 0 {
		return nil, nil, fmt.Errorf("delivery fee must not be negative")
	}

	report, err := s.ValidateForCheckout(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	if !report.OK() {
		return nil, report, domain.ErrCheckoutBlocked
	}
	if len(report.Lines) == 0 {
		return nil, report, fmt.Errorf("cart is empty: %w", domain.ErrCheckoutBlocked)
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	cart, err := lockCartByID(ctx, tx, cartID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, fmt.Errorf("cart %s: %w", cartID, domain.ErrNotFound)
	}
	if cart.Expired(now) {
		return nil, nil, fmt.Errorf("cart %s: %w", cartID, domain.ErrCartExpired)
	}

	order := &domain.Order{
		ID:                uuid.New().String(),
		VendorID:          cart.VendorID,
		CustomerID:        cart.CustomerID,
		Status:            domain.OrderStatusPending,
		FulfillmentType:   fulfillmentType,
		FulfillmentStatus: domain.FulfillmentUnfulfilled,
		PaymentStatus:     domain.PaymentPending,
		Currency:          cart.Currency,
		Totals: domain.MoneySnapshot{
			TotalAmount: report.Total + deliveryFee,
			DeliveryFee: deliveryFee,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, order_number, vendor_id, customer_id, status,
			fulfillment_type, fulfillment_status, payment_status, currency,
			total_amount, tax_amount, discount_amount, delivery_fee, created_at, updated_at)
		VALUES ($1, nextval('order_numbers'), $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING order_number
	`, order.ID, order.VendorID, order.CustomerID, order.Status,
		order.FulfillmentType, order.FulfillmentStatus, order.PaymentStatus, order.Currency,
		order.Totals.TotalAmount, order.Totals.TaxAmount, order.Totals.DiscountAmount,
		order.Totals.DeliveryFee, now).Scan(&order.OrderNumber)
	if err != nil {
		return nil, nil, err
	}

	for _, line := range report.Lines {
		ol := domain.OrderLine{
			ID:             uuid.New().String(),
			OrderID:        order.ID,
			VariantID:      line.VariantID,
			Title:          line.Title,
			UnitAmount:     line.UnitAmount,
			Quantity:       line.Quantity,
			SubtotalAmount: line.Subtotal,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, variant_id, title, unit_amount, quantity, subtotal_amount, tax_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, ol.ID, ol.OrderID, ol.VariantID, ol.Title, ol.UnitAmount, ol.Quantity,
			ol.SubtotalAmount, ol.TaxAmount); err != nil {
			return nil, nil, err
		}
		order.Lines = append(order.Lines, ol)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_events (id, order_id, event_type, actor_id, actor_role,
			from_status, to_status, total_amount, tax_amount, discount_amount, delivery_fee, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, $6, $7, $8, $9, $10, $11)
	`, uuid.New().String(), order.ID, domain.EventOrderCreated, order.CustomerID, domain.RoleCustomer,
		order.Status, order.Totals.TotalAmount, order.Totals.TaxAmount,
		order.Totals.DiscountAmount, order.Totals.DeliveryFee, now); err != nil {
		return nil, nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	return order, report, nil
}

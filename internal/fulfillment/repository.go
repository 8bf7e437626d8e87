package fulfillment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

// Repository persists orders, rider assignment and the append-only event
// trail. Guarded mutations repeat their precondition in the UPDATE's WHERE
// clause, so two actors racing the same order resolve at the database: the
// loser scans zero rows instead of clobbering the winner.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const orderColumns = `
	id, order_number, vendor_id, customer_id, status,
	fulfillment_type, fulfillment_status, payment_status,
	rider_id, rider_name, rider_phone, currency,
	total_amount, tax_amount, discount_amount, delivery_fee,
	created_at, updated_at
`

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil || order == nil {
		return order, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, variant_id, title, unit_amount, quantity, subtotal_amount, tax_amount
		FROM order_lines
		WHERE order_id = $1
		ORDER BY variant_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.VariantID, &line.Title,
			&line.UnitAmount, &line.Quantity, &line.SubtotalAmount, &line.TaxAmount); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// ListFilter narrows List; zero values mean no constraint.
type ListFilter struct {
	VendorID string
	Status   domain.OrderStatus
	RiderID  string
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	var args []any
	if filter.VendorID != "" {
		args = append(args, filter.VendorID)
		query += fmt.Sprintf(" AND vendor_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.RiderID != "" {
		args = append(args, filter.RiderID)
		query += fmt.Sprintf(" AND rider_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrderFrom(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *Repository) ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, event_type, actor_id, actor_role, from_status, to_status,
			reason, total_amount, tax_amount, discount_amount, delivery_fee, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := []domain.OrderEvent{}
	for rows.Next() {
		var ev domain.OrderEvent
		var fromStatus, toStatus, reason sql.NullString
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.EventType, &ev.ActorID, &ev.ActorRole,
			&fromStatus, &toStatus, &reason, &ev.Snapshot.TotalAmount, &ev.Snapshot.TaxAmount,
			&ev.Snapshot.DiscountAmount, &ev.Snapshot.DeliveryFee, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.FromStatus = domain.OrderStatus(fromStatus.String)
		ev.ToStatus = domain.OrderStatus(toStatus.String)
		ev.Reason = reason.String
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Accept stamps the rider and flips the order out for delivery, atomically
// failing unless the order is still ready, unassigned and a delivery order.
func (r *Repository) Accept(ctx context.Context, orderID string, rider domain.RiderIdentity, ev *domain.OrderEvent) (*domain.Order, error) {
	return r.guarded(ctx, orderID, ev, `
		UPDATE orders
		SET status = $2, rider_id = $3, rider_name = $4, rider_phone = $5, updated_at = $6
		WHERE id = $1 AND status = $7 AND rider_id IS NULL AND fulfillment_type = $8
		RETURNING `+orderColumns,
		domain.OrderStatusOutForDelivery, rider.ID, rider.Name, rider.Phone, time.Now().UTC(),
		domain.OrderStatusReadyForPickup, domain.FulfillmentDelivery)
}

// Assign is the vendor's manual dispatch; same effect as Accept but also
// legal while the order is still preparing.
func (r *Repository) Assign(ctx context.Context, orderID string, rider domain.RiderIdentity, ev *domain.OrderEvent) (*domain.Order, error) {
	return r.guarded(ctx, orderID, ev, `
		UPDATE orders
		SET status = $2, rider_id = $3, rider_name = $4, rider_phone = $5, updated_at = $6
		WHERE id = $1 AND status IN ($7, $8) AND rider_id IS NULL AND fulfillment_type = $9
		RETURNING `+orderColumns,
		domain.OrderStatusOutForDelivery, rider.ID, rider.Name, rider.Phone, time.Now().UTC(),
		domain.OrderStatusPreparing, domain.OrderStatusReadyForPickup, domain.FulfillmentDelivery)
}

// Deliver marks the order delivered, fulfilled and captured. Cash on
// delivery: handing over the goods is the capture.
func (r *Repository) Deliver(ctx context.Context, orderID, riderID string, ev *domain.OrderEvent) (*domain.Order, error) {
	return r.guarded(ctx, orderID, ev, `
		UPDATE orders
		SET status = $2, fulfillment_status = $3, payment_status = $4, updated_at = $5
		WHERE id = $1 AND status = $6 AND rider_id = $7
		RETURNING `+orderColumns,
		domain.OrderStatusDelivered, domain.FulfillmentFulfilled, domain.PaymentCaptured,
		time.Now().UTC(), domain.OrderStatusOutForDelivery, riderID)
}

// Unassign clears the rider and reverts the order to ready_for_pickup.
func (r *Repository) Unassign(ctx context.Context, orderID, riderID string, ev *domain.OrderEvent) (*domain.Order, error) {
	return r.guarded(ctx, orderID, ev, `
		UPDATE orders
		SET status = $2, rider_id = NULL, rider_name = NULL, rider_phone = NULL, updated_at = $3
		WHERE id = $1 AND status <> $4 AND rider_id = $5
		RETURNING `+orderColumns,
		domain.OrderStatusReadyForPickup, time.Now().UTC(),
		domain.OrderStatusDelivered, riderID)
}

// UpdateStatus moves the order between two statuses already vetted by the
// transition table.
func (r *Repository) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, ev *domain.OrderEvent) (*domain.Order, error) {
	return r.guarded(ctx, orderID, ev, `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+orderColumns,
		to, time.Now().UTC(), from)
}

// AppendEventOnly records an audit event without touching the order row,
// used for rider milestones that do not change status. Calling it twice
// appends two rows; the trail is deliberately not deduplicated.
func (r *Repository) AppendEventOnly(ctx context.Context, order *domain.Order, ev *domain.OrderEvent) error {
	ev.ID = uuid.New().String()
	ev.OrderID = order.ID
	ev.Snapshot = order.Totals
	ev.CreatedAt = time.Now().UTC()
	return insertEvent(ctx, r.db, ev)
}

// guarded runs one conditional UPDATE and appends the audit event in the
// same transaction. Zero rows back means the precondition no longer held
// when the write landed; a re-read tells a missing order apart from one a
// concurrent writer got to first.
func (r *Repository) guarded(ctx context.Context, orderID string, ev *domain.OrderEvent, query string, args ...any) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	all := append([]any{orderID}, args...)
	order, err := scanOrder(tx.QueryRowContext(ctx, query, all...))
	if err != nil {
		return nil, err
	}
	if order == nil {
		existing, err := scanOrder(tx.QueryRowContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("order %s changed underneath: %w", orderID, domain.ErrIllegalTransition)
	}

	ev.ID = uuid.New().String()
	ev.OrderID = order.ID
	ev.Snapshot = order.Totals
	ev.CreatedAt = order.UpdatedAt
	if err := insertEvent(ctx, tx, ev); err != nil {
		return nil, err
	}

	return order, tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEvent(ctx context.Context, e execer, ev *domain.OrderEvent) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO order_events (id, order_id, event_type, actor_id, actor_role,
			from_status, to_status, reason, total_amount, tax_amount, discount_amount, delivery_fee, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, $13)
	`, ev.ID, ev.OrderID, ev.EventType, ev.ActorID, ev.ActorRole,
		string(ev.FromStatus), string(ev.ToStatus), ev.Reason,
		ev.Snapshot.TotalAmount, ev.Snapshot.TaxAmount, ev.Snapshot.DiscountAmount,
		ev.Snapshot.DeliveryFee, ev.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderFrom(s rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var customerID, riderID, riderName, riderPhone sql.NullString
	err := s.Scan(&order.ID, &order.OrderNumber, &order.VendorID, &customerID, &order.Status,
		&order.FulfillmentType, &order.FulfillmentStatus, &order.PaymentStatus,
		&riderID, &riderName, &riderPhone, &order.Currency,
		&order.Totals.TotalAmount, &order.Totals.TaxAmount,
		&order.Totals.DiscountAmount, &order.Totals.DeliveryFee,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.CustomerID = customerID.String
	if riderID.Valid {
		order.Rider = &domain.RiderIdentity{
			ID:    riderID.String,
			Name:  riderName.String,
			Phone: riderPhone.String,
		}
	}
	return order, nil
}

func scanOrder(row *sql.Row) (*domain.Order, error) {
	order, err := scanOrderFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return order, err
}

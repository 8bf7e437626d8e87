package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
	"github.com/mwondhaf/boxconv-sub001/internal/messaging"
)

// Command is one requested transition with everything needed to judge it:
// who is asking, in what role, and for assignment actions which rider.
type Command struct {
	Action  Action
	Role    string
	ActorID string
	Reason  string
	Rider   *domain.RiderIdentity
}

// Engine ties the transition table to storage and the event stream. Eval
// judges the request against a snapshot; the repository re-checks the same
// precondition inside the UPDATE, so a command that loses a race comes back
// as an illegal transition rather than a double write.
type Engine struct {
	repo     *Repository
	producer *messaging.Producer
	logger   *slog.Logger
}

func NewEngine(repo *Repository, producer *messaging.Producer, logger *slog.Logger) *Engine {
	return &Engine{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// Apply executes one command against an order and returns the updated order.
// The audit event is written in the same transaction as the status change;
// the kafka publish happens after commit and its failure is only logged.
func (e *Engine) Apply(ctx context.Context, orderID string, cmd Command) (*domain.Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}

	tr, err := Eval(order, cmd.Action, cmd.Role, cmd.ActorID, cmd.Reason)
	if err != nil {
		return nil, err
	}

	ev := &domain.OrderEvent{
		EventType:  tr.EventType,
		ActorID:    cmd.ActorID,
		ActorRole:  cmd.Role,
		FromStatus: tr.From,
		ToStatus:   tr.To,
		Reason:     cmd.Reason,
	}

	var updated *domain.Order
	switch cmd.Action {
	case ActionAccept:
		updated, err = e.repo.Accept(ctx, orderID, riderFor(cmd), ev)
	case ActionAssign:
		updated, err = e.repo.Assign(ctx, orderID, riderFor(cmd), ev)
	case ActionDeliver:
		updated, err = e.repo.Deliver(ctx, orderID, cmd.ActorID, ev)
	case ActionUnassign:
		updated, err = e.repo.Unassign(ctx, orderID, cmd.ActorID, ev)
	case ActionConfirmPickup:
		err = e.repo.AppendEventOnly(ctx, order, ev)
		updated = order
	default:
		updated, err = e.repo.UpdateStatus(ctx, orderID, tr.From, tr.To, ev)
	}
	if err != nil {
		return nil, err
	}

	e.publish(ctx, updated, ev)

	return updated, nil
}

// riderFor resolves the identity to stamp on the order: the body's rider for
// vendor assignment, otherwise the acting rider.
func riderFor(cmd Command) domain.RiderIdentity {
	if cmd.Rider != nil {
		return *cmd.Rider
	}
	return domain.RiderIdentity{ID: cmd.ActorID}
}

func (e *Engine) publish(ctx context.Context, order *domain.Order, ev *domain.OrderEvent) {
	if e.producer == nil {
		return
	}

	msg := domain.OrderEventMessage{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		VendorID:    order.VendorID,
		CustomerID:  order.CustomerID,
		EventType:   ev.EventType,
		ActorID:     ev.ActorID,
		ActorRole:   ev.ActorRole,
		FromStatus:  ev.FromStatus,
		ToStatus:    ev.ToStatus,
		Reason:      ev.Reason,
		Snapshot:    order.Totals,
		Timestamp:   time.Now().UTC(),
	}
	if order.Rider != nil {
		msg.RiderID = order.Rider.ID
	}

	if err := e.producer.Publish(ctx, order.ID, msg); err != nil {
		e.logger.Error("failed to publish order event",
			"error", err, "order_id", order.ID, "event_type", ev.EventType)
	}
}

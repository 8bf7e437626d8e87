package fulfillment

import (
	"errors"
	"testing"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

func deliveryOrder(status domain.OrderStatus, rider *domain.RiderIdentity) *domain.Order {
	return &domain.Order{
		ID:              "order-1",
		Status:          status,
		FulfillmentType: domain.FulfillmentDelivery,
		Rider:           rider,
	}
}

func TestEval_Accept(t *testing.T) {
	t.Run("legal from ready_for_pickup with no rider", func(t *testing.T) {
		tr, err := Eval(deliveryOrder(domain.OrderStatusReadyForPickup, nil), ActionAccept, domain.RoleRider, "r1", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.To != domain.OrderStatusOutForDelivery {
			t.Fatalf("expected out_for_delivery, got %s", tr.To)
		}
		if tr.EventType != domain.EventRiderAccepted {
			t.Fatalf("expected rider_accepted event, got %s", tr.EventType)
		}
	})

	t.Run("illegal when a rider is already assigned", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusReadyForPickup, &domain.RiderIdentity{ID: "r1"})
		_, err := Eval(order, ActionAccept, domain.RoleRider, "r2", "")
		if !errors.Is(err, domain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})

	t.Run("illegal from every other status", func(t *testing.T) {
		for _, status := range []domain.OrderStatus{
			domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusPreparing,
			domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered,
			domain.OrderStatusCompleted, domain.OrderStatusCancelled,
		} {
			_, err := Eval(deliveryOrder(status, nil), ActionAccept, domain.RoleRider, "r1", "")
			if !errors.Is(err, domain.ErrIllegalTransition) {
				t.Fatalf("status %s: expected ErrIllegalTransition, got %v", status, err)
			}
		}
	})

	t.Run("illegal for pickup orders", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusReadyForPickup, nil)
		order.FulfillmentType = domain.FulfillmentPickup
		_, err := Eval(order, ActionAccept, domain.RoleRider, "r1", "")
		if !errors.Is(err, domain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})
}

func TestEval_Deliver(t *testing.T) {
	t.Run("legal for assigned rider out for delivery", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusOutForDelivery, &domain.RiderIdentity{ID: "r1"})
		tr, err := Eval(order, ActionDeliver, domain.RoleRider, "r1", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.To != domain.OrderStatusDelivered {
			t.Fatalf("expected delivered, got %s", tr.To)
		}
	})

	t.Run("illegal for a different rider", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusOutForDelivery, &domain.RiderIdentity{ID: "r1"})
		_, err := Eval(order, ActionDeliver, domain.RoleRider, "r2", "")
		if !errors.Is(err, domain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})

	t.Run("illegal from any status but out_for_delivery", func(t *testing.T) {
		for _, status := range []domain.OrderStatus{
			domain.OrderStatusPending, domain.OrderStatusReadyForPickup,
			domain.OrderStatusDelivered, domain.OrderStatusCancelled,
		} {
			order := deliveryOrder(status, &domain.RiderIdentity{ID: "r1"})
			_, err := Eval(order, ActionDeliver, domain.RoleRider, "r1", "")
			if !errors.Is(err, domain.ErrIllegalTransition) {
				t.Fatalf("status %s: expected ErrIllegalTransition, got %v", status, err)
			}
		}
	})
}

func TestEval_ConfirmPickup(t *testing.T) {
	t.Run("keeps status and records an event", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusOutForDelivery, &domain.RiderIdentity{ID: "r1"})
		tr, err := Eval(order, ActionConfirmPickup, domain.RoleRider, "r1", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.To != domain.OrderStatusOutForDelivery {
			t.Fatalf("expected status unchanged, got %s", tr.To)
		}
		if tr.EventType != domain.EventRiderPickedUp {
			t.Fatalf("expected rider_picked_up event, got %s", tr.EventType)
		}
	})

	t.Run("illegal for the wrong rider", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusOutForDelivery, &domain.RiderIdentity{ID: "r1"})
		_, err := Eval(order, ActionConfirmPickup, domain.RoleRider, "r2", "")
		if !errors.Is(err, domain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})
}

func TestEval_Unassign(t *testing.T) {
	t.Run("reverts to ready_for_pickup with a reason", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusOutForDelivery, &domain.RiderIdentity{ID: "r1"})
		tr, err := Eval(order, ActionUnassign, domain.RoleRider, "r1", "bike breakdown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.To != domain.OrderStatusReadyForPickup {
			t.Fatalf("expected ready_for_pickup, got %s", tr.To)
		}
	})

	t.Run("reason is required", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusOutForDelivery, &domain.RiderIdentity{ID: "r1"})
		if _, err := Eval(order, ActionUnassign, domain.RoleRider, "r1", ""); err == nil {
			t.Fatal("expected error for missing reason")
		}
	})

	t.Run("illegal once delivered", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusDelivered, &domain.RiderIdentity{ID: "r1"})
		_, err := Eval(order, ActionUnassign, domain.RoleRider, "r1", "whatever")
		if !errors.Is(err, domain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})
}

func TestEval_Assign(t *testing.T) {
	t.Run("vendor assigns from preparing", func(t *testing.T) {
		tr, err := Eval(deliveryOrder(domain.OrderStatusPreparing, nil), ActionAssign, domain.RoleVendor, "v1", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.To != domain.OrderStatusOutForDelivery {
			t.Fatalf("expected out_for_delivery, got %s", tr.To)
		}
		if tr.EventType != domain.EventRiderAssigned {
			t.Fatalf("expected rider_assigned event, got %s", tr.EventType)
		}
	})

	t.Run("illegal with a rider already assigned", func(t *testing.T) {
		order := deliveryOrder(domain.OrderStatusReadyForPickup, &domain.RiderIdentity{ID: "r1"})
		_, err := Eval(order, ActionAssign, domain.RoleVendor, "v1", "")
		if !errors.Is(err, domain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})

	t.Run("illegal for riders", func(t *testing.T) {
		_, err := Eval(deliveryOrder(domain.OrderStatusPreparing, nil), ActionAssign, domain.RoleRider, "r1", "")
		if !errors.Is(err, domain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})
}

func TestEval_CancelAndRefund(t *testing.T) {
	t.Run("cancel works from any non-terminal state", func(t *testing.T) {
		for _, status := range []domain.OrderStatus{
			domain.OrderStatusPending, domain.OrderStatusPreparing,
			domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered,
		} {
			tr, err := Eval(deliveryOrder(status, nil), ActionCancel, domain.RoleVendor, "v1", "customer asked")
			if err != nil {
				t.Fatalf("status %s: unexpected error: %v", status, err)
			}
			if tr.To != domain.OrderStatusCancelled {
				t.Fatalf("expected cancelled, got %s", tr.To)
			}
		}
	})

	t.Run("cancel is illegal from terminal states", func(t *testing.T) {
		for _, status := range []domain.OrderStatus{
			domain.OrderStatusCompleted, domain.OrderStatusCancelled, domain.OrderStatusRefunded,
		} {
			_, err := Eval(deliveryOrder(status, nil), ActionCancel, domain.RoleVendor, "v1", "too late")
			if !errors.Is(err, domain.ErrIllegalTransition) {
				t.Fatalf("status %s: expected ErrIllegalTransition, got %v", status, err)
			}
		}
	})

	t.Run("refund is illegal for customers", func(t *testing.T) {
		_, err := Eval(deliveryOrder(domain.OrderStatusDelivered, nil), ActionRefund, domain.RoleCustomer, "c1", "")
		if !errors.Is(err, domain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})
}

func TestEval_VendorLifecycle(t *testing.T) {
	order := deliveryOrder(domain.OrderStatusPending, nil)
	steps := []struct {
		action Action
		want   domain.OrderStatus
	}{
		{ActionConfirm, domain.OrderStatusConfirmed},
		{ActionStartPrep, domain.OrderStatusPreparing},
		{ActionMarkReady, domain.OrderStatusReadyForPickup},
	}
	for _, step := range steps {
		tr, err := Eval(order, step.action, domain.RoleVendor, "v1", "")
		if err != nil {
			t.Fatalf("%s from %s: unexpected error: %v", step.action, order.Status, err)
		}
		if tr.To != step.want {
			t.Fatalf("%s: expected %s, got %s", step.action, step.want, tr.To)
		}
		order.Status = tr.To
	}

	if _, err := Eval(order, ActionConfirm, domain.RoleVendor, "v1", ""); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for repeated confirm, got %v", err)
	}
}

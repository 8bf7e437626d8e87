package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

// NotificationHandler consumes order events and fans each one out to the
// interested parties through the notify service. Delivery is best effort: a
// failed send is logged and the message still commits, so a flaky provider
// never wedges the consumer group on one event.
type NotificationHandler struct {
	notifyServiceURL string
	httpClient       *http.Client
	logger           *slog.Logger
}

func NewNotificationHandler(notifyServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifyServiceURL: notifyServiceURL,
		httpClient:       client,
		logger:           logger,
	}
}

type notification struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEventMessage
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	h.logger.Info("processing order event",
		"order_id", event.OrderID, "event_type", event.EventType, "to_status", event.ToStatus)

	for _, n := range notificationsFor(event) {
		if err := h.send(ctx, n); err != nil {
			h.logger.Error("failed to send notification",
				"error", err, "order_id", event.OrderID, "recipient", n.Recipient)
		}
	}

	return nil
}

// notificationsFor maps an order event to its recipients. Guest checkouts
// have no customer id and simply produce no customer notification.
func notificationsFor(event domain.OrderEventMessage) []notification {
	order := fmt.Sprintf("#%d", event.OrderNumber)
	var out []notification

	toCustomer := func(subject, body string) {
		if event.CustomerID == "" {
			return
		}
		out = append(out, notification{
			Channel:   "push",
			Recipient: event.CustomerID,
			Subject:   subject,
			Body:      body,
		})
	}
	toRider := func(subject, body string) {
		if event.RiderID == "" {
			return
		}
		out = append(out, notification{
			Channel:   "push",
			Recipient: event.RiderID,
			Subject:   subject,
			Body:      body,
		})
	}

	switch event.EventType {
	case domain.EventOrderCreated:
		toCustomer("Order placed: "+order,
			fmt.Sprintf("We received your order %s and sent it to the vendor.", order))
	case domain.EventRiderAccepted:
		toCustomer("Order "+order+" is on the way",
			"A rider picked up your order and is heading your way.")
	case domain.EventRiderAssigned:
		toRider("New delivery: "+order,
			"You have been assigned a delivery. Head to the vendor for pickup.")
		toCustomer("Order "+order+" is on the way",
			"A rider has been assigned to your order.")
	case domain.EventDelivered:
		toCustomer("Order "+order+" delivered",
			"Your order has been delivered. Enjoy!")
	case domain.EventRiderUnassigned:
		toCustomer("Order "+order+" update",
			"Your rider changed; we are finding a new one.")
	case domain.EventStatusChanged:
		if event.ToStatus == domain.OrderStatusCancelled {
			toCustomer("Order "+order+" cancelled",
				reasonOr(event.Reason, "Your order has been cancelled."))
		}
	}

	return out
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}

func (h *NotificationHandler) send(ctx context.Context, n notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.notifyServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify service returned status %d", resp.StatusCode)
	}

	return nil
}

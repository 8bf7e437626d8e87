package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
	"github.com/mwondhaf/boxconv-sub001/internal/messaging"
)

type Handler struct {
	store    *Store
	producer *messaging.Producer
	logger   *slog.Logger
}

func NewHandler(store *Store, producer *messaging.Producer, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		producer: producer,
		logger:   logger,
	}
}

type getOrCreateRequest struct {
	CustomerID string `json:"customer_id"`
	SessionID  string `json:"session_id"`
	VendorID   string `json:"vendor_id"`
	Currency   string `json:"currency"`
}

func (h *Handler) HandleGetOrCreate(w http.ResponseWriter, r *http.Request) {
	var req getOrCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := domain.CartOwner{CustomerID: req.CustomerID, SessionID: req.SessionID}
	if err := owner.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.VendorID == "" {
		h.writeError(w, http.StatusBadRequest, "missing vendor_id")
		return
	}

	cart, err := h.store.GetOrCreate(r.Context(), owner, req.VendorID, req.Currency)
	if err != nil {
		h.writeFailure(w, err, "failed to get or create cart", "vendor_id", req.VendorID)
		return
	}

	h.logger.Info("cart ready", "cart_id", cart.ID, "vendor_id", cart.VendorID)
	h.writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing cart id")
		return
	}

	cart, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err, "failed to get cart", "cart_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

type addItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing cart id")
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VariantID == "" {
		h.writeError(w, http.StatusBadRequest, "missing variant_id")
		return
	}

	cart, err := h.store.AddItem(r.Context(), id, req.VariantID, req.Quantity)
	if err != nil {
		h.writeFailure(w, err, "failed to add item", "cart_id", id, "variant_id", req.VariantID)
		return
	}

	h.logger.Info("cart item applied", "cart_id", id, "variant_id", req.VariantID, "delta", req.Quantity)
	h.writeJSON(w, http.StatusOK, cart)
}

type mergeRequest struct {
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	VendorID   string `json:"vendor_id"`
}

func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SessionID == "" || req.CustomerID == "" || req.VendorID == "" {
		h.writeError(w, http.StatusBadRequest, "session_id, customer_id and vendor_id are required")
		return
	}

	cart, err := h.store.Merge(r.Context(), req.SessionID, req.CustomerID, req.VendorID)
	if err != nil {
		h.writeFailure(w, err, "failed to merge carts", "session_id", req.SessionID, "customer_id", req.CustomerID)
		return
	}

	if cart == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.Info("carts merged", "cart_id", cart.ID, "customer_id", req.CustomerID)
	h.writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing cart id")
		return
	}

	report, err := h.store.ValidateForCheckout(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err, "failed to validate cart", "cart_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

type checkoutRequest struct {
	FulfillmentType domain.FulfillmentType `json:"fulfillment_type"`
	DeliveryFee     int64                  `json:"delivery_fee"`
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing cart id")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.FulfillmentType.Valid() {
		h.writeError(w, http.StatusBadRequest, "unknown fulfillment_type")
		return
	}

	order, report, err := h.store.Checkout(r.Context(), id, req.FulfillmentType, req.DeliveryFee)
	if err != nil {
		if errors.Is(err, domain.ErrCheckoutBlocked) {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "checkout blocked",
				"report": report,
			})
			return
		}
		h.writeFailure(w, err, "failed to checkout", "cart_id", id)
		return
	}

	if h.producer != nil {
		msg := domain.OrderEventMessage{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			VendorID:    order.VendorID,
			CustomerID:  order.CustomerID,
			EventType:   domain.EventOrderCreated,
			ActorID:     order.CustomerID,
			ActorRole:   domain.RoleCustomer,
			ToStatus:    order.Status,
			Snapshot:    order.Totals,
			Timestamp:   time.Now().UTC(),
		}
		if err := h.producer.Publish(r.Context(), order.ID, msg); err != nil {
			h.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber, "cart_id", id)
	h.writeJSON(w, http.StatusCreated, order)
}

// writeFailure maps the domain failure taxonomy onto HTTP statuses; anything
// unrecognized is a 500 with the detail kept in the log.
func (h *Handler) writeFailure(w http.ResponseWriter, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCartExpired):
		h.writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCrossVendor):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrConflict):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, append([]any{"error", err}, args...)...)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

package fulfillment

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

type Handler struct {
	repo   *Repository
	engine *Engine
	logger *slog.Logger
}

func NewHandler(repo *Repository, engine *Engine, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		engine: engine,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		VendorID: r.URL.Query().Get("vendor_id"),
		RiderID:  r.URL.Query().Get("rider_id"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.OrderStatus(s)
		if !status.Valid() {
			h.writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = status
	}

	orders, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.writeFailure(w, err, "failed to list orders")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err, "failed to get order", "order_id", id)
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err, "failed to get order", "order_id", id)
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	events, err := h.repo.ListEvents(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err, "failed to list order events", "order_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, events)
}

type statusRequest struct {
	Action    Action `json:"action"`
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Reason    string `json:"reason"`
}

// HandleUpdateStatus covers the vendor lifecycle and terminal actions:
// confirm, start_preparing, mark_ready, complete, cancel, refund.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" || req.ActorID == "" || req.ActorRole == "" {
		h.writeError(w, http.StatusBadRequest, "action, actor_id and actor_role are required")
		return
	}

	order, err := h.engine.Apply(r.Context(), id, Command{
		Action:  req.Action,
		Role:    req.ActorRole,
		ActorID: req.ActorID,
		Reason:  req.Reason,
	})
	if err != nil {
		h.writeFailure(w, err, "failed to update order status", "order_id", id, "action", req.Action)
		return
	}

	h.logger.Info("order status updated", "order_id", id, "action", req.Action, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

type riderActionRequest struct {
	RiderID    string `json:"rider_id"`
	RiderName  string `json:"rider_name"`
	RiderPhone string `json:"rider_phone"`
	Reason     string `json:"reason"`
}

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.riderAction(w, r, ActionAccept)
}

func (h *Handler) HandlePickup(w http.ResponseWriter, r *http.Request) {
	h.riderAction(w, r, ActionConfirmPickup)
}

func (h *Handler) HandleDeliver(w http.ResponseWriter, r *http.Request) {
	h.riderAction(w, r, ActionDeliver)
}

func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	h.riderAction(w, r, ActionUnassign)
}

func (h *Handler) riderAction(w http.ResponseWriter, r *http.Request, action Action) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req riderActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RiderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing rider_id")
		return
	}

	cmd := Command{
		Action:  action,
		Role:    domain.RoleRider,
		ActorID: req.RiderID,
		Reason:  req.Reason,
	}
	if action == ActionAccept {
		cmd.Rider = &domain.RiderIdentity{
			ID:    req.RiderID,
			Name:  req.RiderName,
			Phone: req.RiderPhone,
		}
	}

	order, err := h.engine.Apply(r.Context(), id, cmd)
	if err != nil {
		h.writeFailure(w, err, "rider action failed", "order_id", id, "action", action, "rider_id", req.RiderID)
		return
	}

	h.logger.Info("rider action applied", "order_id", id, "action", action, "rider_id", req.RiderID)
	h.writeJSON(w, http.StatusOK, order)
}

type assignRequest struct {
	ActorID    string `json:"actor_id"`
	RiderID    string `json:"rider_id"`
	RiderName  string `json:"rider_name"`
	RiderPhone string `json:"rider_phone"`
}

// HandleAssign is the vendor manually dispatching a rider, as opposed to a
// rider accepting the order themselves.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ActorID == "" || req.RiderID == "" {
		h.writeError(w, http.StatusBadRequest, "actor_id and rider_id are required")
		return
	}

	order, err := h.engine.Apply(r.Context(), id, Command{
		Action:  ActionAssign,
		Role:    domain.RoleVendor,
		ActorID: req.ActorID,
		Rider: &domain.RiderIdentity{
			ID:    req.RiderID,
			Name:  req.RiderName,
			Phone: req.RiderPhone,
		},
	})
	if err != nil {
		h.writeFailure(w, err, "failed to assign rider", "order_id", id, "rider_id", req.RiderID)
		return
	}

	h.logger.Info("rider assigned", "order_id", id, "rider_id", req.RiderID)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrIllegalTransition):
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

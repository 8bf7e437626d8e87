package dispatch

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

type locationRequest struct {
	Latitude  float64            `json:"latitude"`
	Longitude float64            `json:"longitude"`
	Status    domain.RiderStatus `json:"status"`
}

// HandleUpdateLocation is the rider heartbeat. Riders post every few seconds
// while online; the last write wins.
func (h *Handler) HandleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	riderID := r.PathValue("id")
	if riderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing rider id")
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		req.Status = domain.RiderOnline
	}
	if !req.Status.Valid() {
		h.writeError(w, http.StatusBadRequest, "unknown rider status")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		h.writeError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}

	loc := domain.RiderLocation{
		RiderID:   riderID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Status:    req.Status,
	}
	if err := h.repo.UpsertLocation(r.Context(), loc); err != nil {
		h.logger.Error("failed to record rider location", "error", err, "rider_id", riderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListDeliveries returns unclaimed deliveries ranked by distance from
// the rider's position.
func (h *Handler) HandleListDeliveries(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := h.parseCoords(w, r)
	if !ok {
		return
	}

	candidates, err := h.repo.ListDeliveryCandidates(r.Context())
	if err != nil {
		h.logger.Error("failed to list delivery candidates", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, RankDeliveriesForRider(candidates, lat, lng))
}

// HandleListRiders returns fresh online riders ranked by distance from the
// vendor's position, for manual assignment.
func (h *Handler) HandleListRiders(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := h.parseCoords(w, r)
	if !ok {
		return
	}

	riders, err := h.repo.ListOnline(r.Context())
	if err != nil {
		h.logger.Error("failed to list online riders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, RankRidersForVendor(riders, lat, lng, time.Now().UTC()))
}

func (h *Handler) parseCoords(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid or missing lat")
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid or missing lng")
		return 0, 0, false
	}
	return lat, lng, true
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

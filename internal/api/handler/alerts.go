package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storewatch/sentinel/internal/repository"
)

const defaultAlertsLimit = 50

// AlertsHandler serves the recent alert log, fleet-wide or per store.
type AlertsHandler struct {
	alerts repository.AlertRepository
}

// NewAlertsHandler builds an AlertsHandler.
func NewAlertsHandler(alerts repository.AlertRepository) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// ServeHTTP handles GET /alerts, returning the most recent alerts
// fleet-wide.
func (h *AlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := clampQueryInt(r.URL.Query().Get("limit"), defaultAlertsLimit)
	alerts, err := h.alerts.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// ForStore handles GET /alerts/{id}, returning the alert history for one
// store.
func (h *AlertsHandler) ForStore(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")
	limit := clampQueryInt(r.URL.Query().Get("limit"), defaultAlertsLimit)
	alerts, err := h.alerts.ListByStore(r.Context(), storeID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"store_id": storeID, "alerts": alerts})
}

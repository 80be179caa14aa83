package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storewatch/sentinel/internal/alert"
	"github.com/storewatch/sentinel/internal/cache"
	"github.com/storewatch/sentinel/internal/emailconfig"
	"github.com/storewatch/sentinel/internal/liveness"
)

// healthSweeper is the subset of job.HealthSweeperJob the admin handler
// needs, kept as an interface so handler tests can substitute a fake.
type healthSweeper interface {
	Run(ctx context.Context) error
	Hydrate(ctx context.Context) error
}

// AdminHandler exposes the fleet operator endpoints: manual sweep trigger,
// test alert delivery, and recipients config inspection/reload.
type AdminHandler struct {
	sweeper    healthSweeper
	dispatcher *alert.Dispatcher
	registry   *liveness.Registry
	recipients *emailconfig.Config
	cache      cache.Store
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(sweeper healthSweeper, dispatcher *alert.Dispatcher, registry *liveness.Registry, recipients *emailconfig.Config, cacheStore cache.Store) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, dispatcher: dispatcher, registry: registry, recipients: recipients, cache: cacheStore}
}

// TriggerSweep handles GET /trigger-health-check: runs one sweep-and-hydrate
// pass immediately instead of waiting for the next scheduled tick.
func (h *AdminHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if err := h.sweeper.Run(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.sweeper.Hydrate(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if h.cache != nil {
		// The sweep may have flipped statuses; drop the cached summary so
		// the operator's next dashboard poll reflects them.
		h.cache.Delete(r.Context(), dashboardCacheKey)
	}
	respondMessage(w, http.StatusOK, "health check triggered", nil)
}

// TestAlert handles GET /test-email/{id}: sends a one-off test alert to the
// store's configured recipients, bypassing the cooldown.
func (h *AdminHandler) TestAlert(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")
	if storeID == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("store id is required"))
		return
	}

	storeName := storeID
	if snapshot, ok := h.registry.Snapshot(storeID); ok {
		storeName = snapshot.StoreName
	}

	if err := h.dispatcher.DispatchManual(r.Context(), storeID, storeName, "manual test triggered via admin API"); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondMessage(w, http.StatusOK, "test alert sent", nil)
}

// EmailConfig handles GET /config/email: returns the currently loaded
// store_id -> recipients map for operator inspection.
func (h *AdminHandler) EmailConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"recipients": h.recipients.Snapshot(),
	})
}

// ReloadConfig handles POST /config/reload: re-reads the recipients file
// from disk, swapping it in under a write lock.
func (h *AdminHandler) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.recipients.Reload(); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondMessage(w, http.StatusOK, "email config reloaded", nil)
}

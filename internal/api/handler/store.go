package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storewatch/sentinel/internal/liveness"
	"github.com/storewatch/sentinel/internal/repository"
)

type storeDetailResponse struct {
	StoreID       string               `json:"store_id"`
	StoreName     string               `json:"store_name"`
	Status        string               `json:"status"`
	IsOnline      bool                 `json:"is_online"`
	LastHeartbeat *string              `json:"last_heartbeat"`
	FirstSeen     string               `json:"first_seen"`
	Latest        any                  `json:"latest_heartbeat,omitempty"`
	Persisted     *repository.StoreRow `json:"persisted,omitempty"`
}

// StoreHandler serves per-store detail, merging the live in-memory
// registry snapshot with the persisted row when present.
type StoreHandler struct {
	registry *liveness.Registry
	stores   repository.StoreRepository
}

// NewStoreHandler builds a StoreHandler.
func NewStoreHandler(registry *liveness.Registry, stores repository.StoreRepository) *StoreHandler {
	return &StoreHandler{registry: registry, stores: stores}
}

// ServeHTTP handles GET /store/{id}.
func (h *StoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")
	if storeID == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("store id is required"))
		return
	}

	snapshot, inMemory := h.registry.Snapshot(storeID)
	persisted, err := h.stores.FindByID(r.Context(), storeID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if !inMemory && persisted == nil {
		respondError(w, http.StatusNotFound, fmt.Errorf("store %s not found", storeID))
		return
	}

	resp := storeDetailResponse{StoreID: storeID, Persisted: persisted}
	if inMemory {
		resp.StoreName = snapshot.StoreName
		resp.Status = string(snapshot.Status)
		resp.IsOnline = snapshot.Status == liveness.StatusOnline
		resp.FirstSeen = snapshot.FirstSeen.UTC().Format(time.RFC3339)
		if snapshot.HasHeartbeat {
			ts := snapshot.LastHeartbeat.UTC().Format(time.RFC3339)
			resp.LastHeartbeat = &ts
		}
		if snapshot.Latest != nil {
			resp.Latest = snapshot.Latest
		}
	} else if persisted != nil {
		resp.StoreName = persisted.StoreName
		resp.Status = persisted.Status
		resp.IsOnline = persisted.Status == string(liveness.StatusOnline)
	}

	respondJSON(w, http.StatusOK, resp)
}

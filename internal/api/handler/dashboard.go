package handler

import (
	"net/http"
	"time"

	"github.com/storewatch/sentinel/internal/cache"
	"github.com/storewatch/sentinel/internal/liveness"
)

const dashboardCacheKey = "dashboard:summary"
const dashboardCacheTTL = 5 * time.Second

// storeSummary is the per-store row shown on the fleet dashboard.
type storeSummary struct {
	StoreID       string  `json:"store_id"`
	StoreName     string  `json:"store_name"`
	Status        string  `json:"status"`
	LastHeartbeat *string `json:"last_heartbeat"`
}

type dashboardSummary struct {
	Total       int    `json:"total"`
	Online      int    `json:"online"`
	Offline     int    `json:"offline"`
	Unknown     int    `json:"unknown"`
	LastUpdated string `json:"last_updated"`
}

type dashboardResponse struct {
	Stores  []storeSummary   `json:"stores"`
	Summary dashboardSummary `json:"summary"`
}

// DashboardHandler serves the fleet-wide liveness summary, cached briefly
// to bound registry lock contention under admin polling.
type DashboardHandler struct {
	registry *liveness.Registry
	cache    cache.Store
}

// NewDashboardHandler builds a DashboardHandler.
func NewDashboardHandler(registry *liveness.Registry, cacheStore cache.Store) *DashboardHandler {
	return &DashboardHandler{registry: registry, cache: cacheStore}
}

// ServeHTTP renders the fleet summary, using the cached snapshot when one
// exists, rebuilding it otherwise.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var resp dashboardResponse
	if found, err := h.cache.GetJSON(ctx, dashboardCacheKey, &resp); err == nil && found {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	resp = h.build()
	_ = h.cache.SetJSON(ctx, dashboardCacheKey, resp, dashboardCacheTTL)
	respondJSON(w, http.StatusOK, resp)
}

func (h *DashboardHandler) build() dashboardResponse {
	snapshots := h.registry.All()
	resp := dashboardResponse{
		Stores: make([]storeSummary, 0, len(snapshots)),
		Summary: dashboardSummary{
			Total:       len(snapshots),
			LastUpdated: time.Now().UTC().Format(time.RFC3339),
		},
	}
	for _, s := range snapshots {
		switch s.Status {
		case liveness.StatusOnline:
			resp.Summary.Online++
		case liveness.StatusOffline:
			resp.Summary.Offline++
		default:
			resp.Summary.Unknown++
		}
		summary := storeSummary{
			StoreID:   s.StoreID,
			StoreName: s.StoreName,
			Status:    string(s.Status),
		}
		if s.HasHeartbeat {
			ts := s.LastHeartbeat.UTC().Format(time.RFC3339)
			summary.LastHeartbeat = &ts
		}
		resp.Stores = append(resp.Stores, summary)
	}
	return resp
}

// Package ingest implements the server's HTTP entry point for heartbeats:
// decode, validate, hand off to the liveness registry, persist, and
// acknowledge.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/storewatch/sentinel/internal/alert"
	"github.com/storewatch/sentinel/internal/heartbeat"
	"github.com/storewatch/sentinel/internal/liveness"
	"github.com/storewatch/sentinel/internal/repository"
)

// ackResponse is the observability-only reply to the client; it never
// carries error detail about persistence, which fails open (see Handler).
type ackResponse struct {
	Status               string `json:"status"`
	TotalStoresMonitored int    `json:"total_stores_monitored"`
}

// Handler serves both the live and buffered-replay ingestion endpoints.
// Both are semantically identical; only the log line differs.
type Handler struct {
	registry   *liveness.Registry
	dispatcher *alert.Dispatcher
	store      repository.Store
	logger     *slog.Logger
}

// New builds an ingestion Handler wired to the registry, dispatcher, and
// persistence layer.
func New(registry *liveness.Registry, dispatcher *alert.Dispatcher, store repository.Store, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, dispatcher: dispatcher, store: store, logger: logger}
}

// Live serves POST /heartbeat, the normal delivery path.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, false)
}

// Buffered serves POST /heartbeat/buffered, the replay path used by the
// client shipper to drain its durable queue after an outage.
func (h *Handler) Buffered(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, true)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, buffered bool) {
	var hb heartbeat.Heartbeat
	if err := json.NewDecoder(r.Body).Decode(&hb); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := hb.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	receivedAt := time.Now()
	evt, alertWorthy := h.registry.Observe(&hb, receivedAt)
	if alertWorthy {
		h.dispatcher.Dispatch(r.Context(), evt)
	}

	h.persist(r.Context(), &hb, receivedAt, buffered)

	respondJSON(w, http.StatusOK, ackResponse{
		Status:               "ok",
		TotalStoresMonitored: len(h.registry.All()),
	})
}

// persist writes the store upsert, heartbeat-history row, and system-stats
// row in one pass. Failure is logged, never surfaced to the client: the
// ingestion side favours availability over persistence guarantees.
func (h *Handler) persist(ctx context.Context, hb *heartbeat.Heartbeat, receivedAt time.Time, buffered bool) {
	payload, err := json.Marshal(hb)
	if err != nil {
		h.logger.Error("ingest: failed to serialize heartbeat payload", "store_id", hb.StoreID, "error", err)
		payload = nil
	}

	ts := receivedAt.Unix()

	if err := h.store.Stores().Upsert(ctx, &repository.StoreRow{
		StoreID:       hb.StoreID,
		StoreName:     hb.StoreName,
		Status:        "online",
		LastHeartbeat: &ts,
	}); err != nil {
		h.logger.Error("ingest: failed to upsert store", "store_id", hb.StoreID, "buffered", buffered, "error", err)
	}

	if err := h.store.HeartbeatHistory().Insert(ctx, &repository.HeartbeatHistory{
		StoreID:          hb.StoreID,
		Timestamp:        hb.Timestamp.Unix(),
		CPUUsage:         hb.SystemStats.CPUPercent,
		MemoryUsage:      hb.SystemStats.MemPercent,
		DiskFreeGB:       hb.SystemStats.DiskFreeGB,
		ActiveCameras:    hb.CameraStatus.ActiveCameras,
		TotalCameras:     hb.CameraStatus.TotalCameras,
		NetworkConnected: hb.SystemStats.NetworkConnected,
		Payload:          string(payload),
	}); err != nil {
		h.logger.Error("ingest: failed to insert heartbeat history", "store_id", hb.StoreID, "buffered", buffered, "error", err)
	}

	if err := h.store.SystemStats().Insert(ctx, &repository.SystemStats{
		StoreID:           hb.StoreID,
		Timestamp:         hb.Timestamp.Unix(),
		CPUUsage:          hb.SystemStats.CPUPercent,
		MemoryUsage:       hb.SystemStats.MemPercent,
		MemoryAvailableGB: hb.SystemStats.MemAvailGB,
		DiskFreeGB:        hb.SystemStats.DiskFreeGB,
		DiskUsagePercent:  hb.SystemStats.DiskUsePercent,
		ProcessMemoryMB:   hb.SystemStats.ProcessMemMB,
		UptimeHours:       hb.SystemStats.UptimeHours,
		NetworkConnected:  hb.SystemStats.NetworkConnected,
	}); err != nil {
		h.logger.Error("ingest: failed to insert system stats", "store_id", hb.StoreID, "buffered", buffered, "error", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

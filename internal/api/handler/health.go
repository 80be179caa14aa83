package handler

import (
	"net/http"
	"time"

	"github.com/storewatch/sentinel/internal/liveness"
)

// jobScheduler is the subset of job.Scheduler the health handler needs,
// kept as a local interface so tests can substitute a fake without
// importing the job package.
type jobScheduler interface {
	LastRun(name string) (time.Time, error)
}

// HealthHandler serves the liveness probe used by orchestrators and
// monitoring, alongside a small fleet counter snapshot so an operator
// curling the endpoint gets a useful answer, not just "ok".
type HealthHandler struct {
	registry  *liveness.Registry
	startedAt time.Time
	scheduler jobScheduler
}

// NewHealthHandler builds a HealthHandler. startedAt should be the time the
// server process came up, used to report uptime. scheduler may be nil, in
// which case the sweeper diagnostics are omitted from the response.
func NewHealthHandler(registry *liveness.Registry, startedAt time.Time, scheduler jobScheduler) *HealthHandler {
	return &HealthHandler{registry: registry, startedAt: startedAt, scheduler: scheduler}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshots := h.registry.All()
	online, offline := 0, 0
	for _, s := range snapshots {
		switch s.Status {
		case liveness.StatusOnline:
			online++
		case liveness.StatusOffline:
			offline++
		}
	}

	resp := map[string]any{
		"status":         "ok",
		"ts":             time.Now().UTC().Format(time.RFC3339Nano),
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"total_stores":   len(snapshots),
		"online_stores":  online,
		"offline_stores": offline,
	}

	if h.scheduler != nil {
		lastRun, lastErr := h.scheduler.LastRun("health-sweeper")
		if !lastRun.IsZero() {
			resp["sweeper_last_run"] = lastRun.UTC().Format(time.RFC3339Nano)
			resp["sweeper_last_error"] = errString(lastErr)
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

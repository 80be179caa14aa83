// 文件路径: internal/job/health_sweeper.go
package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/storewatch/sentinel/internal/alert"
	"github.com/storewatch/sentinel/internal/liveness"
	"github.com/storewatch/sentinel/internal/repository"
)

// HealthSweeperJob runs on its own cron tick and scans the liveness
// registry for stale stores, firing or repeating offline alerts. Its
// Hydrate method, run at boot and on admin trigger rather than on each
// tick, loads persisted stores the registry has not seen yet.
type HealthSweeperJob struct {
	registry   *liveness.Registry
	dispatcher *alert.Dispatcher
	stores     repository.StoreRepository
	logger     *slog.Logger
}

// NewHealthSweeperJob constructs the sweeper job.
func NewHealthSweeperJob(registry *liveness.Registry, dispatcher *alert.Dispatcher, stores repository.StoreRepository, logger *slog.Logger) *HealthSweeperJob {
	return &HealthSweeperJob{registry: registry, dispatcher: dispatcher, stores: stores, logger: logger}
}

// Name identifies this job to the scheduler.
func (j *HealthSweeperJob) Name() string {
	return "health-sweeper"
}

// Run executes one sweep: offline inference over the in-memory registry.
// Hydration of stores known to persistence but absent from memory does
// NOT run on every tick, only at boot and on explicit admin trigger, via
// Hydrate, so a routine sweep never pays for an O(stores) scan.
func (j *HealthSweeperJob) Run(ctx context.Context) error {
	now := time.Now()

	events := j.registry.Sweep(now)
	for _, evt := range events {
		j.dispatcher.Dispatch(ctx, evt)
	}
	if len(events) > 0 {
		j.logger.Info("health sweeper fired offline transitions", "count", len(events))
	}
	return nil
}

// hydrateMissing asks persistence for stores the in-memory registry does
// not know about yet and inserts them as unknown, so a later heartbeat or
// sweep can act on them. Called only through Hydrate, by the boot-time
// hydration step and the admin trigger-health-check endpoint.
func (j *HealthSweeperJob) hydrateMissing(ctx context.Context) error {
	known := j.registry.KnownIDs()
	missing, err := j.stores.ListMissing(ctx, known)
	if err != nil {
		j.logger.Error("health sweeper: failed to list missing stores", "error", err)
		return err
	}

	for _, s := range missing {
		var lastHeartbeat *time.Time
		if s.LastHeartbeat != nil {
			t := time.Unix(*s.LastHeartbeat, 0)
			lastHeartbeat = &t
		}
		j.registry.Hydrate(s.StoreID, s.StoreName, lastHeartbeat)
	}
	if len(missing) > 0 {
		j.logger.Info("health sweeper hydrated stores from persistence", "count", len(missing))
	}
	return nil
}

// Hydrate runs the hydration step outside the regular sweep cadence: at
// server boot and on explicit admin trigger, keeping DB load off the
// periodic sweep path.
func (j *HealthSweeperJob) Hydrate(ctx context.Context) error {
	return j.hydrateMissing(ctx)
}

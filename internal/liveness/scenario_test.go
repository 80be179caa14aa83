package liveness_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewatch/sentinel/internal/alert"
	"github.com/storewatch/sentinel/internal/emailconfig"
	"github.com/storewatch/sentinel/internal/heartbeat"
	"github.com/storewatch/sentinel/internal/liveness"
	"github.com/storewatch/sentinel/internal/notifier"
	"github.com/storewatch/sentinel/internal/repository"
)

// fakeAlertRepo records every persisted alert in memory, in order.
type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []*repository.Alert
}

func (f *fakeAlertRepo) Create(ctx context.Context, a *repository.Alert) (*repository.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = int64(len(f.alerts) + 1)
	f.alerts = append(f.alerts, a)
	return a, nil
}

func (f *fakeAlertRepo) ListRecent(ctx context.Context, limit int) ([]*repository.Alert, error) {
	return f.alerts, nil
}

func (f *fakeAlertRepo) ListByStore(ctx context.Context, storeID string, limit int) ([]*repository.Alert, error) {
	var out []*repository.Alert
	for _, a := range f.alerts {
		if a.StoreID == storeID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) kinds() []repository.AlertKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]repository.AlertKind, len(f.alerts))
	for i, a := range f.alerts {
		kinds[i] = a.Kind
	}
	return kinds
}

// fakeNotifier records every send attempt without delivering anything.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []notifier.EmailRequest
}

func (f *fakeNotifier) SendEmail(ctx context.Context, req notifier.EmailRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// TestFleetScenario walks an end-to-end liveness timeline: a store
// starts up, reports normally, goes silent past the staleness threshold,
// and later recovers, verifying the registry/cooldown/dispatcher trio
// produce exactly the expected alerts at each point, with a 5m threshold
// and 30s epsilon.
func TestFleetScenario(t *testing.T) {
	const threshold = 5 * time.Minute
	const epsilon = 30 * time.Second
	const startupCooldown = 10 * time.Minute
	const offlineCooldown = 5 * time.Minute
	const recoveryCooldown = 5 * time.Minute

	registry := liveness.NewRegistry(threshold, epsilon, startupCooldown)
	cooldown := alert.NewCooldown(offlineCooldown, recoveryCooldown, startupCooldown)
	alerts := &fakeAlertRepo{}
	notif := &fakeNotifier{}
	recipients := loadTestRecipients(t)

	dispatcher := alert.NewDispatcher(cooldown, alerts, recipients, notif, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	t0 := time.Now()

	// t0: startup heartbeat: forced alert, bypasses cooldown.
	evt, worthy := registry.Observe(&heartbeat.Heartbeat{StoreID: "store-1", StoreName: "Store One", Timestamp: t0, IsStartup: true}, t0)
	require.True(t, worthy)
	dispatcher.Dispatch(context.Background(), evt)
	assert.Equal(t, []repository.AlertKind{repository.AlertKindStartup}, alerts.kinds())
	assert.Equal(t, 1, notif.count())

	// t0+2m: routine heartbeat, well within threshold, no new alert.
	t1 := t0.Add(2 * time.Minute)
	_, worthy = registry.Observe(&heartbeat.Heartbeat{StoreID: "store-1", Timestamp: t1}, t1)
	assert.False(t, worthy)
	assert.Len(t, alerts.kinds(), 1)

	// t0+6m (last heartbeat t1=t0+2m, so delta=4m < 5m30s): sweep at t0+6m
	// must NOT yet trip offline.
	sweepTime := t0.Add(6 * time.Minute)
	events := registry.Sweep(sweepTime)
	assert.Empty(t, events)

	// t0+7m31s (delta from t1 = 5m31s > threshold+epsilon): now offline.
	sweepTime = t0.Add(7*time.Minute + 31*time.Second)
	events = registry.Sweep(sweepTime)
	require.Len(t, events, 1)
	assert.Equal(t, liveness.TransitionOffline, events[0].Kind)
	assert.True(t, events[0].Force, "first offline transition always bypasses cooldown")
	dispatcher.Dispatch(context.Background(), events[0])
	assert.Equal(t, []repository.AlertKind{repository.AlertKindStartup, repository.AlertKindOffline}, alerts.kinds())
	assert.Equal(t, 2, notif.count())

	// A repeat sweep one minute later, still offline, within the 5m offline
	// cooldown: must not re-fire.
	events = registry.Sweep(sweepTime.Add(time.Minute))
	require.Len(t, events, 1)
	assert.False(t, events[0].Force)
	dispatcher.Dispatch(context.Background(), events[0])
	assert.Len(t, alerts.kinds(), 2, "repeat offline sweep within cooldown window must be suppressed")

	// Recovery: a live heartbeat arrives again.
	recoverAt := sweepTime.Add(10 * time.Minute)
	evt, worthy = registry.Observe(&heartbeat.Heartbeat{StoreID: "store-1", Timestamp: recoverAt}, recoverAt)
	require.True(t, worthy)
	assert.Equal(t, liveness.TransitionRecovery, evt.Kind)
	dispatcher.Dispatch(context.Background(), evt)
	assert.Equal(t, []repository.AlertKind{repository.AlertKindStartup, repository.AlertKindOffline, repository.AlertKindRecovery}, alerts.kinds())
	assert.Equal(t, 3, notif.count())
}

func loadTestRecipients(t *testing.T) *emailconfig.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipients.json")
	data, err := json.Marshal(map[string][]string{"default": {"ops@example.com"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := emailconfig.Load(path)
	require.NoError(t, err)
	return cfg
}

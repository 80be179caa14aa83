package job

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
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

type fakeStoreRepo struct {
	stores map[string]*repository.StoreRow
}

func newFakeStoreRepo() *fakeStoreRepo {
	return &fakeStoreRepo{stores: make(map[string]*repository.StoreRow)}
}

func (f *fakeStoreRepo) Upsert(ctx context.Context, s *repository.StoreRow) error {
	f.stores[s.StoreID] = s
	return nil
}

func (f *fakeStoreRepo) FindByID(ctx context.Context, storeID string) (*repository.StoreRow, error) {
	if s, ok := f.stores[storeID]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStoreRepo) ListAll(ctx context.Context) ([]*repository.StoreRow, error) {
	var out []*repository.StoreRow
	for _, s := range f.stores {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStoreRepo) ListMissing(ctx context.Context, knownIDs []string) ([]*repository.StoreRow, error) {
	known := make(map[string]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}
	var out []*repository.StoreRow
	for id, s := range f.stores {
		if !known[id] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStoreRepo) UpdateLastAlertSent(ctx context.Context, storeID string, sentAt int64) error {
	if s, ok := f.stores[storeID]; ok {
		s.LastAlertSent = &sentAt
	}
	return nil
}

func (f *fakeStoreRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.stores)), nil
}

func (f *fakeStoreRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	for _, s := range f.stores {
		if s.Status == status {
			n++
		}
	}
	return n, nil
}

type noopAlertRepo struct{}

func (noopAlertRepo) Create(ctx context.Context, a *repository.Alert) (*repository.Alert, error) {
	return a, nil
}
func (noopAlertRepo) ListRecent(ctx context.Context, limit int) ([]*repository.Alert, error) {
	return nil, nil
}
func (noopAlertRepo) ListByStore(ctx context.Context, storeID string, limit int) ([]*repository.Alert, error) {
	return nil, nil
}

type noopNotifier struct{}

func (noopNotifier) SendEmail(ctx context.Context, req notifier.EmailRequest) error { return nil }

func newTestDispatcher(t *testing.T) *alert.Dispatcher {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipients.json")
	data, err := json.Marshal(map[string][]string{"default": {"ops@example.com"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	cfg, err := emailconfig.Load(path)
	require.NoError(t, err)

	cooldown := alert.NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	return alert.NewDispatcher(cooldown, noopAlertRepo{}, cfg, noopNotifier{}, logger)
}

func TestHealthSweeperJob_Run_DoesNotHydrate(t *testing.T) {
	registry := liveness.NewRegistry(5*time.Minute, 30*time.Second, 10*time.Minute)
	stores := newFakeStoreRepo()

	stale := time.Now().Add(-time.Hour).Unix()
	stores.stores["persisted-only"] = &repository.StoreRow{StoreID: "persisted-only", StoreName: "Persisted Only", LastHeartbeat: &stale}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	dispatcher := newTestDispatcher(t)
	sweeper := NewHealthSweeperJob(registry, dispatcher, stores, logger)

	require.NoError(t, sweeper.Run(context.Background()))

	_, ok := registry.Snapshot("persisted-only")
	assert.False(t, ok, "a routine sweep tick must not hydrate; that only happens at boot or on admin trigger")

	require.NoError(t, sweeper.Hydrate(context.Background()))
	_, ok = registry.Snapshot("persisted-only")
	assert.True(t, ok, "explicit Hydrate must still pick up stores known only to persistence")
}

func TestHealthSweeperJob_Hydrate_IsIdempotent(t *testing.T) {
	registry := liveness.NewRegistry(5*time.Minute, 30*time.Second, 10*time.Minute)
	stores := newFakeStoreRepo()
	stores.stores["store-1"] = &repository.StoreRow{StoreID: "store-1", StoreName: "Store One"}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	dispatcher := newTestDispatcher(t)
	sweeper := NewHealthSweeperJob(registry, dispatcher, stores, logger)

	require.NoError(t, sweeper.Hydrate(context.Background()))
	require.NoError(t, sweeper.Hydrate(context.Background()))

	assert.ElementsMatch(t, []string{"store-1"}, registry.KnownIDs())
}

func TestHealthSweeperJob_Run_DispatchesOfflineForStaleStore(t *testing.T) {
	registry := liveness.NewRegistry(5*time.Minute, 30*time.Second, 10*time.Minute)
	stores := newFakeStoreRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	dispatcher := newTestDispatcher(t)
	sweeper := NewHealthSweeperJob(registry, dispatcher, stores, logger)

	past := time.Now().Add(-10 * time.Minute)
	hb := &heartbeat.Heartbeat{StoreID: "store-1", StoreName: "Store One", Timestamp: past, IsStartup: true}
	registry.Observe(hb, past)

	require.NoError(t, sweeper.Run(context.Background()))

	snap, ok := registry.Snapshot("store-1")
	require.True(t, ok)
	assert.Equal(t, liveness.StatusOffline, snap.Status)
}

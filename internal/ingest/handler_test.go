package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
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

type fakeStoreRepository struct {
	mu     sync.Mutex
	stores map[string]*repository.StoreRow
}

func (f *fakeStoreRepository) Upsert(ctx context.Context, s *repository.StoreRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stores == nil {
		f.stores = make(map[string]*repository.StoreRow)
	}
	f.stores[s.StoreID] = s
	return nil
}

func (f *fakeStoreRepository) FindByID(ctx context.Context, storeID string) (*repository.StoreRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stores[storeID]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStoreRepository) ListAll(ctx context.Context) ([]*repository.StoreRow, error) { return nil, nil }
func (f *fakeStoreRepository) ListMissing(ctx context.Context, knownIDs []string) ([]*repository.StoreRow, error) {
	return nil, nil
}
func (f *fakeStoreRepository) UpdateLastAlertSent(ctx context.Context, storeID string, sentAt int64) error {
	return nil
}
func (f *fakeStoreRepository) Count(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeStoreRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	return 0, nil
}

type failingHeartbeatHistory struct{ fail bool }

func (f *failingHeartbeatHistory) Insert(ctx context.Context, h *repository.HeartbeatHistory) error {
	if f.fail {
		return assertErr
	}
	return nil
}
func (f *failingHeartbeatHistory) ListByStore(ctx context.Context, storeID string, limit int) ([]*repository.HeartbeatHistory, error) {
	return nil, nil
}

type stubError struct{ msg string }

func (e *stubError) Error() string { return e.msg }

var assertErr = &stubError{"persist failed"}

type noopSystemStats struct{}

func (noopSystemStats) Insert(ctx context.Context, s *repository.SystemStats) error { return nil }
func (noopSystemStats) ListByStore(ctx context.Context, storeID string, limit int) ([]*repository.SystemStats, error) {
	return nil, nil
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

type recordingNotifier struct {
	mu   sync.Mutex
	sent int
}

func (n *recordingNotifier) SendEmail(ctx context.Context, req notifier.EmailRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent
}

type fakeAggregate struct {
	stores   *fakeStoreRepository
	history  *failingHeartbeatHistory
	stats    noopSystemStats
	alerts   noopAlertRepo
}

func (f *fakeAggregate) Stores() repository.StoreRepository                     { return f.stores }
func (f *fakeAggregate) HeartbeatHistory() repository.HeartbeatHistoryRepository { return f.history }
func (f *fakeAggregate) SystemStats() repository.SystemStatsRepository          { return f.stats }
func (f *fakeAggregate) Alerts() repository.AlertRepository                     { return f.alerts }

func newTestHandler(t *testing.T, historyFails bool) (*Handler, *fakeAggregate, *recordingNotifier) {
	t.Helper()
	registry := liveness.NewRegistry(5*time.Minute, 30*time.Second, 10*time.Minute)

	path := filepath.Join(t.TempDir(), "recipients.json")
	data, err := json.Marshal(map[string][]string{"default": {"ops@example.com"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	recipients, err := emailconfig.Load(path)
	require.NoError(t, err)

	cooldown := alert.NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	notif := &recordingNotifier{}
	dispatcher := alert.NewDispatcher(cooldown, noopAlertRepo{}, recipients, notif, logger)

	agg := &fakeAggregate{
		stores:  &fakeStoreRepository{},
		history: &failingHeartbeatHistory{fail: historyFails},
	}

	return New(registry, dispatcher, agg, logger), agg, notif
}

func validHeartbeat(storeID string) heartbeat.Heartbeat {
	return heartbeat.Heartbeat{
		StoreID:   storeID,
		StoreName: "Store One",
		Timestamp: time.Now(),
		IsStartup: true,
		CameraStatus: heartbeat.CameraStatus{
			ActiveCameras: 2,
			TotalCameras:  2,
		},
	}
}

func postHeartbeat(t *testing.T, h *Handler, hb heartbeat.Heartbeat) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(hb)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/heartbeat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Live(rec, req)
	return rec
}

func TestHandler_Live_ValidHeartbeatAcksWithMonitoredCount(t *testing.T) {
	h, agg, _ := newTestHandler(t, false)

	rec := postHeartbeat(t, h, validHeartbeat("store-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.TotalStoresMonitored)

	_, err := agg.stores.FindByID(context.Background(), "store-1")
	assert.NoError(t, err, "a valid heartbeat must upsert the store row")
}

func TestHandler_Live_MissingStoreIDIsBadRequest(t *testing.T) {
	h, _, _ := newTestHandler(t, false)

	hb := validHeartbeat("")
	rec := postHeartbeat(t, h, hb)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Live_InvalidCameraCountsIsBadRequest(t *testing.T) {
	h, _, _ := newTestHandler(t, false)

	hb := validHeartbeat("store-1")
	hb.CameraStatus.ActiveCameras = 5
	hb.CameraStatus.TotalCameras = 2
	rec := postHeartbeat(t, h, hb)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Live_MalformedJSONIsBadRequest(t *testing.T) {
	h, _, _ := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/heartbeat", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Live(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Live_PersistenceFailureStillAcksOK(t *testing.T) {
	h, _, _ := newTestHandler(t, true)

	rec := postHeartbeat(t, h, validHeartbeat("store-1"))
	assert.Equal(t, http.StatusOK, rec.Code, "ingestion must fail open when persistence errors")
}

func TestHandler_Live_StartupHeartbeatDispatchesNotification(t *testing.T) {
	h, _, notif := newTestHandler(t, false)

	rec := postHeartbeat(t, h, validHeartbeat("store-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, notif.count(), "the first heartbeat from a store is a forced startup alert")
}

func TestHandler_Buffered_RoutesToSameHandling(t *testing.T) {
	h, agg, _ := newTestHandler(t, false)

	body, err := json.Marshal(validHeartbeat("store-1"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/heartbeat/buffered", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Buffered(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	_, err = agg.stores.FindByID(context.Background(), "store-1")
	assert.NoError(t, err)
}

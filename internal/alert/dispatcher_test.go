package alert

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

	"github.com/storewatch/sentinel/internal/emailconfig"
	"github.com/storewatch/sentinel/internal/liveness"
	"github.com/storewatch/sentinel/internal/notifier"
	"github.com/storewatch/sentinel/internal/repository"
)

type stubAlertRepo struct {
	mu       sync.Mutex
	created  []*repository.Alert
	failNext bool
}

func (s *stubAlertRepo) Create(ctx context.Context, a *repository.Alert) (*repository.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return nil, assertErr
	}
	s.created = append(s.created, a)
	return a, nil
}

func (s *stubAlertRepo) ListRecent(ctx context.Context, limit int) ([]*repository.Alert, error) {
	return s.created, nil
}

func (s *stubAlertRepo) ListByStore(ctx context.Context, storeID string, limit int) ([]*repository.Alert, error) {
	return s.created, nil
}

var assertErr = &stubError{"persist failed"}

type stubError struct{ msg string }

func (e *stubError) Error() string { return e.msg }

type stubNotifier struct {
	mu  sync.Mutex
	got []notifier.EmailRequest
	err error
}

func (s *stubNotifier) SendEmail(ctx context.Context, req notifier.EmailRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, req)
	return nil
}

func recipientsFixture(t *testing.T, entries map[string][]string) *emailconfig.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipients.json")
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	cfg, err := emailconfig.Load(path)
	require.NoError(t, err)
	return cfg
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestDispatch_PersistsAndNotifiesOnAllowedTransition(t *testing.T) {
	cooldown := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	repo := &stubAlertRepo{}
	notif := &stubNotifier{}
	recipients := recipientsFixture(t, map[string][]string{"default": {"ops@example.com"}})

	d := NewDispatcher(cooldown, repo, recipients, notif, silentLogger())

	evt := liveness.TransitionEvent{
		StoreID:   "store-1",
		StoreName: "Store One",
		From:      liveness.StatusUnknown,
		To:        liveness.StatusOnline,
		Kind:      liveness.TransitionStartup,
		At:        time.Now(),
		Force:     true,
	}
	d.Dispatch(context.Background(), evt)

	require.Len(t, repo.created, 1)
	assert.Equal(t, repository.AlertKindStartup, repo.created[0].Kind)
	require.Len(t, notif.got, 1)
	assert.Equal(t, []string{"ops@example.com"}, notif.got[0].To)
}

func TestDispatch_SuppressedByCooldownSkipsPersistAndNotify(t *testing.T) {
	cooldown := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	repo := &stubAlertRepo{}
	notif := &stubNotifier{}
	recipients := recipientsFixture(t, map[string][]string{"default": {"ops@example.com"}})

	d := NewDispatcher(cooldown, repo, recipients, notif, silentLogger())
	now := time.Now()

	base := liveness.TransitionEvent{StoreID: "store-1", Kind: liveness.TransitionOffline, At: now, Force: false}
	d.Dispatch(context.Background(), base)
	require.Len(t, repo.created, 1)

	repeat := base
	repeat.At = now.Add(time.Minute)
	d.Dispatch(context.Background(), repeat)
	assert.Len(t, repo.created, 1, "a cooldown-suppressed event must not persist a second alert")
	assert.Len(t, notif.got, 1)
}

func TestDispatch_NoRecipientsSkipsNotifyButStillPersists(t *testing.T) {
	cooldown := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	repo := &stubAlertRepo{}
	notif := &stubNotifier{}
	recipients := recipientsFixture(t, map[string][]string{})

	d := NewDispatcher(cooldown, repo, recipients, notif, silentLogger())
	evt := liveness.TransitionEvent{StoreID: "store-1", Kind: liveness.TransitionStartup, At: time.Now(), Force: true}
	d.Dispatch(context.Background(), evt)

	require.Len(t, repo.created, 1, "the alert row is always persisted even with no configured recipients")
	assert.Empty(t, notif.got)
}

func TestDispatch_PersistenceFailureStillAttemptsNotify(t *testing.T) {
	cooldown := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	repo := &stubAlertRepo{failNext: true}
	notif := &stubNotifier{}
	recipients := recipientsFixture(t, map[string][]string{"default": {"ops@example.com"}})

	d := NewDispatcher(cooldown, repo, recipients, notif, silentLogger())
	evt := liveness.TransitionEvent{StoreID: "store-1", Kind: liveness.TransitionStartup, At: time.Now(), Force: true}
	d.Dispatch(context.Background(), evt)

	assert.Empty(t, repo.created)
	require.Len(t, notif.got, 1, "persistence failure must not block alert delivery")
}

func TestDispatchManual_BypassesCooldownAndRequiresRecipients(t *testing.T) {
	cooldown := NewCooldown(5*time.Minute, 5*time.Minute, 10*time.Minute)
	repo := &stubAlertRepo{}
	notif := &stubNotifier{}

	withRecipients := recipientsFixture(t, map[string][]string{"store-1": {"owner@example.com"}})
	d := NewDispatcher(cooldown, repo, withRecipients, notif, silentLogger())

	require.NoError(t, d.DispatchManual(context.Background(), "store-1", "Store One", "manual trigger"))
	require.Len(t, repo.created, 1)
	assert.Equal(t, repository.AlertKindTest, repo.created[0].Kind)
	require.Len(t, notif.got, 1)
	assert.Equal(t, []string{"owner@example.com"}, notif.got[0].To)

	noRecipients := recipientsFixture(t, map[string][]string{})
	d2 := NewDispatcher(cooldown, repo, noRecipients, notif, silentLogger())
	err := d2.DispatchManual(context.Background(), "store-2", "Store Two", "manual trigger")
	assert.Error(t, err, "a manual test alert with no configured recipients must fail")
}

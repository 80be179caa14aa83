// 文件路径: internal/alert/dispatcher.go
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storewatch/sentinel/internal/emailconfig"
	"github.com/storewatch/sentinel/internal/liveness"
	"github.com/storewatch/sentinel/internal/notifier"
	"github.com/storewatch/sentinel/internal/repository"
)

// ErrNoRecipients is returned by DispatchManual when the store has neither
// a store-specific nor a "default" entry in the recipients config; the
// manual test-alert path has no cooldown bypass to lean on, so the caller
// needs to know delivery never happened.
var ErrNoRecipients = errors.New("alert: no recipients configured for store")

// Dispatcher classifies a liveness transition, applies cooldown
// suppression, persists the alert row, and enqueues an asynchronous
// notification. It never blocks the ingestion or sweeper paths on
// delivery: SendEmail targets a queue-backed notifier.Service.
type Dispatcher struct {
	cooldown   *Cooldown
	alerts     repository.AlertRepository
	recipients *emailconfig.Config
	notifier   notifier.Service
	logger     *slog.Logger
}

// NewDispatcher builds a Dispatcher wired to persistence, the recipients
// config, and a (normally queue-backed) notifier.Service.
func NewDispatcher(cooldown *Cooldown, alerts repository.AlertRepository, recipients *emailconfig.Config, svc notifier.Service, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cooldown:   cooldown,
		alerts:     alerts,
		recipients: recipients,
		notifier:   svc,
		logger:     logger,
	}
}

// Dispatch handles one TransitionEvent from the liveness registry or
// health sweeper. evt.Force bypasses the cooldown window for the kind:
// set on the first offline transition and on a store's first-ever startup.
func (d *Dispatcher) Dispatch(ctx context.Context, evt liveness.TransitionEvent) {
	kind := fromTransitionKind(evt.Kind)
	if kind == "" {
		return
	}

	now := evt.At
	if now.IsZero() {
		now = time.Now()
	}
	if !d.cooldown.Allow(evt.StoreID, kind, now, evt.Force) {
		return
	}

	severity := severityFor(kind)
	msg, err := d.buildMessage(kind, evt)
	if err != nil {
		d.logger.Error("alert: failed to render message", "store_id", evt.StoreID, "kind", kind, "error", err)
		return
	}

	alertRow := &repository.Alert{
		StoreID:   evt.StoreID,
		Kind:      repository.AlertKind(kind),
		Message:   msg.Body,
		Severity:  severity,
		Timestamp: now.Unix(),
	}
	if _, err := d.alerts.Create(ctx, alertRow); err != nil {
		d.logger.Error("alert: failed to persist", "store_id", evt.StoreID, "kind", kind, "error", err)
	}

	recipients := d.recipients.Recipients(evt.StoreID)
	if len(recipients) == 0 {
		d.logger.Warn("alert: no recipients configured, notification skipped", "store_id", evt.StoreID, "kind", kind)
		return
	}

	req := notifier.EmailRequest{
		ID:      newDeliveryID(),
		To:      recipients,
		Subject: msg.Subject,
		Body:    msg.Body,
	}
	if err := d.notifier.SendEmail(ctx, req); err != nil {
		d.logger.Warn("alert: notification enqueue failed", "delivery_id", req.ID, "store_id", evt.StoreID, "kind", kind, "error", err)
	}
}

func severityFor(kind Kind) repository.AlertSeverity {
	switch kind {
	case KindOffline:
		return repository.SeverityCritical
	case KindCameraFailure:
		return repository.SeverityHigh
	case KindSystemWarning:
		return repository.SeverityMedium
	case KindRecovery:
		return repository.SeverityMedium
	case KindStartup:
		return repository.SeverityLow
	default:
		return repository.SeverityMedium
	}
}

func (d *Dispatcher) buildMessage(kind Kind, evt liveness.TransitionEvent) (Message, error) {
	ctx := messageContext{
		StoreID:       evt.StoreID,
		StoreName:     evt.StoreName,
		At:            formatTime(evt.At),
		LastHeartbeat: formatTime(evt.LastHeartbeat),
	}
	if evt.Heartbeat != nil {
		ctx.Telemetry = &telemetrySummary{
			CPUPercent: evt.Heartbeat.SystemStats.CPUPercent,
			MemPercent: evt.Heartbeat.SystemStats.MemPercent,
			DiskFreeGB: evt.Heartbeat.SystemStats.DiskFreeGB,
		}
	}
	return render(kind, ctx)
}

// DispatchManual raises a one-off alert outside the transition pipeline,
// used by the admin "test email" endpoint. It always bypasses cooldown.
func (d *Dispatcher) DispatchManual(ctx context.Context, storeID, storeName, detail string) error {
	now := time.Now()
	msg, err := render(KindTest, messageContext{
		StoreID:   storeID,
		StoreName: storeName,
		At:        formatTime(now),
		Detail:    detail,
	})
	if err != nil {
		return fmt.Errorf("alert: render test message: %w", err)
	}

	alertRow := &repository.Alert{
		StoreID:   storeID,
		Kind:      repository.AlertKindTest,
		Message:   msg.Body,
		Severity:  repository.SeverityLow,
		Timestamp: now.Unix(),
	}
	if _, err := d.alerts.Create(ctx, alertRow); err != nil {
		return fmt.Errorf("alert: persist test alert: %w", err)
	}

	recipients := d.recipients.Recipients(storeID)
	if len(recipients) == 0 {
		return fmt.Errorf("%w: %s", ErrNoRecipients, storeID)
	}
	return d.notifier.SendEmail(ctx, notifier.EmailRequest{
		ID:      newDeliveryID(),
		To:      recipients,
		Subject: msg.Subject,
		Body:    msg.Body,
	})
}

func newDeliveryID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

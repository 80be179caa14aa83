// 文件路径: internal/async/notification_worker.go
package async

import (
	"context"
	"log/slog"
	"time"

	"github.com/storewatch/sentinel/internal/notifier"
)

const notificationSendTimeout = 10 * time.Second

// NotificationWorker periodically drains a NotificationQueue and delivers
// each pending email through a notifier.Service. Delivery failures are
// logged and dropped, never requeued: the alert cooldown already
// guarantees a repeat offline alert will retry delivery on its own cadence.
type NotificationWorker struct {
	queue    *NotificationQueue
	service  notifier.Service
	logger   *slog.Logger
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewNotificationWorker constructs a worker that flushes queue every
// interval (default 5s if zero) until Stop is called.
func NewNotificationWorker(queue *NotificationQueue, service notifier.Service, logger *slog.Logger, interval time.Duration) *NotificationWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &NotificationWorker{
		queue:    queue,
		service:  service,
		logger:   logger,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the background flush loop.
func (w *NotificationWorker) Start() {
	go w.run()
}

func (w *NotificationWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			// w.ctx is already canceled here, so the final flush sends
			// under a fresh context.
			w.flush(context.Background())
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *NotificationWorker) flush(parent context.Context) {
	pending := w.queue.DrainEmails()
	for _, req := range pending {
		sendCtx, cancel := context.WithTimeout(parent, notificationSendTimeout)
		err := w.service.SendEmail(sendCtx, req)
		cancel()
		if err != nil {
			w.logger.Warn("alert notification delivery failed", "delivery_id", req.ID, "to", req.To, "subject", req.Subject, "error", err)
		}
	}
}

// Stop signals the worker to flush once more and exit.
func (w *NotificationWorker) Stop() {
	if w == nil {
		return
	}
	w.cancel()
}

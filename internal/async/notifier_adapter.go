// 文件路径: internal/async/notifier_adapter.go
package async

import (
	"context"
	"fmt"

	"github.com/storewatch/sentinel/internal/notifier"
)

// QueueNotifier implements notifier.Service by enqueueing requests for a
// background worker to deliver, so the alert dispatcher never blocks on
// SMTP round-trip latency.
type QueueNotifier struct {
	queue *NotificationQueue
}

// NewQueueNotifier wraps a notification queue to satisfy notifier.Service.
func NewQueueNotifier(queue *NotificationQueue) notifier.Service {
	return &QueueNotifier{queue: queue}
}

// SendEmail enqueues the email request for asynchronous delivery.
func (n *QueueNotifier) SendEmail(ctx context.Context, req notifier.EmailRequest) error {
	if n == nil || n.queue == nil {
		return fmt.Errorf("notification queue unavailable")
	}
	n.queue.EnqueueEmail(req)
	return nil
}

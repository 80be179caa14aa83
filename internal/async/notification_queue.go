// 文件路径: internal/async/notification_queue.go
package async

import (
	"slices"
	"sync"

	"github.com/storewatch/sentinel/internal/notifier"
)

// NotificationQueue buffers outbound alert emails for background dispatch so
// the alert dispatcher never blocks the ingestion or sweeper paths on
// notification delivery.
type NotificationQueue struct {
	mu     sync.Mutex
	emails []notifier.EmailRequest
}

// NewNotificationQueue returns an empty notification queue instance.
func NewNotificationQueue() *NotificationQueue {
	return &NotificationQueue{emails: make([]notifier.EmailRequest, 0)}
}

// EnqueueEmail appends a pending email request.
func (q *NotificationQueue) EnqueueEmail(req notifier.EmailRequest) {
	if q == nil || len(req.To) == 0 {
		return
	}
	q.mu.Lock()
	q.emails = append(q.emails, cloneEmailRequest(req))
	q.mu.Unlock()
}

// DrainEmails returns all pending email requests and clears the buffer.
func (q *NotificationQueue) DrainEmails() []notifier.EmailRequest {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.emails
	q.emails = make([]notifier.EmailRequest, 0)
	return drained
}

// PendingEmails reports buffered email tasks.
func (q *NotificationQueue) PendingEmails() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.emails)
}

func cloneEmailRequest(req notifier.EmailRequest) notifier.EmailRequest {
	cloned := req
	if len(req.To) > 0 {
		cloned.To = slices.Clone(req.To)
	}
	return cloned
}

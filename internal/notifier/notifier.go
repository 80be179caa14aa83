// 文件路径: internal/notifier/notifier.go
package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// EmailRequest describes an alert notification addressed to one or more
// recipients. ID is a dispatcher-assigned correlation token carried
// through the async queue so a delivery failure log line can be matched
// back to the alert that produced it.
type EmailRequest struct {
	ID      string
	To      []string
	Subject string
	Body    string
}

// Service is the generic "recipient set + deliver message" sink the alert
// dispatcher targets; the relational store and HTTP surface are external
// collaborators, so is this.
type Service interface {
	SendEmail(ctx context.Context, req EmailRequest) error
}

// LoggerService logs notification intent instead of delivering it, used
// when no SMTP relay is configured so the server remains usable without
// one. Logging the request satisfies the Service contract: it is not an
// error, just a degraded delivery channel.
type LoggerService struct {
	logger *slog.Logger
}

// NewLoggerService builds a log-only notification service.
func NewLoggerService(logger *slog.Logger) *LoggerService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerService{logger: logger}
}

// SendEmail logs the email notification request.
func (s *LoggerService) SendEmail(ctx context.Context, req EmailRequest) error {
	if len(req.To) == 0 {
		return fmt.Errorf("recipient is required")
	}
	s.logger.InfoContext(ctx, "email notification", "id", req.ID, "to", req.To, "subject", req.Subject)
	return nil
}

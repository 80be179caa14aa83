// 文件路径: internal/notifier/smtp.go
package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig describes the outgoing mail server the server-side alert
// dispatcher delivers through.
type SMTPConfig struct {
	Host        string
	Port        int
	Encryption  string // "none", "ssl", or "starttls"
	Username    string
	Password    string
	FromAddress string
}

// SMTPService delivers alert emails over net/smtp, supporting plain,
// SSL, and STARTTLS connections.
type SMTPService struct {
	cfg     SMTPConfig
	timeout time.Duration
}

// NewSMTPService builds an SMTPService with the given connection timeout.
func NewSMTPService(cfg SMTPConfig, timeout time.Duration) *SMTPService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPService{cfg: cfg, timeout: timeout}
}

// SendEmail dials the configured SMTP server, authenticates if credentials
// are set, and delivers the message to every recipient in req.To.
func (s *SMTPService) SendEmail(ctx context.Context, req EmailRequest) error {
	if len(req.To) == 0 {
		return fmt.Errorf("recipient is required")
	}
	host := strings.TrimSpace(s.cfg.Host)
	if host == "" {
		return fmt.Errorf("smtp host is required")
	}
	if s.cfg.Port <= 0 {
		return fmt.Errorf("smtp port is required")
	}

	enc := strings.ToLower(strings.TrimSpace(s.cfg.Encryption))
	if enc == "" {
		enc = "none"
	}
	address := fmt.Sprintf("%s:%d", host, s.cfg.Port)
	dialer := net.Dialer{Timeout: s.timeout}
	deadline := time.Now().Add(s.timeout)

	var client *smtp.Client
	if enc == "ssl" {
		tlsConn, err := tls.DialWithDialer(&dialer, "tcp", address, &tls.Config{ServerName: host})
		if err != nil {
			return fmt.Errorf("smtp tls connection failed: %w", err)
		}
		defer tlsConn.Close()
		_ = tlsConn.SetDeadline(deadline)
		client, err = smtp.NewClient(tlsConn, host)
		if err != nil {
			return fmt.Errorf("smtp client init failed: %w", err)
		}
	} else {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return fmt.Errorf("smtp connection failed: %w", err)
		}
		defer conn.Close()
		_ = conn.SetDeadline(deadline)
		client, err = smtp.NewClient(conn, host)
		if err != nil {
			return fmt.Errorf("smtp client init failed: %w", err)
		}
	}
	defer client.Close()

	if err := client.Hello(host); err != nil {
		return fmt.Errorf("smtp hello failed: %w", err)
	}

	if enc == "starttls" {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("smtp starttls not supported")
		}
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("smtp starttls failed: %w", err)
		}
		if err := client.Hello(host); err != nil {
			return fmt.Errorf("smtp hello failed: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	from := s.cfg.FromAddress
	if from == "" {
		from = s.cfg.Username
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from failed: %w", err)
	}
	for _, rcpt := range req.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s failed: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data failed: %w", err)
	}
	defer w.Close()

	msg := buildMessage(from, req.To, req.Subject, req.Body)
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write failed: %w", err)
	}
	return client.Quit()
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

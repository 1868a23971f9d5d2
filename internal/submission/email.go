package submission

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"riskintake/internal/rif"
)

type SMTPNotifier struct {
	host string
	port int
	user string
	pass string
	from string
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// NewSMTPNotifier returns nil when SMTP is not configured, which disables
// notifications without special-casing callers.
func NewSMTPNotifier(cfg SMTPConfig) Notifier {
	if strings.TrimSpace(cfg.Host) == "" || cfg.Port <= 0 || strings.TrimSpace(cfg.From) == "" {
		return nil
	}
	return &SMTPNotifier{
		host: strings.TrimSpace(cfg.Host),
		port: cfg.Port,
		user: strings.TrimSpace(cfg.User),
		pass: cfg.Pass,
		from: strings.TrimSpace(cfg.From),
	}
}

func (m *SMTPNotifier) NotifySubmission(ctx context.Context, email, reference string, level rif.RiskLevel) error {
	_ = ctx
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	subject := fmt.Sprintf("Risk intake %s submitted for review", reference)
	body := fmt.Sprintf("Submission %s has been finalized with computed risk level %s.\nPlease review it in the risk intake portal.", reference, level)
	msg := "From: " + m.from + "\r\n" +
		"To: " + email + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
		body + "\r\n"

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("send submission notice: %w", err)
	}
	return nil
}

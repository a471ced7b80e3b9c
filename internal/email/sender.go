package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"smartliving/site/internal/config"
)

// Sender delivers a fully formatted RFC 822 message.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender relays through the configured SMTP server.
type SMTPSender struct {
	from string
	auth smtp.Auth
	addr string
}

// NewSMTPSender returns an SMTP sender, or a LoggingSender when no SMTP host
// is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("email: SMTP host not configured, notifications will only be logged")
		return &LoggingSender{from: cfg.SmtpFromAddress}
	}
	return &SMTPSender{
		from: cfg.SmtpFromAddress,
		auth: smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost),
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

func (s *SMTPSender) Send(_ context.Context, to []string, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	log.Printf("email: sent %q to %v", subject, to)
	return nil
}

// LoggingSender writes messages to the log instead of sending them.
type LoggingSender struct {
	from string
}

func (s *LoggingSender) Send(_ context.Context, to []string, subject string, rawMessage []byte) error {
	log.Printf("email: (logged) from %s to %v subject %q\n%s", s.from, to, subject, rawMessage)
	return nil
}

package mail

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"studyhub/internal/config"
)

// Sender delivers a single message. A nil error means the message was accepted.
type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	Logger *log.Logger
}

func (s LogSender) Send(to, subject, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[mail][dry-run] to=%s subject=%q\n%s", to, subject, body)
	return nil
}

// FromConfig picks the SMTP sender, or a LogSender for dry runs and when no
// SMTP host is configured.
func FromConfig(cfg config.Email) Sender {
	if cfg.DryRun || cfg.SMTPHost == "" {
		return LogSender{}
	}
	from := cfg.FromEmail
	if from == "" {
		from = cfg.SMTPUser
	}
	return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, from)
}

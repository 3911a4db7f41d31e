package notify

import (
	"context"
	"errors"
	"time"

	gomail "gopkg.in/mail.v2"
)

// ErrTransportDisabled is returned when SMTP credentials are not configured.
var ErrTransportDisabled = errors.New("email transport is not configured")

// EmailConfig holds SMTP configuration for sending emails.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	Timeout    time.Duration
}

func (c EmailConfig) Enabled() bool {
	return c.SMTPServer != "" && c.SMTPUser != "" && c.SMTPPass != ""
}

// EmailSender delivers messages via SMTP. Every Send dials its own
// connection and closes it before returning.
type EmailSender struct {
	cfg EmailConfig
}

// NewEmailSender creates a sender with the given SMTP configuration.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTPUser
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &EmailSender{cfg: cfg}
}

// Send delivers an email with HTML body and plain text fallback.
func (s *EmailSender) Send(ctx context.Context, to string, msg *RenderedMessage) error {
	if !s.cfg.Enabled() {
		return ErrTransportDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" && msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = s.cfg.Timeout

	return dialer.DialAndSend(m)
}

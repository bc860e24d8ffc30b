package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// Mail is an outgoing plain-text message.
type Mail struct {
	To      []string
	Bcc     []string
	Subject string
	Text    string
}

// Mailer delivers mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer validates cfg and returns a mailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp: host and from address are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// Send delivers m. Authentication is used only when a username is configured.
func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = m.To
	e.Bcc = m.Bcc
	e.Subject = m.Subject
	e.Text = []byte(m.Text)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := e.Send(fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port), auth); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

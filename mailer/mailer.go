// Package mailer provides delivery backends for the engine's Mailer
// interface: an SMTP sender for real deployments and a zerolog-backed
// sender that only logs, standing in for a provider during development.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	portalguard "github.com/eduportal/portalguard"
)

// LogMailer pretends to deliver by logging the message envelope. The body
// is logged at debug level only; it contains the reset link.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, mail portalguard.Mail) error {
	m.logger.Info().
		Str("to", mail.To).
		Str("subject", mail.Subject).
		Msg("mail (not delivered, log mailer)")
	m.logger.Debug().
		Str("to", mail.To).
		Str("body", mail.HTML).
		Msg("mail body")
	return nil
}

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	// Addr is host:port of the relay.
	Addr string
	// From is the envelope and header sender.
	From string
	// Username and Password select PLAIN auth; leave both empty for an
	// unauthenticated relay.
	Username string
	Password string
}

// SMTPMailer delivers through a single SMTP relay per send. It honors the
// context only between sends; net/smtp has no cancellation hooks.
type SMTPMailer struct {
	config SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, mail portalguard.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.config.Username != "" {
		host := m.config.Addr
		if idx := strings.IndexByte(host, ':'); idx >= 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, host)
	}

	msg := buildMessage(m.config.From, mail)
	if err := smtp.SendMail(m.config.Addr, auth, m.config.From, []string{mail.To}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from string, mail portalguard.Mail) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + mail.To + "\r\n")
	b.WriteString("Subject: " + mail.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(mail.HTML)
	return []byte(b.String())
}

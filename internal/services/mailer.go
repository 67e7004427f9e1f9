package services

import (
	"context"
	"fmt"

	"remote-shoot-backend/internal/config"

	"github.com/wneessen/go-mail"
)

// Mailer sends transactional mail. Behind an interface so handlers can be
// tested without an SMTP server.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPMailer delivers through a plain SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid mail sender: %w", err)
	}
	if err := msg.To(m.cfg.To); err != nil {
		return fmt.Errorf("invalid mail recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// InquiryBody formats a contact-form submission.
func InquiryBody(name, email, message string) string {
	return fmt.Sprintf("お名前: %s\nメール: %s\n\n%s\n", name, email, message)
}

// BookingEmailText is the body pasted into a booking confirmation mail.
func BookingEmailText(userURL string) string {
	return fmt.Sprintf("撮影開始URL\n%s\n\nこのURLをスマホで開いてください。", userURL)
}

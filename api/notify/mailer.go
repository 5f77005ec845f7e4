// Package notify delivers email, SMS and voice notifications. Senders never
// touch an HTTP response; failures are reported to the caller as values.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrNoMailer is returned when no email transport is configured
var ErrNoMailer = errors.New("no mail transport configured")

// Email is one outbound message
type Email struct {
	ToName  string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends an email
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// Sender is the From identity used by mailers
type Sender struct {
	Name    string
	Address string
}

// SendGridMailer sends through the SendGrid v3 API
type SendGridMailer struct {
	From   Sender
	client *sendgrid.Client
}

// NewSendGridMailer builds a SendGrid mailer for apiKey
func NewSendGridMailer(apiKey string, from Sender) *SendGridMailer {
	return &SendGridMailer{From: from, client: sendgrid.NewSendClient(apiKey)}
}

// Send delivers e through SendGrid
func (m *SendGridMailer) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := mail.NewEmail(m.From.Name, m.From.Address)
	to := mail.NewEmail(e.ToName, e.To)
	message := mail.NewSingleEmail(from, e.Subject, to, e.Text, e.HTML)

	response, err := m.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email via sendgrid: %w", err)
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", e.To)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	return nil
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	From   Sender
	dialer *gomail.Dialer
}

// NewSMTPMailer builds an SMTP mailer
func NewSMTPMailer(host string, port int, user, password string, from Sender) *SMTPMailer {
	return &SMTPMailer{From: from, dialer: gomail.NewDialer(host, port, user, password)}
}

// Send delivers e over SMTP
func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.From.Address, m.From.Name))
	msg.SetHeader("To", msg.FormatAddress(e.To, e.ToName))
	msg.SetHeader("Subject", e.Subject)
	msg.SetBody("text/plain", e.Text)
	if e.HTML != "" {
		msg.AddAlternative("text/html", e.HTML)
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email via smtp: %w", err)
	}
	return nil
}

// FallbackMailer tries each mailer in order until one succeeds
type FallbackMailer []Mailer

// Send returns nil on the first success, or every error joined
func (f FallbackMailer) Send(ctx context.Context, e Email) error {
	if len(f) == 0 {
		return ErrNoMailer
	}
	var errs []error
	for _, m := range f {
		err := m.Send(ctx, e)
		if err == nil {
			return nil
		}
		zap.S().Warnw("mail transport failed", "to", e.To, "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

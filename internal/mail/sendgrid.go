package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/hvackit/fieldsync/internal/config"
	"github.com/hvackit/fieldsync/internal/model"
)

// Relay forwards contact-form submissions through SendGrid.
type Relay struct {
	client *sendgrid.Client
	from   string
	to     string
}

// NewRelay builds a SendGrid relay. Returns nil if cfg is nil; the contact
// endpoint then reports the relay as unavailable.
func NewRelay(cfg *config.MailSection) *Relay {
	if cfg == nil {
		return nil
	}
	return &Relay{
		client: sendgrid.NewSendClient(cfg.SendGridKey),
		from:   cfg.From,
		to:     cfg.To,
	}
}

// SendContact relays one submission to the support inbox. The visitor's
// address goes into reply-to so support can answer directly.
func (r *Relay) SendContact(ctx context.Context, msg model.ContactMessage) error {
	if r == nil {
		return fmt.Errorf("mail relay not configured")
	}
	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail("FieldSync Contact", r.from))
	m.SetReplyTo(sgmail.NewEmail(msg.Name, msg.Email))
	m.Subject = fmt.Sprintf("[contact] %s", msg.Subject)

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", r.to))
	m.AddPersonalizations(p)

	body := fmt.Sprintf("From: %s <%s>\n\n%s", msg.Name, msg.Email, msg.Message)
	m.AddContent(sgmail.NewContent("text/plain", body))

	resp, err := r.client.SendWithContext(ctx, m)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

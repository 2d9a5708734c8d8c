package punchcard

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
)

// InvitationEmail carries everything the invitee needs to claim the account.
type InvitationEmail struct {
	Token             string
	TemporaryPassword string
	ExpiresAt         time.Time
	AcceptURL         string
}

// Mailer hands invitation credentials to the delivery collaborator. Transport
// is out of scope here; implementations decide how the message leaves the
// process.
type Mailer interface {
	SendInvitation(ctx context.Context, user *User, email InvitationEmail) error
}

// SendFunc is the transport half of TemplateMailer: deliver a rendered
// message to a recipient.
type SendFunc func(ctx context.Context, to, subject, body string) error

// ConsoleMailer writes invitation notifications to stdout. Useful for
// development and as the default when no transport is configured.
type ConsoleMailer struct{}

func (ConsoleMailer) SendInvitation(_ context.Context, user *User, email InvitationEmail) error {
	fmt.Println("====== SENDING INVITATION EMAIL =======")
	fmt.Printf("to: %s\n", user.Email)
	fmt.Printf("link: %s\n", email.AcceptURL)
	fmt.Printf("expires: %s\n", email.ExpiresAt.Format(time.RFC3339))
	return nil
}

// TemplateMailer renders the invitation body from a django template and hands
// it to a SendFunc. The template receives the invitee's name, the accept link,
// the temporary password, and the expiry.
type TemplateMailer struct {
	engine  *django.Engine
	sender  SendFunc
	subject string
}

// NewTemplateMailer loads templates from dir (expects an "invitation"
// template with the configured extension).
func NewTemplateMailer(dir, ext string, sender SendFunc) (*TemplateMailer, error) {
	engine := django.New(dir, ext)
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load mail templates")
	}

	return &TemplateMailer{
		engine:  engine,
		sender:  sender,
		subject: "You have been invited to Punchcard",
	}, nil
}

// WithSubject overrides the invitation subject line.
func (m *TemplateMailer) WithSubject(subject string) *TemplateMailer {
	if subject != "" {
		m.subject = subject
	}
	return m
}

func (m *TemplateMailer) SendInvitation(ctx context.Context, user *User, email InvitationEmail) error {
	var body bytes.Buffer
	err := m.engine.Render(&body, "invitation", map[string]any{
		"full_name":  user.FullName,
		"username":   user.Username,
		"accept_url": email.AcceptURL,
		"temp_pass":  email.TemporaryPassword,
		"expires_at": email.ExpiresAt.Format(time.RFC1123),
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to render invitation email")
	}

	if err := m.sender(ctx, user.Email, m.subject, body.String()); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to deliver invitation email").
			WithTextCode(TextCodeDeliveryFailure)
	}

	return nil
}

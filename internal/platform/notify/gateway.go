// Package notify wraps the platform's own transactional-email sender
// (Resend), used only for platform-to-user notifications: status updates,
// reminders, digests. It is deliberately separate from
// internal/platform/mail, which sends as the candidate through their own
// connected mailbox for anything recruiter-facing.
package notify

import (
	"context"

	"github.com/andreypavlenko/jobber/internal/config"
	"github.com/andreypavlenko/jobber/internal/platform/apperror"
	"github.com/resend/resend-go/v2"
)

// Gateway is the interface every caller depends on.
type Gateway interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Client is the Resend-backed Gateway implementation.
type Client struct {
	api  *resend.Client
	from string
}

// New builds a Client from config. Returns nil when no API key is
// configured, matching the teacher's optional-external-collaborator style
// (callers check for nil the same way storage.S3Client is optional).
func New(cfg config.NotifyConfig) *Client {
	if cfg.ResendAPIKey == "" {
		return nil
	}
	return &Client{
		api:  resend.NewClient(cfg.ResendAPIKey),
		from: cfg.FromAddress,
	}
}

func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}
	_, err := c.api.Emails.SendWithContext(ctx, params)
	if err != nil {
		return apperror.Wrap(apperror.KindExternalUnavailable, "resend: send failed", err)
	}
	return nil
}

// Package mail wraps a user's connected Gmail mailbox: sending MIME
// messages with attachments, searching/fetching inbox messages, and
// transparently refreshing OAuth2 tokens. Every component that touches a
// mailbox (submission router, response monitor, verification sweep) goes
// through Gateway rather than talking to the Gmail API directly.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	googleoption "google.golang.org/api/option"

	"github.com/andreypavlenko/jobber/internal/config"
	"github.com/andreypavlenko/jobber/internal/platform/apperror"
)

// Auth carries the refreshable OAuth2 credential for one user's mailbox.
type Auth struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	EmailAddress string
}

// Attachment is one file to attach to an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SendResult is returned by Send.
type SendResult struct {
	MessageID string
	ThreadID  string
}

// MessageSummary is one row of a List() result.
type MessageSummary struct {
	ID       string
	ThreadID string
}

// Message is the result of Fetch.
type Message struct {
	ID           string
	ThreadID     string
	Headers      map[string]string
	BodyText     string
	Snippet      string
	InternalDate time.Time
}

// Gateway is the interface every caller depends on.
type Gateway interface {
	Send(ctx context.Context, auth *Auth, to, subject, body string, attachments []Attachment) (*SendResult, error)
	List(ctx context.Context, auth *Auth, query string, max int) ([]MessageSummary, error)
	Fetch(ctx context.Context, auth *Auth, id string) (*Message, error)
	ListThread(ctx context.Context, auth *Auth, threadID string) ([]MessageSummary, error)
	Profile(ctx context.Context, auth *Auth) (string, error)
}

// Client is the Gmail-backed Gateway implementation.
type Client struct {
	oauthConfig *oauth2.Config
	sendTimeout time.Duration
}

// New builds a Client from config.
func New(cfg config.MailConfig) *Client {
	return &Client{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oauth2Endpoint(),
			Scopes: []string{
				"https://www.googleapis.com/auth/gmail.send",
				"https://www.googleapis.com/auth/gmail.readonly",
			},
		},
		sendTimeout: cfg.SendTimeout,
	}
}

func (c *Client) service(ctx context.Context, auth *Auth) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		Expiry:       auth.Expiry,
	}
	httpClient := c.oauthConfig.Client(ctx, token)
	svc, err := gmail.NewService(ctx, googleoption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, mapGmailError(err)
	}
	return svc, nil
}

// Send builds a multipart MIME message (UTF-8 body, base64-encoded file
// parts) and sends it through the user's mailbox.
func (c *Client) Send(ctx context.Context, auth *Auth, to, subject, body string, attachments []Attachment) (*SendResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	raw, err := buildMIMEMessage(auth.EmailAddress, to, subject, body, attachments)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindExternalUnavailable, "mail: failed to build message", err)
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	sent, err := svc.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return nil, mapGmailError(err)
	}

	return &SendResult{MessageID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// List runs a provider search query (supports from:, after:, rfc822msgid:,
// boolean OR, parentheses — whatever Gmail's query language accepts).
func (c *Client) List(ctx context.Context, auth *Auth, query string, max int) ([]MessageSummary, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Users.Messages.List("me").Q(query).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, mapGmailError(err)
	}

	out := make([]MessageSummary, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, MessageSummary{ID: m.Id, ThreadID: m.ThreadId})
	}
	return out, nil
}

// Fetch retrieves one message, preferring text/plain and falling back to an
// HTML-stripped plain-text rendering.
func (c *Client) Fetch(ctx context.Context, auth *Auth, id string) (*Message, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	msg, err := svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, mapGmailError(err)
	}

	headers := map[string]string{}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers[h.Name] = h.Value
		}
	}

	return &Message{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		Headers:      headers,
		BodyText:     extractPlainText(msg.Payload),
		Snippet:      msg.Snippet,
		InternalDate: time.UnixMilli(msg.InternalDate),
	}, nil
}

// ListThread returns every message in a thread, in the order Gmail stores
// them, for the response monitor's thread probe.
func (c *Client) ListThread(ctx context.Context, auth *Auth, threadID string) ([]MessageSummary, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	thread, err := svc.Users.Threads.Get("me", threadID).Context(ctx).Do()
	if err != nil {
		return nil, mapGmailError(err)
	}

	out := make([]MessageSummary, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		out = append(out, MessageSummary{ID: m.Id, ThreadID: m.ThreadId})
	}
	return out, nil
}

// Profile returns the mailbox's own address, used to tell replies from
// our own outbound sends apart.
func (c *Client) Profile(ctx context.Context, auth *Auth) (string, error) {
	svc, err := c.service(ctx, auth)
	if err != nil {
		return "", err
	}
	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", mapGmailError(err)
	}
	return profile.EmailAddress, nil
}

func buildMIMEMessage(from, to, subject, body string, attachments []Attachment) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary()))

	bodyPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=UTF-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	encodedBody := base64.StdEncoding.EncodeToString([]byte(body))
	if _, err := bodyPart.Write([]byte(encodedBody)); err != nil {
		return nil, err
	}

	for _, att := range attachments {
		part, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {att.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf(`attachment; filename="%s"`, att.Filename)},
		})
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(att.Data)
		if _, err := part.Write([]byte(encoded)); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var htmlTagPattern = regexp.MustCompile(`(?s)<[^>]*>`)

func extractPlainText(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if text, ok := findPart(payload, "text/plain"); ok {
		return text
	}
	if html, ok := findPart(payload, "text/html"); ok {
		return stripHTML(html)
	}
	return ""
}

func findPart(part *gmail.MessagePart, mimeType string) (string, bool) {
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	}
	for _, child := range part.Parts {
		if text, ok := findPart(child, mimeType); ok {
			return text, true
		}
	}
	return "", false
}

// stripHTML reduces an HTML body to plain text. The pack has no HTML
// parser dependency wired anywhere (no golang.org/x/net/html, no
// goquery); a regex tag-stripper is the standard-library fallback,
// documented in DESIGN.md.
func stripHTML(html string) string {
	text := htmlTagPattern.ReplaceAllString(html, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	return strings.Join(strings.Fields(text), " ")
}

func mapGmailError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "401") || strings.Contains(msg, "token expired") {
		return apperror.Wrap(apperror.KindAuthExpired, "mail: credential expired or revoked", err)
	}
	return apperror.Wrap(apperror.KindExternalUnavailable, "mail: gmail API call failed", err)
}

func oauth2Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  "https://accounts.google.com/o/oauth2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
	}
}

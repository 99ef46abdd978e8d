// Package browser is a thin RPC client to the external browser-automation
// worker (a separate process, out of scope for this module). It only
// speaks the HTTP protocol the worker exposes (start, status, check-status,
// cancel, health); it never
// drives a browser itself.
package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andreypavlenko/jobber/internal/config"
	"github.com/andreypavlenko/jobber/internal/platform/apperror"
)

// Status strings returned by /api/automation/start and /status/{id}.
const (
	StatusStarted                = "started"
	StatusCompleted              = "completed"
	StatusNeedsAuthentication    = "needs_authentication"
	StatusLoginRequired          = "login_required"
	StatusManualActionRequired   = "manual_action_required"
	StatusPendingVerification    = "pending_verification"
)

// Status strings returned by /api/automation/check-status.
const (
	PortalApplied  = "applied"
	PortalInReview = "in_review"
	PortalInterview = "interview"
	PortalOffer    = "offer"
	PortalRejected = "rejected"
	PortalUnknown  = "unknown"
)

// Credentials are passed to Start when the user already has a saved
// login for the target portal domain.
type Credentials struct {
	Username string
	Secret   string
}

// NewCredentials are reported back by the worker when it had to register
// a brand-new account for the candidate.
type NewCredentials struct {
	PortalName string
	Domain     string
	Username   string
	Password   string
}

// StartRequest is the payload for POST /api/automation/start.
type StartRequest struct {
	SessionID         string
	URL               string
	AutofillData      AutofillData
	JobSource         string
	Credentials       *Credentials
	AutoCreateAccount bool
}

// AutofillData is the candidate data the worker fills into the portal form.
type AutofillData struct {
	PersonalInfo map[string]string
	Experience   []map[string]any
	Education    []map[string]any
	Skills       map[string]any
}

// StartResult is the response from Start or PollStatus.
type StartResult struct {
	Status             string
	BrowserSessionID   string
	NewCredentials     *NewCredentials
	VerificationDomain string
}

// CheckStatusResult is the response from CheckStatus.
type CheckStatusResult struct {
	Success         bool
	Status          string
	MatchedKeyword  string
	ScreenshotBase64 string
}

// Client is the only implementation of the RPC surface; callers (C7, C9)
// depend on this concrete type directly since the protocol is an external
// contract, not something worth mocking behind an interface per spec.md §6.
type Client struct {
	baseURL      string
	sharedSecret string
	httpClient   *http.Client
	startTimeout time.Duration
	pollTimeout  time.Duration
	healthTimeout time.Duration
}

// New builds a Client from config.
func New(cfg config.BrowserConfig) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		sharedSecret:  cfg.SharedSecret,
		httpClient:    &http.Client{},
		startTimeout:  cfg.StartTimeout,
		pollTimeout:   cfg.PollTimeout,
		healthTimeout: cfg.HealthTimeout,
	}
}

// Start begins a browser-automation session for a portal application.
func (c *Client) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.startTimeout)
	defer cancel()

	body := map[string]any{
		"session_id":          req.SessionID,
		"url":                 req.URL,
		"autofill_data":       req.AutofillData,
		"job_source":          req.JobSource,
		"auto_create_account": req.AutoCreateAccount,
	}
	if req.Credentials != nil {
		body["credentials"] = map[string]string{
			"username": req.Credentials.Username,
			"secret":   req.Credentials.Secret,
		}
	}

	var raw startResponse
	if err := c.post(ctx, "/api/automation/start", body, &raw); err != nil {
		return nil, err
	}
	return raw.toResult(), nil
}

// PollStatus retrieves the current status of a running session.
func (c *Client) PollStatus(ctx context.Context, sessionID string) (*StartResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	var raw startResponse
	if err := c.get(ctx, "/api/automation/status/"+sessionID, &raw); err != nil {
		return nil, err
	}
	return raw.toResult(), nil
}

// CheckStatus probes a portal's "application status" page.
func (c *Client) CheckStatus(ctx context.Context, url string) (*CheckStatusResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	var raw checkStatusResponse
	if err := c.post(ctx, "/api/automation/check-status", map[string]any{"url": url}, &raw); err != nil {
		return nil, err
	}
	return &CheckStatusResult{
		Success:          raw.Success,
		Status:           raw.Status,
		MatchedKeyword:   raw.MatchedKeyword,
		ScreenshotBase64: raw.ScreenshotBase64,
	}, nil
}

// Cancel aborts a running session.
func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()
	return c.post(ctx, "/api/automation/cancel/"+sessionID, nil, nil)
}

// Health checks the worker's liveness.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	var raw struct {
		OK bool `json:"ok"`
	}
	if err := c.get(ctx, "/health", &raw); err != nil {
		return err
	}
	if !raw.OK {
		return apperror.New(apperror.KindExternalUnavailable, "browser worker reported unhealthy")
	}
	return nil
}

type startResponse struct {
	Status             string          `json:"status"`
	BrowserSessionID   string          `json:"browser_session_id"`
	NewCredentials     *newCredsWire   `json:"new_credentials,omitempty"`
	VerificationDomain string          `json:"verification_domain,omitempty"`
}

type newCredsWire struct {
	PortalName string `json:"portal_name"`
	Domain     string `json:"domain"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

func (r startResponse) toResult() *StartResult {
	res := &StartResult{
		Status:             r.Status,
		BrowserSessionID:   r.BrowserSessionID,
		VerificationDomain: r.VerificationDomain,
	}
	if r.NewCredentials != nil {
		res.NewCredentials = &NewCredentials{
			PortalName: r.NewCredentials.PortalName,
			Domain:     r.NewCredentials.Domain,
			Username:   r.NewCredentials.Username,
			Password:   r.NewCredentials.Password,
		}
	}
	return res
}

type checkStatusResponse struct {
	Success          bool   `json:"success"`
	Status           string `json:"status"`
	MatchedKeyword   string `json:"matched_keyword,omitempty"`
	ScreenshotBase64 string `json:"screenshot_base64,omitempty"`
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return apperror.Wrap(apperror.KindInvariant, "browser: failed to marshal request", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return apperror.Wrap(apperror.KindInvariant, "browser: failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperror.Wrap(apperror.KindInvariant, "browser: failed to build request", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.sharedSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(apperror.KindExternalUnavailable, "browser: worker unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return apperror.New(apperror.KindExternalUnavailable, fmt.Sprintf("browser: worker returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return apperror.New(apperror.KindInvariant, fmt.Sprintf("browser: worker rejected request with %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Wrap(apperror.KindExternalUnavailable, "browser: malformed worker response", err)
	}
	return nil
}

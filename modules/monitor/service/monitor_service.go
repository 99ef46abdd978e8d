// Package service implements the hybrid response monitor: a three-source
// probe (portal status page, mailbox search, reply thread) fused into at
// most one status signal per round.
package service

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andreypavlenko/jobber/internal/platform/browser"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
	gomail "github.com/andreypavlenko/jobber/internal/platform/mail"
	classifierModel "github.com/andreypavlenko/jobber/modules/classifier/model"
	"github.com/andreypavlenko/jobber/modules/monitor/model"
	"github.com/andreypavlenko/jobber/modules/monitor/ports"
	usersModel "github.com/andreypavlenko/jobber/modules/users/model"
)

// signalToStatus maps a fused signal key onto the application lifecycle's
// status vocabulary. This mapping is monitor's own business logic (which
// signal implies which status), not something the applications module
// itself has a table for, so it stays local to this package.
var signalToStatus = map[model.SignalKey]string{
	model.SignalRejected:  "rejected",
	model.SignalOffer:     "offer_received",
	model.SignalInterview: "interview_scheduled",
	model.SignalInReview:  "under_review",
	model.SignalApplied:   "applied",
}

const mailboxSearchMax = 25

// MonitorService runs one probe round per call to Probe. It is stateless
// between rounds; all per-application bookkeeping lives behind
// ApplicationGateway.
type MonitorService struct {
	mailer     gomail.Gateway
	browser    *browser.Client
	apps       ports.ApplicationGateway
	classifier ports.ClassifierGate
	log        *logger.Logger
}

// NewMonitorService builds a MonitorService.
func NewMonitorService(mailer gomail.Gateway, browserClient *browser.Client, apps ports.ApplicationGateway,
	classifier ports.ClassifierGate, log *logger.Logger) *MonitorService {
	return &MonitorService{
		mailer:     mailer,
		browser:    browserClient,
		apps:       apps,
		classifier: classifier,
		log:        log,
	}
}

// Probe gathers evidence from every source available for one application,
// fuses it, and — unless the round was aborted partway through — commits at
// most one status transition plus any new communications it discovered.
// Cancellation at a suspension point (ctx done between probe steps) returns
// ctx.Err() with nothing committed.
func (s *MonitorService) Probe(ctx context.Context, user *usersModel.User, input model.ProbeInput) (*model.ProbeResult, error) {
	now := time.Now().UTC()
	var signals []model.Signal
	var messages []model.NewMessage
	seen := map[string]bool{}

	if input.ApplicationURL != "" {
		sig, err := s.probePortal(ctx, input.ApplicationURL, now)
		if err != nil {
			s.log.Warn("monitor: portal probe failed", zap.String("application_id", input.ApplicationID), zap.Error(err))
		} else if sig != nil {
			signals = append(signals, *sig)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if user.HasMailbox() && input.RecipientEmail != "" {
		mboxSignals, mboxMessages, err := s.probeMailbox(ctx, user, input, now)
		if err != nil {
			s.log.Warn("monitor: mailbox probe failed", zap.String("application_id", input.ApplicationID), zap.Error(err))
		}
		signals = append(signals, mboxSignals...)
		for _, m := range mboxMessages {
			if !seen[m.ID] {
				seen[m.ID] = true
				messages = append(messages, m)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if user.HasMailbox() && input.ThreadID != "" {
		threadSignals, threadMessages, err := s.probeThread(ctx, user, input)
		if err != nil {
			s.log.Warn("monitor: thread probe failed", zap.String("application_id", input.ApplicationID), zap.Error(err))
		}
		signals = append(signals, threadSignals...)
		for _, m := range threadMessages {
			if !seen[m.ID] {
				seen[m.ID] = true
				messages = append(messages, m)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &model.ProbeResult{SignalsGathered: len(signals), CommunicationsAdded: len(messages)}

	for _, m := range messages {
		if err := s.apps.AppendCommunication(ctx, input.ApplicationID, m); err != nil {
			return nil, err
		}
	}

	if key, ok := model.Fuse(signals); ok && !isTerminal(input.CurrentStatus) {
		if key != model.SignalInReview || portalSignaledInReview(signals) || acknowledgmentGuardAllows(input.CurrentStatus) {
			newStatus, known := signalToStatus[key]
			if known && newStatus != input.CurrentStatus {
				if err := s.apps.RequestTransition(ctx, input.ApplicationID, newStatus); err != nil {
					return nil, err
				}
				result.NewStatus = newStatus
			}
		}
	}

	if err := s.apps.UpdateProbeMetadata(ctx, input.ApplicationID, now, 1); err != nil {
		return nil, err
	}

	return result, nil
}

// portalSignaledInReview reports whether the portal probe itself (not a
// classifier acknowledgment) produced the in_review signal; that source
// needs no status guard (spec.md's "Portal probe → in_review" row).
func portalSignaledInReview(signals []model.Signal) bool {
	for _, sig := range signals {
		if sig.Source == model.SourcePortal && sig.Key == model.SignalInReview {
			return true
		}
	}
	return false
}

func (s *MonitorService) probePortal(ctx context.Context, url string, now time.Time) (*model.Signal, error) {
	check, err := s.browser.CheckStatus(ctx, url)
	if err != nil {
		return nil, err
	}
	if !check.Success {
		return nil, nil
	}
	key, ok := portalSignalKey(check.Status)
	if !ok {
		return nil, nil
	}
	return &model.Signal{Source: model.SourcePortal, Key: key, Confidence: 1.0, Timestamp: now}, nil
}

func (s *MonitorService) probeMailbox(ctx context.Context, user *usersModel.User, input model.ProbeInput, now time.Time) ([]model.Signal, []model.NewMessage, error) {
	auth := mailboxAuth(user.Mailbox)
	query := mailboxQuery(input.RecipientEmail, input.SearchWindow(now))

	summaries, err := s.mailer.List(ctx, auth, query, mailboxSearchMax)
	if err != nil {
		return nil, nil, err
	}

	var signals []model.Signal
	var messages []model.NewMessage
	for _, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return signals, messages, err
		}
		full, err := s.mailer.Fetch(ctx, auth, summary.ID)
		if err != nil {
			s.log.Warn("monitor: failed to fetch mailbox message", zap.String("message_id", summary.ID), zap.Error(err))
			continue
		}
		msg, sig := s.classifyMessage(ctx, full, input.ApplicationID, model.SourceMailbox)
		messages = append(messages, msg)
		if sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals, messages, nil
}

func (s *MonitorService) probeThread(ctx context.Context, user *usersModel.User, input model.ProbeInput) ([]model.Signal, []model.NewMessage, error) {
	auth := mailboxAuth(user.Mailbox)
	summaries, err := s.mailer.ListThread(ctx, auth, input.ThreadID)
	if err != nil {
		return nil, nil, err
	}

	var signals []model.Signal
	var messages []model.NewMessage
	for _, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return signals, messages, err
		}
		full, err := s.mailer.Fetch(ctx, auth, summary.ID)
		if err != nil {
			s.log.Warn("monitor: failed to fetch thread message", zap.String("message_id", summary.ID), zap.Error(err))
			continue
		}
		if !full.InternalDate.After(input.LastOutboundSentAt) {
			continue
		}
		msg, sig := s.classifyMessage(ctx, full, input.ApplicationID, model.SourceThread)
		messages = append(messages, msg)
		if sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals, messages, nil
}

func (s *MonitorService) classifyMessage(ctx context.Context, full *gomail.Message, appID string, source model.SignalSource) (model.NewMessage, *model.Signal) {
	from := full.Headers["From"]
	subject := full.Headers["Subject"]
	msg := model.NewMessage{
		ID:        full.ID,
		ThreadID:  full.ThreadID,
		From:      from,
		Subject:   subject,
		Snippet:   full.Snippet,
		Timestamp: full.InternalDate,
	}

	analysis := s.classifier.Analyze(ctx, subject, full.BodyText, from, appID, true)
	if analysis == nil || analysis.Confidence < classifierModel.MinConfidenceForTransition {
		return msg, nil
	}
	key, ok := classifierSignalKey(analysis.Category)
	if !ok {
		return msg, nil
	}
	return msg, &model.Signal{
		Source:     source,
		Key:        key,
		Confidence: analysis.Confidence,
		Timestamp:  full.InternalDate,
		MessageID:  full.ID,
	}
}

// linkPattern pulls the first http(s) URL out of a verification email's
// plain-text body. Verification mails are templated by the ATS/portal, not
// by us, so this is a best-effort scan rather than a structured parse.
var linkPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Verify implements C12's verification_sweep: search the mailbox for a
// fresh message from the application's verification portal domain, pull
// the first link out of it, and follow it headlessly through the browser
// worker's check-status endpoint (the same "navigate and report status"
// primitive the portal probe already uses).
func (s *MonitorService) Verify(ctx context.Context, user *usersModel.User, input model.VerifyInput) (*model.VerifyResult, error) {
	auth := mailboxAuth(user.Mailbox)
	query := fmt.Sprintf("from:(%s) after:%s", input.VerificationDomain, input.SentAt.Format("2006/01/02"))

	summaries, err := s.mailer.List(ctx, auth, query, mailboxSearchMax)
	if err != nil {
		return nil, err
	}

	for _, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		full, err := s.mailer.Fetch(ctx, auth, summary.ID)
		if err != nil {
			s.log.Warn("monitor: failed to fetch verification message", zap.String("message_id", summary.ID), zap.Error(err))
			continue
		}
		link := linkPattern.FindString(full.BodyText)
		if link == "" {
			continue
		}
		check, err := s.browser.CheckStatus(ctx, link)
		if err != nil {
			return nil, err
		}
		if check.Success {
			if err := s.apps.RequestTransition(ctx, input.ApplicationID, signalToStatus[model.SignalApplied]); err != nil {
				return nil, err
			}
		}
		return &model.VerifyResult{Verified: check.Success, Status: check.Status}, nil
	}
	return &model.VerifyResult{}, nil
}

func mailboxAuth(cred *usersModel.MailboxCredential) *gomail.Auth {
	return &gomail.Auth{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
		EmailAddress: cred.EmailAddress,
	}
}

func mailboxQuery(recipientEmail string, since time.Time) string {
	domain := recipientEmail
	if addr, err := mail.ParseAddress(recipientEmail); err == nil {
		if at := strings.LastIndex(addr.Address, "@"); at != -1 {
			domain = addr.Address[at+1:]
		}
	}
	return fmt.Sprintf("from:(%s) after:%s", domain, since.Format("2006/01/02"))
}

package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreypavlenko/jobber/internal/config"
	"github.com/andreypavlenko/jobber/internal/platform/browser"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
	gomail "github.com/andreypavlenko/jobber/internal/platform/mail"
	classifierModel "github.com/andreypavlenko/jobber/modules/classifier/model"
	"github.com/andreypavlenko/jobber/modules/monitor/model"
	usersModel "github.com/andreypavlenko/jobber/modules/users/model"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("error", "console")
	require.NoError(t, err)
	return l
}

type mockApplicationGateway struct {
	RequestTransitionFunc func(ctx context.Context, appID, newStatus string) error
	transitions           []string
	communications        []model.NewMessage
	metadataUpdated       bool
}

func (m *mockApplicationGateway) RequestTransition(ctx context.Context, appID, newStatus string) error {
	m.transitions = append(m.transitions, newStatus)
	if m.RequestTransitionFunc != nil {
		return m.RequestTransitionFunc(ctx, appID, newStatus)
	}
	return nil
}

func (m *mockApplicationGateway) AppendCommunication(ctx context.Context, appID string, msg model.NewMessage) error {
	m.communications = append(m.communications, msg)
	return nil
}

func (m *mockApplicationGateway) UpdateProbeMetadata(ctx context.Context, appID string, lastCheck time.Time, checkCount int) error {
	m.metadataUpdated = true
	return nil
}

type mockClassifierGate struct {
	result *classifierModel.AnalysisResult
}

func (m *mockClassifierGate) Analyze(ctx context.Context, subject, body, sender, appID string, useLLM bool) *classifierModel.AnalysisResult {
	return m.result
}

type mockMailer struct {
	listResult  []gomail.MessageSummary
	fetchResult map[string]*gomail.Message
}

func (m *mockMailer) Send(ctx context.Context, auth *gomail.Auth, to, subject, body string, attachments []gomail.Attachment) (*gomail.SendResult, error) {
	return nil, nil
}

func (m *mockMailer) List(ctx context.Context, auth *gomail.Auth, query string, max int) ([]gomail.MessageSummary, error) {
	return m.listResult, nil
}

func (m *mockMailer) Fetch(ctx context.Context, auth *gomail.Auth, id string) (*gomail.Message, error) {
	return m.fetchResult[id], nil
}

func (m *mockMailer) ListThread(ctx context.Context, auth *gomail.Auth, threadID string) ([]gomail.MessageSummary, error) {
	return nil, nil
}

func (m *mockMailer) Profile(ctx context.Context, auth *gomail.Auth) (string, error) {
	return "", nil
}

func TestProbe_MailboxSignalTransitionsStatus(t *testing.T) {
	apps := &mockApplicationGateway{}
	classifier := &mockClassifierGate{result: &classifierModel.AnalysisResult{
		Category:   classifierModel.CategoryRejection,
		Confidence: 0.9,
	}}
	mailer := &mockMailer{
		listResult: []gomail.MessageSummary{{ID: "msg-1", ThreadID: "thread-1"}},
		fetchResult: map[string]*gomail.Message{
			"msg-1": {
				ID:           "msg-1",
				ThreadID:     "thread-1",
				Headers:      map[string]string{"From": "hr@example.com", "Subject": "Update"},
				BodyText:     "Unfortunately we have decided not to move forward.",
				InternalDate: time.Now().UTC(),
			},
		},
	}

	s := NewMonitorService(mailer, nil, apps, classifier, newTestLogger(t))
	user := &usersModel.User{Mailbox: &usersModel.MailboxCredential{RefreshToken: "rt"}}

	result, err := s.Probe(context.Background(), user, model.ProbeInput{
		ApplicationID:  "app-1",
		CurrentStatus:  "applied",
		RecipientEmail: "hr@example.com",
		AppliedDate:    time.Now().AddDate(0, 0, -5),
		IsAutoApply:    true,
	})

	require.NoError(t, err)
	assert.Equal(t, "rejected", result.NewStatus)
	require.Len(t, apps.transitions, 1)
	assert.Equal(t, "rejected", apps.transitions[0])
	assert.Len(t, apps.communications, 1)
	assert.True(t, apps.metadataUpdated)
}

func TestProbe_LowConfidenceSignalDoesNotTransition(t *testing.T) {
	apps := &mockApplicationGateway{}
	classifier := &mockClassifierGate{result: &classifierModel.AnalysisResult{
		Category:   classifierModel.CategoryRejection,
		Confidence: 0.3,
	}}
	mailer := &mockMailer{
		listResult: []gomail.MessageSummary{{ID: "msg-1"}},
		fetchResult: map[string]*gomail.Message{
			"msg-1": {ID: "msg-1", Headers: map[string]string{"From": "hr@example.com"}, InternalDate: time.Now().UTC()},
		},
	}

	s := NewMonitorService(mailer, nil, apps, classifier, newTestLogger(t))
	user := &usersModel.User{Mailbox: &usersModel.MailboxCredential{RefreshToken: "rt"}}

	result, err := s.Probe(context.Background(), user, model.ProbeInput{
		ApplicationID:  "app-1",
		CurrentStatus:  "applied",
		RecipientEmail: "hr@example.com",
	})

	require.NoError(t, err)
	assert.Empty(t, result.NewStatus)
	assert.Empty(t, apps.transitions)
	assert.Len(t, apps.communications, 1)
}

func TestProbe_TerminalStatusNeverTransitions(t *testing.T) {
	apps := &mockApplicationGateway{}
	classifier := &mockClassifierGate{result: &classifierModel.AnalysisResult{
		Category:   classifierModel.CategoryOffer,
		Confidence: 0.95,
	}}
	mailer := &mockMailer{
		listResult: []gomail.MessageSummary{{ID: "msg-1"}},
		fetchResult: map[string]*gomail.Message{
			"msg-1": {ID: "msg-1", Headers: map[string]string{"From": "hr@example.com"}, InternalDate: time.Now().UTC()},
		},
	}

	s := NewMonitorService(mailer, nil, apps, classifier, newTestLogger(t))
	user := &usersModel.User{Mailbox: &usersModel.MailboxCredential{RefreshToken: "rt"}}

	result, err := s.Probe(context.Background(), user, model.ProbeInput{
		ApplicationID:  "app-1",
		CurrentStatus:  "rejected",
		RecipientEmail: "hr@example.com",
	})

	require.NoError(t, err)
	assert.Empty(t, result.NewStatus)
	assert.Empty(t, apps.transitions)
}

func TestProbe_CanceledContextCommitsNothing(t *testing.T) {
	apps := &mockApplicationGateway{}
	classifier := &mockClassifierGate{}
	mailer := &mockMailer{}

	s := NewMonitorService(mailer, nil, apps, classifier, newTestLogger(t))
	user := &usersModel.User{Mailbox: &usersModel.MailboxCredential{RefreshToken: "rt"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Probe(ctx, user, model.ProbeInput{
		ApplicationID:  "app-1",
		CurrentStatus:  "applied",
		RecipientEmail: "hr@example.com",
	})

	require.Error(t, err)
	assert.Empty(t, apps.transitions)
	assert.False(t, apps.metadataUpdated)
}

func TestVerify_FollowsLinkFromVerificationEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "status": "applied"})
	}))
	defer srv.Close()

	browserClient := browser.New(config.BrowserConfig{BaseURL: srv.URL, PollTimeout: time.Second})

	mailer := &mockMailer{
		listResult: []gomail.MessageSummary{{ID: "msg-1"}},
		fetchResult: map[string]*gomail.Message{
			"msg-1": {ID: "msg-1", BodyText: "Please confirm: https://portal.example.com/verify/abc123 — thanks."},
		},
	}

	s := NewMonitorService(mailer, browserClient, &mockApplicationGateway{}, &mockClassifierGate{}, newTestLogger(t))
	user := &usersModel.User{Mailbox: &usersModel.MailboxCredential{RefreshToken: "rt"}}

	result, err := s.Verify(context.Background(), user, model.VerifyInput{
		ApplicationID:      "app-1",
		VerificationDomain: "portal.example.com",
		SentAt:             time.Now().UTC().AddDate(0, 0, -1),
	})

	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, "applied", result.Status)
}

func TestVerify_NoMatchingEmailReturnsUnverified(t *testing.T) {
	mailer := &mockMailer{}
	s := NewMonitorService(mailer, nil, &mockApplicationGateway{}, &mockClassifierGate{}, newTestLogger(t))
	user := &usersModel.User{Mailbox: &usersModel.MailboxCredential{RefreshToken: "rt"}}

	result, err := s.Verify(context.Background(), user, model.VerifyInput{
		ApplicationID:      "app-1",
		VerificationDomain: "portal.example.com",
		SentAt:             time.Now().UTC(),
	})

	require.NoError(t, err)
	assert.False(t, result.Verified)
}

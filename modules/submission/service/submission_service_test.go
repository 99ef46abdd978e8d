package service

import (
	"context"
	"testing"

	"github.com/andreypavlenko/jobber/internal/platform/browser"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
	jobsModel "github.com/andreypavlenko/jobber/modules/jobs/model"
	quotaModel "github.com/andreypavlenko/jobber/modules/quota/model"
	"github.com/andreypavlenko/jobber/modules/submission/ports"
	usersModel "github.com/andreypavlenko/jobber/modules/users/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockApplicationGateway struct {
	TransitionFunc func(ctx context.Context, appID string, input ports.TransitionInput) error
	HardDeleteFunc func(ctx context.Context, appID, jobID string) error

	lastTransition *ports.TransitionInput
	hardDeleted    bool
}

func (m *mockApplicationGateway) Transition(ctx context.Context, appID string, input ports.TransitionInput) error {
	m.lastTransition = &input
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, appID, input)
	}
	return nil
}

func (m *mockApplicationGateway) HardDelete(ctx context.Context, appID, jobID string) error {
	m.hardDeleted = true
	if m.HardDeleteFunc != nil {
		return m.HardDeleteFunc(ctx, appID, jobID)
	}
	return nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("error", "console")
	require.NoError(t, err)
	return l
}

func TestInterpretBrowserStatus_LoginWallHardDeletesKnownSource(t *testing.T) {
	apps := &mockApplicationGateway{}
	s := &SubmissionService{apps: apps, log: newTestLogger(t)}

	url := "https://remoteok.com/apply/123"
	job := &jobsModel.Job{ApplicationURL: &url, Source: strPtr("remoteok")}
	user := &usersModel.User{}

	outcome, err := s.interpretBrowserStatus(context.Background(), "app-1", job, user, "remoteok.com", &browser.StartResult{
		Status: browser.StatusNeedsAuthentication,
	})

	require.NoError(t, err)
	assert.True(t, outcome.Deleted)
	assert.Equal(t, "deleted", outcome.Status)
	assert.True(t, apps.hardDeleted)
	assert.Nil(t, apps.lastTransition)
}

func TestInterpretBrowserStatus_AuthWallOnUnknownSourceTransitions(t *testing.T) {
	apps := &mockApplicationGateway{}
	s := &SubmissionService{apps: apps, log: newTestLogger(t)}

	url := "https://careers.example.com/apply/123"
	job := &jobsModel.Job{ApplicationURL: &url, Source: strPtr("company_site")}
	user := &usersModel.User{}

	outcome, err := s.interpretBrowserStatus(context.Background(), "app-1", job, user, "careers.example.com", &browser.StartResult{
		Status: browser.StatusNeedsAuthentication,
	})

	require.NoError(t, err)
	assert.False(t, outcome.Deleted)
	assert.Equal(t, "needs_authentication", outcome.Status)
	assert.False(t, apps.hardDeleted)
	require.NotNil(t, apps.lastTransition)
	assert.Equal(t, "needs_authentication", apps.lastTransition.NewStatus)
}

type mockJobScheduler struct {
	enqueued []string
}

func (m *mockJobScheduler) Enqueue(ctx context.Context, topic, idempotencyKey string, payload any) error {
	m.enqueued = append(m.enqueued, topic)
	return nil
}

func TestInterpretBrowserStatus_CompletedEnablesMonitoringForPaidUser(t *testing.T) {
	apps := &mockApplicationGateway{}
	s := &SubmissionService{apps: apps, log: newTestLogger(t), queue: &mockJobScheduler{}}

	url := "https://careers.example.com/apply/123"
	job := &jobsModel.Job{ApplicationURL: &url}
	user := &usersModel.User{Plan: usersModel.PlanPro}

	outcome, err := s.interpretBrowserStatus(context.Background(), "app-1", job, user, "careers.example.com", &browser.StartResult{
		Status: browser.StatusCompleted,
	})

	require.NoError(t, err)
	assert.Equal(t, "applied", outcome.Status)
	require.NotNil(t, apps.lastTransition)
	require.NotNil(t, apps.lastTransition.EmailMonitoringEnabled)
	assert.True(t, *apps.lastTransition.EmailMonitoringEnabled)
}

func TestSubmit_QuotaDeniedFailsFast(t *testing.T) {
	quota := &mockQuotaGate{CheckFunc: func(ctx context.Context, userID string, event quotaModel.EventType, qty int) (bool, int, int, error) {
		return false, 5, 5, nil
	}}
	apps := &mockApplicationGateway{}
	s := &SubmissionService{quota: quota, apps: apps, log: newTestLogger(t)}

	user := &usersModel.User{ID: "user-1"}
	job := &jobsModel.Job{Title: "Engineer"}

	_, err := s.Submit(context.Background(), user, "app-1", job, nil, quotaModel.EventAutoApplication)

	require.ErrorIs(t, err, quotaModel.ErrQuotaDenied)
	assert.Nil(t, apps.lastTransition)
}

type mockQuotaGate struct {
	CheckFunc func(ctx context.Context, userID string, event quotaModel.EventType, qty int) (bool, int, int, error)
	TrackFunc func(ctx context.Context, userID string, event quotaModel.EventType, qty int, idempotencyKey string) error
}

func (m *mockQuotaGate) Check(ctx context.Context, userID string, event quotaModel.EventType, qty int) (bool, int, int, error) {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, userID, event, qty)
	}
	return true, 0, -1, nil
}

func (m *mockQuotaGate) Track(ctx context.Context, userID string, event quotaModel.EventType, qty int, idempotencyKey string) error {
	if m.TrackFunc != nil {
		return m.TrackFunc(ctx, userID, event, qty, idempotencyKey)
	}
	return nil
}

func strPtr(s string) *string { return &s }

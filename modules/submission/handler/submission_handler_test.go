package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreypavlenko/jobber/internal/platform/logger"
	appModel "github.com/andreypavlenko/jobber/modules/applications/model"
	appPorts "github.com/andreypavlenko/jobber/modules/applications/ports"
	appService "github.com/andreypavlenko/jobber/modules/applications/service"
	companiesModel "github.com/andreypavlenko/jobber/modules/companies/model"
	companiesPorts "github.com/andreypavlenko/jobber/modules/companies/ports"
	jobsModel "github.com/andreypavlenko/jobber/modules/jobs/model"
	notificationsModel "github.com/andreypavlenko/jobber/modules/notifications/model"
	quotaModel "github.com/andreypavlenko/jobber/modules/quota/model"
	resumesModel "github.com/andreypavlenko/jobber/modules/resumes/model"
	resumesPorts "github.com/andreypavlenko/jobber/modules/resumes/ports"
	"github.com/andreypavlenko/jobber/modules/submission/service"
	usersModel "github.com/andreypavlenko/jobber/modules/users/model"
)

type stubAppRepo struct{ app *appModel.Application }

func (r *stubAppRepo) Create(ctx context.Context, app *appModel.Application) error { return nil }
func (r *stubAppRepo) GetByID(ctx context.Context, userID, appID string) (*appModel.Application, error) {
	if r.app == nil || r.app.UserID != userID {
		return nil, appModel.ErrApplicationNotFound
	}
	return r.app, nil
}
func (r *stubAppRepo) GetByIDAny(ctx context.Context, appID string) (*appModel.Application, error) {
	if r.app == nil {
		return nil, appModel.ErrApplicationNotFound
	}
	return r.app, nil
}
func (r *stubAppRepo) List(ctx context.Context, userID string, opts *appPorts.ListOptions) ([]*appModel.Application, int, error) {
	return nil, 0, nil
}
func (r *stubAppRepo) ListAll(ctx context.Context, userID string) ([]*appModel.Application, error) {
	return nil, nil
}
func (r *stubAppRepo) ListMonitorable(ctx context.Context) ([]*appModel.Application, error) {
	return nil, nil
}
func (r *stubAppRepo) ListByStatus(ctx context.Context, status string) ([]*appModel.Application, error) {
	return nil, nil
}
func (r *stubAppRepo) Update(ctx context.Context, app *appModel.Application) error { return nil }
func (r *stubAppRepo) SoftDelete(ctx context.Context, userID, appID string) error  { return nil }
func (r *stubAppRepo) HardDelete(ctx context.Context, appID, jobID string) error  { return nil }
func (r *stubAppRepo) GetLastActivityAt(ctx context.Context, appID string) (time.Time, error) {
	return time.Now().UTC(), nil
}

type stubJobRepo struct{}

func (stubJobRepo) Create(ctx context.Context, job *jobsModel.Job) error { return nil }
func (stubJobRepo) GetByID(ctx context.Context, userID, jobID string) (*jobsModel.Job, error) {
	email := "recruiter@example.com"
	return &jobsModel.Job{ID: jobID, Title: "Staff Engineer", ApplicationEmail: &email}, nil
}
func (stubJobRepo) List(ctx context.Context, userID string, limit, offset int, status, sortBy, sortOrder string) ([]*jobsModel.JobDTO, int, error) {
	return nil, 0, nil
}
func (stubJobRepo) Update(ctx context.Context, job *jobsModel.Job) error    { return nil }
func (stubJobRepo) Delete(ctx context.Context, userID, jobID string) error { return nil }
func (stubJobRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type stubResumeRepo struct{}

func (stubResumeRepo) Create(ctx context.Context, resume *resumesModel.Resume) error { return nil }
func (stubResumeRepo) GetByID(ctx context.Context, userID, resumeID string) (*resumesModel.Resume, error) {
	return &resumesModel.Resume{ID: resumeID, Title: "Main CV", Parsed: &resumesModel.ParsedCV{}}, nil
}
func (stubResumeRepo) List(ctx context.Context, userID string, limit, offset int, sortBy, sortDir string) ([]*resumesPorts.ResumeWithCount, int, error) {
	return nil, 0, nil
}
func (stubResumeRepo) Update(ctx context.Context, resume *resumesModel.Resume) error { return nil }
func (stubResumeRepo) Delete(ctx context.Context, userID, resumeID string) error    { return nil }

type stubUserRepo struct{}

func (stubUserRepo) Create(ctx context.Context, user *usersModel.User) error { return nil }
func (stubUserRepo) GetByID(ctx context.Context, userID string) (*usersModel.User, error) {
	return &usersModel.User{ID: userID, Email: "candidate@example.com"}, nil
}
func (stubUserRepo) GetByEmail(ctx context.Context, email string) (*usersModel.User, error) {
	return nil, nil
}
func (stubUserRepo) Update(ctx context.Context, user *usersModel.User) error { return nil }
func (stubUserRepo) Delete(ctx context.Context, userID string) error        { return nil }

type stubCompanyRepo struct{}

func (stubCompanyRepo) Create(ctx context.Context, company *companiesModel.Company) error { return nil }
func (stubCompanyRepo) GetByID(ctx context.Context, userID, companyID string) (*companiesModel.Company, error) {
	return &companiesModel.Company{ID: companyID, Name: "Acme"}, nil
}
func (stubCompanyRepo) GetByIDEnriched(ctx context.Context, userID, companyID string) (*companiesModel.CompanyDTO, error) {
	return nil, nil
}
func (stubCompanyRepo) List(ctx context.Context, userID string, opts *companiesPorts.ListOptions) ([]*companiesModel.CompanyDTO, int, error) {
	return nil, 0, nil
}
func (stubCompanyRepo) Update(ctx context.Context, company *companiesModel.Company) error { return nil }
func (stubCompanyRepo) Delete(ctx context.Context, userID, companyID string) error        { return nil }
func (stubCompanyRepo) GetRelatedJobsAndApplicationsCount(ctx context.Context, userID, companyID string) (int, int, error) {
	return 0, 0, nil
}

type stubNotifier struct{}

func (stubNotifier) Notify(ctx context.Context, userID string, typ notificationsModel.NotificationType, title, message string, data map[string]any, channels []notificationsModel.Channel) (*notificationsModel.NotificationDTO, error) {
	return &notificationsModel.NotificationDTO{}, nil
}

type stubQuotaGate struct{ allowed bool }

func (g stubQuotaGate) Check(ctx context.Context, userID string, event quotaModel.EventType, qty int) (bool, int, int, error) {
	return g.allowed, 0, 10, nil
}
func (g stubQuotaGate) Track(ctx context.Context, userID string, event quotaModel.EventType, qty int, idempotencyKey string) error {
	return nil
}

type stubJobScheduler struct{}

func (stubJobScheduler) Enqueue(ctx context.Context, topic, idempotencyKey string, payload any) error {
	return nil
}

func newSubmitRouter(t *testing.T, appRepo *stubAppRepo, quotaAllowed bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	appSvc := appService.NewApplicationService(appRepo, stubJobRepo{}, stubCompanyRepo{}, stubResumeRepo{}, stubNotifier{}, log)

	svc := service.NewSubmissionService(
		stubQuotaGate{allowed: quotaAllowed},
		nil,
		appSvc,
		stubUserRepo{},
		stubCompanyRepo{},
		nil,
		nil,
		nil,
		stubJobScheduler{},
		log,
	)
	h := NewSubmissionHandler(svc, appRepo, stubJobRepo{}, stubResumeRepo{}, stubUserRepo{})

	router := gin.New()
	group := router.Group("/api")
	h.RegisterRoutes(group, func(c *gin.Context) {
		c.Set("user_id", "u1")
		c.Next()
	})
	return router
}

func TestSubmissionHandler_Submit_QuotaDenied(t *testing.T) {
	appRepo := &stubAppRepo{app: &appModel.Application{ID: "app-1", UserID: "u1", JobID: "job-1", ResumeID: "resume-1"}}
	router := newSubmitRouter(t, appRepo, false)

	req := httptest.NewRequest(http.MethodPost, "/api/applications/app-1/submit", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestSubmissionHandler_Submit_ApplicationNotFound(t *testing.T) {
	appRepo := &stubAppRepo{}
	router := newSubmitRouter(t, appRepo, true)

	req := httptest.NewRequest(http.MethodPost, "/api/applications/missing/submit", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

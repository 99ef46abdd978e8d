package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/andreypavlenko/jobber/internal/platform/apperror"
	"github.com/andreypavlenko/jobber/internal/platform/browser"
	"github.com/andreypavlenko/jobber/internal/platform/llm"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
	"github.com/andreypavlenko/jobber/internal/platform/mail"
	companiesModel "github.com/andreypavlenko/jobber/modules/companies/model"
	companiesPorts "github.com/andreypavlenko/jobber/modules/companies/ports"
	jobsModel "github.com/andreypavlenko/jobber/modules/jobs/model"
	quotaModel "github.com/andreypavlenko/jobber/modules/quota/model"
	resumesModel "github.com/andreypavlenko/jobber/modules/resumes/model"
	"github.com/andreypavlenko/jobber/modules/submission/model"
	"github.com/andreypavlenko/jobber/modules/submission/ports"
	tailoringModel "github.com/andreypavlenko/jobber/modules/tailoring/model"
	usersModel "github.com/andreypavlenko/jobber/modules/users/model"
	usersPorts "github.com/andreypavlenko/jobber/modules/users/ports"
	"go.uber.org/zap"
)

// SubmissionService implements the Submission Router (spec §4.7): decide
// email vs. browser, dispatch the channel, and drive the resulting
// application transition.
type SubmissionService struct {
	quota     ports.QuotaGate
	tailoring ports.TailoringPipeline
	apps      ports.ApplicationGateway
	users     usersPorts.UserRepository
	companies companiesPorts.CompanyRepository
	mailer    mail.Gateway
	browser   *browser.Client
	llm       llm.Gateway
	queue     ports.JobScheduler
	log       *logger.Logger
}

func NewSubmissionService(
	quota ports.QuotaGate,
	tailoring ports.TailoringPipeline,
	apps ports.ApplicationGateway,
	users usersPorts.UserRepository,
	companies companiesPorts.CompanyRepository,
	mailer mail.Gateway,
	browserClient *browser.Client,
	llmGateway llm.Gateway,
	q ports.JobScheduler,
	log *logger.Logger,
) *SubmissionService {
	return &SubmissionService{
		quota:     quota,
		tailoring: tailoring,
		apps:      apps,
		users:     users,
		companies: companies,
		mailer:    mailer,
		browser:   browserClient,
		llm:       llmGateway,
		queue:     q,
		log:       log,
	}
}

// Submit drives spec §4.7's five steps. cv_id/cover_letter_id from the
// spec's signature collapse to the already-loaded resume: no separate,
// reusable "stored cover letter" noun exists elsewhere in this schema, so
// the router runs the Tailoring Pipeline (C4) itself to produce both
// documents fresh for this submission.
func (s *SubmissionService) Submit(ctx context.Context, user *usersModel.User, appID string, job *jobsModel.Job, resume *resumesModel.Resume, usageType quotaModel.EventType) (*model.Outcome, error) {
	allowed, current, limit, err := s.quota.Check(ctx, user.ID, usageType, 1)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.log.Warn("submission: quota denied", zap.String("user_id", user.ID), zap.Int("current", current), zap.Int("limit", limit))
		return nil, quotaModel.ErrQuotaDenied
	}

	var company *companiesModel.Company
	if job.CompanyID != nil {
		company, err = s.companies.GetByID(ctx, user.ID, *job.CompanyID)
		if err != nil {
			company = nil
		}
	}

	emailTarget := resolveEmailTarget(job, company)
	var outcome *model.Outcome
	if emailTarget != "" {
		outcome, err = s.submitViaEmail(ctx, user, appID, job, resume, emailTarget, companyName(company))
	} else if job.ApplicationURL != nil && *job.ApplicationURL != "" {
		outcome, err = s.submitViaBrowser(ctx, user, appID, job, resume)
	} else {
		return nil, apperror.New(apperror.KindInvariant, "submission: job has neither an application email nor a URL")
	}
	if err != nil {
		return nil, err
	}

	if outcome.Status == "applied" {
		idempotencyKey := fmt.Sprintf("%s:%s:%s", user.ID, appID, usageType)
		if err := s.quota.Track(ctx, user.ID, usageType, 1, idempotencyKey); err != nil {
			s.log.Warn("submission: usage tracking failed after successful submit", zap.Error(err), zap.String("application_id", appID))
		}
	}

	return outcome, nil
}

func resolveEmailTarget(job *jobsModel.Job, company *companiesModel.Company) string {
	if job.ApplicationEmail != nil && *job.ApplicationEmail != "" {
		return *job.ApplicationEmail
	}
	if company != nil && company.ContactEmail != nil && *company.ContactEmail != "" {
		return *company.ContactEmail
	}
	return ""
}

func companyName(company *companiesModel.Company) string {
	if company == nil {
		return ""
	}
	return company.Name
}

// submitViaEmail implements spec §4.7 step 3.
func (s *SubmissionService) submitViaEmail(ctx context.Context, user *usersModel.User, appID string, job *jobsModel.Job, resume *resumesModel.Resume, to, company string) (*model.Outcome, error) {
	if !user.HasMailbox() {
		return nil, apperror.New(apperror.KindInvariant, "submission: user has no connected mailbox for the email path")
	}

	result, err := s.tailoring.Run(ctx, resume.Parsed, job, tailoringModel.ToneProfessional)
	if err != nil {
		return nil, err
	}

	form := extractFormData(resume.Parsed, user)
	subject := composeSubject(job, company)
	body := s.composeBody(ctx, job, company, form, result.CoverLetter.FullText)

	cvBytes, err := exportCVAttachment(result.CV)
	if err != nil {
		return nil, err
	}

	auth := mailboxAuth(user.Mailbox)
	sendResult, err := s.mailer.Send(ctx, auth, to, subject, body, []mail.Attachment{
		{Filename: "cv.docx", ContentType: docxContentType, Data: cvBytes},
	})
	if err != nil {
		return nil, err
	}

	if err := s.apps.Transition(ctx, appID, ports.TransitionInput{
		NewStatus: "applied",
		ThreadID:  sendResult.ThreadID,
	}); err != nil {
		return nil, err
	}

	return &model.Outcome{Channel: model.ChannelEmail, Status: "applied"}, nil
}

// submitViaBrowser implements spec §4.7 step 4.
func (s *SubmissionService) submitViaBrowser(ctx context.Context, user *usersModel.User, appID string, job *jobsModel.Job, resume *resumesModel.Resume) (*model.Outcome, error) {
	domain := urlDomain(*job.ApplicationURL)

	var creds *browser.Credentials
	if saved, ok := user.FindPortalCredential(domain); ok {
		creds = &browser.Credentials{Username: saved.Username, Secret: saved.Secret}
	}

	result, err := s.browser.Start(ctx, browser.StartRequest{
		SessionID:         appID,
		URL:               *job.ApplicationURL,
		AutofillData:      autofillData(resume.Parsed),
		JobSource:         jobSource(job),
		Credentials:       creds,
		AutoCreateAccount: true,
	})
	if err != nil {
		return nil, err
	}

	if result.NewCredentials != nil {
		user.PushPortalCredential(usersModel.PortalCredential{
			Domain:     result.NewCredentials.Domain,
			PortalName: result.NewCredentials.PortalName,
			Username:   result.NewCredentials.Username,
			Secret:     result.NewCredentials.Password,
			CreatedAt:  time.Now().UTC(),
		})
		if err := s.users.Update(ctx, user); err != nil {
			s.log.Warn("submission: failed to persist new portal credentials", zap.Error(err), zap.String("domain", domain))
		}
	}

	return s.interpretBrowserStatus(ctx, appID, job, user, domain, result)
}

func (s *SubmissionService) interpretBrowserStatus(ctx context.Context, appID string, job *jobsModel.Job, user *usersModel.User, domain string, result *browser.StartResult) (*model.Outcome, error) {
	switch result.Status {
	case browser.StatusStarted:
		if err := s.apps.Transition(ctx, appID, ports.TransitionInput{NewStatus: "processing"}); err != nil {
			return nil, err
		}
		if err := s.queue.Enqueue(ctx, model.MonitorProbeTopic, appID+":started", map[string]string{"application_id": appID}); err != nil {
			s.log.Warn("submission: failed to schedule monitor task", zap.Error(err), zap.String("application_id", appID))
		}
		return &model.Outcome{Channel: model.ChannelBrowser, Status: "processing"}, nil

	case browser.StatusCompleted:
		monitoringEnabled := user.HasMailbox() || user.Plan != usersModel.PlanFree
		if err := s.apps.Transition(ctx, appID, ports.TransitionInput{
			NewStatus:              "applied",
			ApplicationURL:         *job.ApplicationURL,
			ApplicationDomain:      domain,
			EmailMonitoringEnabled: &monitoringEnabled,
		}); err != nil {
			return nil, err
		}
		if err := s.queue.Enqueue(ctx, model.MonitorProbeTopic, appID+":completed", map[string]string{"application_id": appID}); err != nil {
			s.log.Warn("submission: failed to schedule response probe", zap.Error(err), zap.String("application_id", appID))
		}
		return &model.Outcome{Channel: model.ChannelBrowser, Status: "applied"}, nil

	case browser.StatusNeedsAuthentication, browser.StatusLoginRequired:
		if model.KnownLoginWallSources[jobSource(job)] {
			if err := s.apps.HardDelete(ctx, appID, job.ID); err != nil {
				return nil, err
			}
			return &model.Outcome{Channel: model.ChannelBrowser, Status: "deleted", Deleted: true}, nil
		}
		if err := s.apps.Transition(ctx, appID, ports.TransitionInput{NewStatus: "needs_authentication"}); err != nil {
			return nil, err
		}
		return &model.Outcome{Channel: model.ChannelBrowser, Status: "needs_authentication"}, nil

	case browser.StatusManualActionRequired:
		if err := s.apps.Transition(ctx, appID, ports.TransitionInput{NewStatus: "manual_action_required"}); err != nil {
			return nil, err
		}
		return &model.Outcome{Channel: model.ChannelBrowser, Status: "manual_action_required"}, nil

	case browser.StatusPendingVerification:
		if err := s.apps.Transition(ctx, appID, ports.TransitionInput{
			NewStatus:                "pending_verification",
			VerificationPortalDomain: result.VerificationDomain,
		}); err != nil {
			return nil, err
		}
		return &model.Outcome{Channel: model.ChannelBrowser, Status: "pending_verification"}, nil

	default:
		return nil, apperror.New(apperror.KindExternalUnavailable, "submission: browser worker returned an unrecognized status: "+result.Status)
	}
}

func jobSource(job *jobsModel.Job) string {
	if job.Source == nil {
		return ""
	}
	return strings.ToLower(*job.Source)
}

func urlDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

func mailboxAuth(cred *usersModel.MailboxCredential) *mail.Auth {
	if cred == nil {
		return nil
	}
	return &mail.Auth{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
		EmailAddress: cred.EmailAddress,
	}
}

func autofillData(cv *resumesModel.ParsedCV) browser.AutofillData {
	if cv == nil {
		return browser.AutofillData{}
	}
	experience := make([]map[string]any, len(cv.Experience))
	for i, e := range cv.Experience {
		experience[i] = map[string]any{
			"title":       e.Title,
			"company":     e.Company,
			"start_date":  e.StartDate,
			"end_date":    e.EndDate,
			"description": e.Description,
		}
	}
	education := make([]map[string]any, len(cv.Education))
	for i, e := range cv.Education {
		education[i] = map[string]any{
			"institution": e.Institution,
			"degree":      e.Degree,
			"field":       e.Field,
			"end_date":    e.EndDate,
		}
	}
	city, state := splitLocation(cv.Location)
	first, last := splitName(cv.FullName)
	return browser.AutofillData{
		PersonalInfo: map[string]string{
			"first_name": first,
			"last_name":  last,
			"email":      cv.Email,
			"phone":      cv.Phone,
			"city":       city,
			"state":      state,
		},
		Experience: experience,
		Education:  education,
		Skills:     map[string]any{"technical": cv.Skills},
	}
}

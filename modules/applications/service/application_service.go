package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreypavlenko/jobber/internal/platform/logger"
	"github.com/andreypavlenko/jobber/modules/applications/model"
	"github.com/andreypavlenko/jobber/modules/applications/ports"
	companyModel "github.com/andreypavlenko/jobber/modules/companies/model"
	companyPorts "github.com/andreypavlenko/jobber/modules/companies/ports"
	jobPorts "github.com/andreypavlenko/jobber/modules/jobs/ports"
	monitorModel "github.com/andreypavlenko/jobber/modules/monitor/model"
	notificationsModel "github.com/andreypavlenko/jobber/modules/notifications/model"
	resumePorts "github.com/andreypavlenko/jobber/modules/resumes/ports"
	submissionPorts "github.com/andreypavlenko/jobber/modules/submission/ports"
)

// ApplicationService is the Application Lifecycle Controller: the sole
// writer of application status, the sole appender of timeline events, and
// the only thing allowed to fire a status_update notification.
type ApplicationService struct {
	appRepo     ports.ApplicationRepository
	jobRepo     jobPorts.JobRepository
	companyRepo companyPorts.CompanyRepository
	resumeRepo  resumePorts.ResumeRepository
	notifier    ports.Notifier
	log         *logger.Logger
}

func NewApplicationService(
	appRepo ports.ApplicationRepository,
	jobRepo jobPorts.JobRepository,
	companyRepo companyPorts.CompanyRepository,
	resumeRepo resumePorts.ResumeRepository,
	notifier ports.Notifier,
	log *logger.Logger,
) *ApplicationService {
	return &ApplicationService{
		appRepo:     appRepo,
		jobRepo:     jobRepo,
		companyRepo: companyRepo,
		resumeRepo:  resumeRepo,
		notifier:    notifier,
		log:         log,
	}
}

// Create starts a new application in draft status.
func (s *ApplicationService) Create(ctx context.Context, userID string, req *model.CreateApplicationRequest) (*model.ApplicationDTO, error) {
	appliedAt := req.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now().UTC()
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		if job, err := s.jobRepo.GetByID(ctx, userID, req.JobID); err == nil {
			name = job.Title
		} else {
			name = "Untitled Application"
		}
	}

	source := model.Source(req.Source)
	if source == "" {
		source = model.SourceManual
	}

	app := &model.Application{
		UserID:    userID,
		JobID:     req.JobID,
		ResumeID:  req.ResumeID,
		Name:      name,
		Status:    model.StatusDraft,
		Source:    source,
		Priority:  model.PriorityMedium,
		AppliedAt: appliedAt,
	}

	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

func (s *ApplicationService) GetByID(ctx context.Context, userID, appID string) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

func (s *ApplicationService) buildApplicationDTO(ctx context.Context, userID string, app *model.Application) (*model.ApplicationDTO, error) {
	job, err := s.jobRepo.GetByID(ctx, userID, app.JobID)
	if err != nil {
		s.log.Warn("applications: failed to fetch job", zap.String("job_id", app.JobID), zap.Error(err))
		job = nil
	}

	var company *companyModel.Company
	if job != nil && job.CompanyID != nil {
		company, err = s.companyRepo.GetByID(ctx, userID, *job.CompanyID)
		if err != nil {
			s.log.Warn("applications: failed to fetch company", zap.String("company_id", *job.CompanyID), zap.Error(err))
			company = nil
		}
	}

	resume, err := s.resumeRepo.GetByID(ctx, userID, app.ResumeID)
	if err != nil {
		s.log.Warn("applications: failed to fetch resume", zap.String("resume_id", app.ResumeID), zap.Error(err))
		resume = nil
	}

	lastActivity, err := s.appRepo.GetLastActivityAt(ctx, app.ID)
	if err != nil {
		s.log.Warn("applications: failed to get last activity", zap.String("application_id", app.ID), zap.Error(err))
		lastActivity = app.UpdatedAt
	}

	return model.NewApplicationDTO(app, job, company, resume, lastActivity), nil
}

func (s *ApplicationService) List(ctx context.Context, userID string, opts *ports.ListOptions) ([]*model.ApplicationDTO, int, error) {
	apps, total, err := s.appRepo.List(ctx, userID, opts)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]*model.ApplicationDTO, 0, len(apps))
	for _, app := range apps {
		dto, err := s.buildApplicationDTO(ctx, userID, app)
		if err != nil {
			s.log.Warn("applications: failed to build DTO", zap.String("application_id", app.ID), zap.Error(err))
			continue
		}
		dtos = append(dtos, dto)
	}
	return dtos, total, nil
}

// UpdateStatus is the explicit, human-operator status edit path (spec
// §4.8: "any state may be set explicitly by a human operator through
// UpdateStatus"). Subject to the same terminal-state and timeline/
// notification rules as an automated transition.
func (s *ApplicationService) UpdateStatus(ctx context.Context, userID, appID string, req *model.UpdateStatusRequest) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if _, err := s.applyStatus(app, model.Status(req.Status)); err != nil {
		return nil, err
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	s.fireStatusNotification(ctx, app)
	return s.buildApplicationDTO(ctx, userID, app)
}

// applyStatus mutates app in place: validates the target status, refuses
// to regress out of a terminal status, and appends the timeline event.
// Returns false, nil if newStatus equals the current status (no-op).
func (s *ApplicationService) applyStatus(app *model.Application, newStatus model.Status) (bool, error) {
	if !model.IsValidStatus(string(newStatus)) {
		return false, model.ErrInvalidStatus
	}
	if app.Status == newStatus {
		return false, nil
	}
	if model.IsTerminal(string(app.Status)) {
		return false, model.ErrTerminalStatus
	}
	old := app.Status
	app.Status = newStatus
	app.Timeline = append(app.Timeline, model.TimelineEvent{
		ID:   uuid.New().String(),
		Type: "status_change",
		Metadata: map[string]any{
			"old_status": string(old),
			"new_status": string(newStatus),
		},
		CreatedAt: time.Now().UTC(),
	})
	return true, nil
}

func (s *ApplicationService) fireStatusNotification(ctx context.Context, app *model.Application) {
	title := fmt.Sprintf("%s: %s", app.Name, humanizeStatus(app.Status))
	message := fmt.Sprintf("Your application for %s is now %s.", app.Name, humanizeStatus(app.Status))
	data := map[string]any{"application_id": app.ID, "status": string(app.Status)}
	channels := []notificationsModel.Channel{notificationsModel.ChannelInApp, notificationsModel.ChannelEmail}
	if _, err := s.notifier.Notify(ctx, app.UserID, notificationsModel.TypeStatusUpdate, title, message, data, channels); err != nil {
		s.log.Warn("applications: status notification failed", zap.String("application_id", app.ID), zap.Error(err))
	}
}

func humanizeStatus(status model.Status) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

// Transition satisfies modules/submission/ports.ApplicationGateway: the
// submission router drives a status change plus whatever submission-path
// metadata (thread id, application URL/domain, monitoring flag,
// verification domain) came out of that particular channel.
func (s *ApplicationService) Transition(ctx context.Context, appID string, input submissionPorts.TransitionInput) error {
	app, err := s.appRepo.GetByIDAny(ctx, appID)
	if err != nil {
		return err
	}
	changed, err := s.applyStatus(app, model.Status(input.NewStatus))
	if err != nil {
		return err
	}
	if input.ThreadID != "" {
		app.EmailThreadID = input.ThreadID
	}
	if input.ApplicationURL != "" {
		app.ApplicationURL = input.ApplicationURL
	}
	if input.ApplicationDomain != "" {
		app.ApplicationDomain = input.ApplicationDomain
	}
	if input.EmailMonitoringEnabled != nil {
		app.EmailMonitoringEnabled = *input.EmailMonitoringEnabled
	}
	if input.VerificationPortalDomain != "" {
		app.VerificationPortalDomain = input.VerificationPortalDomain
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return err
	}
	if changed {
		s.fireStatusNotification(ctx, app)
	}
	return nil
}

// HardDelete satisfies modules/submission/ports.ApplicationGateway: the
// recognized login-wall exception removes the application and its parent
// job outright, in one transaction, rather than transitioning either.
func (s *ApplicationService) HardDelete(ctx context.Context, appID, jobID string) error {
	return s.appRepo.HardDelete(ctx, appID, jobID)
}

// RequestTransition satisfies modules/monitor/ports.ApplicationGateway: the
// response monitor only ever supplies a bare status, already resolved from
// a fused signal and already checked against the confidence gate.
func (s *ApplicationService) RequestTransition(ctx context.Context, appID, newStatus string) error {
	app, err := s.appRepo.GetByIDAny(ctx, appID)
	if err != nil {
		return err
	}
	changed, err := s.applyStatus(app, model.Status(newStatus))
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return err
	}
	s.fireStatusNotification(ctx, app)
	return nil
}

// AppendCommunication satisfies modules/monitor/ports.ApplicationGateway.
// Skips silently if a communication with the same message id was already
// recorded, since a probe round may re-discover a message it already saw.
func (s *ApplicationService) AppendCommunication(ctx context.Context, appID string, msg monitorModel.NewMessage) error {
	app, err := s.appRepo.GetByIDAny(ctx, appID)
	if err != nil {
		return err
	}
	for _, c := range app.Communications {
		if c.MessageID == msg.ID {
			return nil
		}
	}
	app.Communications = append(app.Communications, model.Communication{
		ID:        uuid.New().String(),
		Direction: "inbound",
		Channel:   "email",
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		From:      msg.From,
		Subject:   msg.Subject,
		Snippet:   msg.Snippet,
		Timestamp: msg.Timestamp,
	})
	return s.appRepo.Update(ctx, app)
}

// UpdateProbeMetadata satisfies modules/monitor/ports.ApplicationGateway.
func (s *ApplicationService) UpdateProbeMetadata(ctx context.Context, appID string, lastCheck time.Time, checkCount int) error {
	app, err := s.appRepo.GetByIDAny(ctx, appID)
	if err != nil {
		return err
	}
	app.LastResponseCheck = &lastCheck
	app.ResponseCheckCount += checkCount
	return s.appRepo.Update(ctx, app)
}

// hasIdempotencyKey reports whether a timeline event of the given type
// already recorded this idempotency key, so repeated deliveries of the
// same operation are no-ops.
func hasIdempotencyKey(app *model.Application, eventType, key string) bool {
	for _, e := range app.Timeline {
		if e.Type != eventType {
			continue
		}
		if k, ok := e.Metadata["idempotency_key"]; ok && k == key {
			return true
		}
	}
	return false
}

// AddCommunication is the operator/API-facing path (spec §4.8's "Other
// operations"), distinct from AppendCommunication's monitor-only seam:
// this one is keyed by an explicit idempotency key.
func (s *ApplicationService) AddCommunication(ctx context.Context, userID, appID string, req *model.AddCommunicationRequest) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if hasIdempotencyKey(app, "communication_added", req.IdempotencyKey) {
		return s.buildApplicationDTO(ctx, userID, app)
	}

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	app.Communications = append(app.Communications, model.Communication{
		ID:        uuid.New().String(),
		Direction: req.Direction,
		Channel:   req.Channel,
		MessageID: req.MessageID,
		ThreadID:  req.ThreadID,
		From:      req.From,
		Subject:   req.Subject,
		Snippet:   req.Snippet,
		Timestamp: timestamp,
	})
	app.Timeline = append(app.Timeline, model.TimelineEvent{
		ID:        uuid.New().String(),
		Type:      "communication_added",
		Metadata:  map[string]any{"idempotency_key": req.IdempotencyKey, "direction": req.Direction},
		CreatedAt: time.Now().UTC(),
	})
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

// AddDocument attaches a document to the application.
func (s *ApplicationService) AddDocument(ctx context.Context, userID, appID string, req *model.AddDocumentRequest) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if hasIdempotencyKey(app, "document_added", req.IdempotencyKey) {
		return s.buildApplicationDTO(ctx, userID, app)
	}

	app.Documents = append(app.Documents, model.Document{
		ID:         uuid.New().String(),
		Kind:       req.Kind,
		Filename:   req.Filename,
		URL:        req.URL,
		UploadedAt: time.Now().UTC(),
	})
	app.Timeline = append(app.Timeline, model.TimelineEvent{
		ID:        uuid.New().String(),
		Type:      "document_added",
		Metadata:  map[string]any{"idempotency_key": req.IdempotencyKey, "kind": req.Kind},
		CreatedAt: time.Now().UTC(),
	})
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

// ScheduleInterview adds a new interview round.
func (s *ApplicationService) ScheduleInterview(ctx context.Context, userID, appID string, req *model.ScheduleInterviewRequest) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if hasIdempotencyKey(app, "interview_scheduled", req.IdempotencyKey) {
		return s.buildApplicationDTO(ctx, userID, app)
	}

	now := time.Now().UTC()
	app.Interviews = append(app.Interviews, model.Interview{
		ID:          uuid.New().String(),
		Type:        req.Type,
		ScheduledAt: req.ScheduledAt,
		Duration:    req.Duration,
		Location:    req.Location,
		Round:       req.Round,
		Status:      "scheduled",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	app.Timeline = append(app.Timeline, model.TimelineEvent{
		ID:        uuid.New().String(),
		Type:      "interview_scheduled",
		Metadata:  map[string]any{"idempotency_key": req.IdempotencyKey, "interview_type": req.Type},
		CreatedAt: now,
	})
	if _, err := s.applyStatus(app, model.StatusInterviewScheduled); err != nil && err != model.ErrTerminalStatus {
		return nil, err
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

// UpdateInterview records an interview's outcome (completed/cancelled,
// feedback, rating).
func (s *ApplicationService) UpdateInterview(ctx context.Context, userID, appID, interviewID string, req *model.UpdateInterviewRequest) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range app.Interviews {
		if app.Interviews[i].ID != interviewID {
			continue
		}
		found = true
		if req.Status != nil {
			app.Interviews[i].Status = *req.Status
		}
		if req.Feedback != nil {
			app.Interviews[i].Feedback = *req.Feedback
		}
		if req.Rating != nil {
			app.Interviews[i].Rating = req.Rating
		}
		app.Interviews[i].UpdatedAt = time.Now().UTC()
		break
	}
	if !found {
		return nil, model.ErrInterviewNotFound
	}
	if req.Status != nil && *req.Status == "completed" {
		if _, err := s.applyStatus(app, model.StatusInterviewCompleted); err != nil && err != model.ErrTerminalStatus {
			return nil, err
		}
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

// AddTask creates a to-do item on the application.
func (s *ApplicationService) AddTask(ctx context.Context, userID, appID string, req *model.AddTaskRequest) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, model.ErrTitleRequired
	}
	if hasIdempotencyKey(app, "task_added", req.IdempotencyKey) {
		return s.buildApplicationDTO(ctx, userID, app)
	}

	priority := model.Priority(req.Priority)
	if priority == "" {
		priority = model.PriorityMedium
	}
	now := time.Now().UTC()
	app.Tasks = append(app.Tasks, model.Task{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		Category:    req.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	app.Timeline = append(app.Timeline, model.TimelineEvent{
		ID:        uuid.New().String(),
		Type:      "task_added",
		Metadata:  map[string]any{"idempotency_key": req.IdempotencyKey, "title": req.Title},
		CreatedAt: now,
	})
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

// CompleteTask marks a task done; idempotent by construction (re-marking
// an already-completed task is a no-op).
func (s *ApplicationService) CompleteTask(ctx context.Context, userID, appID, taskID string) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range app.Tasks {
		if app.Tasks[i].ID != taskID {
			continue
		}
		found = true
		if !app.Tasks[i].Completed {
			app.Tasks[i].Completed = true
			app.Tasks[i].UpdatedAt = time.Now().UTC()
		}
		break
	}
	if !found {
		return nil, model.ErrTaskNotFound
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

// UpdateNotes replaces the application's free-form notes.
func (s *ApplicationService) UpdateNotes(ctx context.Context, userID, appID string, req *model.UpdateNotesRequest) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	app.Notes = req.Notes
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

// UpdatePriority sets the candidate's own urgency tag.
func (s *ApplicationService) UpdatePriority(ctx context.Context, userID, appID string, req *model.UpdatePriorityRequest) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	app.Priority = model.Priority(req.Priority)
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

// SetFollowUp schedules or clears the next follow-up reminder.
func (s *ApplicationService) SetFollowUp(ctx context.Context, userID, appID string, req *model.SetFollowUpRequest) (*model.ApplicationDTO, error) {
	app, err := s.appRepo.GetByID(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	app.FollowUpDate = req.FollowUpDate
	app.NextFollowUp = req.FollowUpDate
	if req.FollowUpDate != nil {
		app.FollowUpCount++
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return s.buildApplicationDTO(ctx, userID, app)
}

// SoftDelete tombstones an application without removing its row.
// Idempotent: deleting an already-deleted application is a no-op.
func (s *ApplicationService) SoftDelete(ctx context.Context, userID, appID string) error {
	app, err := s.appRepo.GetByIDAny(ctx, appID)
	if err != nil {
		return err
	}
	if app.UserID != userID {
		return model.ErrApplicationNotFound
	}
	if app.DeletedAt != nil {
		return nil
	}
	return s.appRepo.SoftDelete(ctx, userID, appID)
}

// FollowUpsNeeded returns every non-terminal application whose follow-up
// date has arrived.
func (s *ApplicationService) FollowUpsNeeded(ctx context.Context, userID string) ([]*model.ApplicationDTO, error) {
	apps, err := s.appRepo.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var dtos []*model.ApplicationDTO
	for _, app := range apps {
		if app.FollowUpDate == nil || app.FollowUpDate.After(now) || model.IsTerminal(string(app.Status)) {
			continue
		}
		dto, err := s.buildApplicationDTO(ctx, userID, app)
		if err != nil {
			continue
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// UpcomingInterviews returns interview rounds scheduled within the next
// `days` days for applications currently awaiting that interview.
func (s *ApplicationService) UpcomingInterviews(ctx context.Context, userID string, days int) ([]*model.ApplicationDTO, error) {
	apps, err := s.appRepo.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	horizon := now.AddDate(0, 0, days)
	var dtos []*model.ApplicationDTO
	for _, app := range apps {
		if app.Status != model.StatusInterviewScheduled {
			continue
		}
		hasUpcoming := false
		for _, iv := range app.Interviews {
			if !iv.ScheduledAt.Before(now) && !iv.ScheduledAt.After(horizon) {
				hasUpcoming = true
				break
			}
		}
		if !hasUpcoming {
			continue
		}
		dto, err := s.buildApplicationDTO(ctx, userID, app)
		if err != nil {
			continue
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// Stats computes the dashboard counters over every application a user has.
func (s *ApplicationService) Stats(ctx context.Context, userID string) (*ports.Stats, error) {
	apps, err := s.appRepo.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := todayStart.AddDate(0, 0, -int(todayStart.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := &ports.Stats{ByStatus: map[model.Status]int{}}
	var totalApplied, interviewScheduledCount, withResponse int
	for _, app := range apps {
		stats.ByStatus[app.Status]++
		if !app.CreatedAt.Before(todayStart) {
			stats.TotalToday++
		}
		if !app.CreatedAt.Before(weekStart) {
			stats.TotalThisWeek++
		}
		if !app.CreatedAt.Before(monthStart) {
			stats.TotalThisMonth++
		}
		if app.Status == model.StatusInterviewScheduled {
			interviewScheduledCount++
		}
		if app.Status != model.StatusDraft {
			totalApplied++
			if app.HasResponded() {
				withResponse++
			}
		}
	}

	if len(apps) > 0 {
		stats.InterviewRate = float64(interviewScheduledCount) / float64(len(apps))
	}
	if totalApplied > 0 {
		stats.ResponseRate = float64(withResponse) / float64(totalApplied)
	}
	return stats, nil
}

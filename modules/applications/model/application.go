package model

import (
	"time"

	companyModel "github.com/andreypavlenko/jobber/modules/companies/model"
	jobModel "github.com/andreypavlenko/jobber/modules/jobs/model"
	resumeModel "github.com/andreypavlenko/jobber/modules/resumes/model"
)

// Status is the closed set of lifecycle states an application can occupy.
type Status string

const (
	StatusDraft                 Status = "draft"
	StatusPending                Status = "pending"
	StatusSubmitted              Status = "submitted"
	StatusApplied                 Status = "applied"
	StatusUnderReview             Status = "under_review"
	StatusInterviewScheduled      Status = "interview_scheduled"
	StatusInterviewCompleted      Status = "interview_completed"
	StatusSecondRound             Status = "second_round"
	StatusFinalRound              Status = "final_round"
	StatusOfferReceived           Status = "offer_received"
	StatusOfferAccepted           Status = "offer_accepted"
	StatusOfferDeclined           Status = "offer_declined"
	StatusRejected                Status = "rejected"
	StatusWithdrawn               Status = "withdrawn"
	StatusOnHold                  Status = "on_hold"
	StatusArchived                Status = "archived"
	StatusNeedsAuthentication     Status = "needs_authentication"
	StatusManualActionRequired    Status = "manual_action_required"
	StatusPendingVerification     Status = "pending_verification"
	StatusProcessing              Status = "processing"
)

// ValidStatuses is the closed set, used to reject unrecognized values on
// both explicit operator edits and automated transitions.
var ValidStatuses = map[Status]bool{
	StatusDraft: true, StatusPending: true, StatusSubmitted: true, StatusApplied: true,
	StatusUnderReview: true, StatusInterviewScheduled: true, StatusInterviewCompleted: true,
	StatusSecondRound: true, StatusFinalRound: true, StatusOfferReceived: true,
	StatusOfferAccepted: true, StatusOfferDeclined: true, StatusRejected: true,
	StatusWithdrawn: true, StatusOnHold: true, StatusArchived: true,
	StatusNeedsAuthentication: true, StatusManualActionRequired: true,
	StatusPendingVerification: true, StatusProcessing: true,
}

// TerminalStatuses never regress to another status once reached.
var TerminalStatuses = map[Status]bool{
	StatusOfferAccepted: true,
	StatusOfferDeclined: true,
	StatusRejected:      true,
	StatusWithdrawn:     true,
	StatusArchived:      true,
}

// IsTerminal reports whether status is in the closed terminal set. Accepts
// a raw string so callers outside this module don't need to import Status.
func IsTerminal(status string) bool {
	return TerminalStatuses[Status(status)]
}

// IsValidStatus reports whether status belongs to the closed state set.
func IsValidStatus(status string) bool {
	return ValidStatuses[Status(status)]
}

// ResponseStatuses is the spec's closed "core response set": the statuses
// that count as having heard back from a recruiter. under_review is
// deliberately excluded — it is reached automatically by the monitor's own
// acknowledgment signal, not by an actual human response.
var ResponseStatuses = map[Status]bool{
	StatusInterviewScheduled: true, StatusInterviewCompleted: true,
	StatusSecondRound: true, StatusFinalRound: true, StatusOfferReceived: true,
	StatusOfferAccepted: true, StatusOfferDeclined: true, StatusRejected: true,
}

// Source is how the application came to exist.
type Source string

const (
	SourceManual             Source = "manual"
	SourcePlatform            Source = "platform"
	SourceAutoApply           Source = "auto_apply"
	SourceBrowserAutomation   Source = "browser_automation"
	SourceReferral            Source = "referral"
	SourceDirect              Source = "direct"
	SourceRecruiter           Source = "recruiter"
)

// Priority is the candidate's own urgency tag for an application.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Document is one file attached to an application (the CV/cover letter
// used, or anything the candidate uploads later).
type Document struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "cv", "cover_letter", "other"
	Filename   string    `json:"filename"`
	URL        string    `json:"url,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Communication is one inbound or outbound message tied to an application.
type Communication struct {
	ID        string    `json:"id"`
	Direction string    `json:"direction"` // "outbound", "inbound"
	Channel   string    `json:"channel"`   // "email", "portal"
	MessageID string    `json:"message_id,omitempty"`
	ThreadID  string    `json:"thread_id,omitempty"`
	From      string    `json:"from,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Snippet   string    `json:"snippet,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Interview is one scheduled or completed interview round. Adapted from the
// teacher's free-form ApplicationStage into a fixed shape.
type Interview struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"` // "phone_screen", "technical", "onsite", "behavioral", ...
	ScheduledAt time.Time  `json:"scheduled_at"`
	Duration    int        `json:"duration_minutes"`
	Location    string     `json:"location,omitempty"`
	Round       int        `json:"round"`
	Status      string     `json:"status"` // "scheduled", "completed", "cancelled"
	Feedback    string     `json:"feedback,omitempty"`
	Rating      *int       `json:"rating,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Task is a candidate-owned to-do tied to an application. Adapted from the
// teacher's freeform Comment into a structured action item.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	Category    string     `json:"category,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TimelineEvent is an append-only record of everything that happened to an
// application. Every status transition appends one.
type TimelineEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"` // "status_change", "interview_scheduled", "task_added", ...
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Application is the core aggregate: one candidate's pursuit of one job.
type Application struct {
	ID       string
	UserID   string
	JobID    string
	ResumeID string
	Name     string

	Status   Status
	Source   Source
	Priority Priority

	AppliedAt         time.Time
	ApplicationURL    string
	ApplicationDomain string
	RecipientEmail    string
	EmailThreadID     string
	LastOutboundSentAt time.Time

	Documents      []Document
	Communications []Communication
	Interviews     []Interview
	Tasks          []Task
	Timeline       []TimelineEvent

	EmailMonitoringEnabled  bool
	LastResponseCheck       *time.Time
	ResponseCheckCount      int

	FollowUpDate  *time.Time
	NextFollowUp  *time.Time
	FollowUpCount int

	VerificationPortalDomain string

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// HasResponded reports whether this application counts toward the response
// rate stat: its status is in ResponseStatuses, or it has at least one
// inbound communication on record.
func (a *Application) HasResponded() bool {
	if ResponseStatuses[a.Status] {
		return true
	}
	for _, c := range a.Communications {
		if c.Direction == "inbound" {
			return true
		}
	}
	return false
}

// JobNestedDTO represents a job with company information for application list
type JobNestedDTO struct {
	ID      string                   `json:"id"`
	Title   string                   `json:"title"`
	Company *companyModel.CompanyDTO `json:"company,omitempty"`
}

// ResumeNestedDTO represents resume information for application list
type ResumeNestedDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ApplicationDTO represents application data transfer object
type ApplicationDTO struct {
	ID                       string           `json:"id"`
	Name                     string           `json:"name"`
	Status                   Status           `json:"status"`
	Source                   Source           `json:"source"`
	Priority                 Priority         `json:"priority"`
	AppliedAt                time.Time        `json:"applied_at"`
	CreatedAt                time.Time        `json:"created_at"`
	UpdatedAt                time.Time        `json:"updated_at"`
	LastActivityAt           time.Time        `json:"last_activity_at"`
	Job                      *JobNestedDTO    `json:"job"`
	Resume                   *ResumeNestedDTO `json:"resume"`
	Documents                []Document       `json:"documents,omitempty"`
	Communications           []Communication  `json:"communications,omitempty"`
	Interviews               []Interview      `json:"interviews,omitempty"`
	Tasks                    []Task           `json:"tasks,omitempty"`
	Timeline                 []TimelineEvent  `json:"timeline,omitempty"`
	EmailMonitoringEnabled   bool             `json:"email_monitoring_enabled"`
	FollowUpDate             *time.Time       `json:"follow_up_date,omitempty"`
	VerificationPortalDomain string           `json:"verification_portal_domain,omitempty"`
	Notes                    string           `json:"notes,omitempty"`
}

// NewApplicationDTO creates a new ApplicationDTO with nested entities
func NewApplicationDTO(
	app *Application,
	job *jobModel.Job,
	company *companyModel.Company,
	resume *resumeModel.Resume,
	lastActivityAt time.Time,
) *ApplicationDTO {
	dto := &ApplicationDTO{
		ID:                     app.ID,
		Name:                   app.Name,
		Status:                 app.Status,
		Source:                 app.Source,
		Priority:               app.Priority,
		AppliedAt:              app.AppliedAt,
		CreatedAt:              app.CreatedAt,
		UpdatedAt:              app.UpdatedAt,
		LastActivityAt:         lastActivityAt,
		Documents:              app.Documents,
		Communications:         app.Communications,
		Interviews:             app.Interviews,
		Tasks:                  app.Tasks,
		Timeline:               app.Timeline,
		EmailMonitoringEnabled: app.EmailMonitoringEnabled,
		FollowUpDate:           app.FollowUpDate,
		VerificationPortalDomain: app.VerificationPortalDomain,
		Notes:                  app.Notes,
	}

	if job != nil {
		dto.Job = &JobNestedDTO{ID: job.ID, Title: job.Title}
		if company != nil {
			dto.Job.Company = company.ToDTO()
		}
	}

	if resume != nil {
		dto.Resume = &ResumeNestedDTO{ID: resume.ID, Name: resume.Title}
	}

	return dto
}

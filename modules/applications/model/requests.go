package model

import "time"

// CreateApplicationRequest represents a create application request
type CreateApplicationRequest struct {
	JobID     string    `json:"job_id" binding:"required"`
	ResumeID  string    `json:"resume_id" binding:"required"`
	Name      string    `json:"name" binding:"max=255"` // Optional: auto-generated from job title if empty
	Source    string    `json:"source"`
	AppliedAt time.Time `json:"applied_at"`
}

// UpdateStatusRequest represents an explicit, human-operator status edit.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdatePriorityRequest represents an explicit priority edit.
type UpdatePriorityRequest struct {
	Priority string `json:"priority" binding:"required,oneof=low medium high urgent"`
}

// UpdateNotesRequest replaces the application's free-form notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// SetFollowUpRequest schedules or clears the next follow-up reminder.
type SetFollowUpRequest struct {
	FollowUpDate *time.Time `json:"follow_up_date"`
}

// AddCommunicationRequest appends a communication entry.
type AddCommunicationRequest struct {
	IdempotencyKey string    `json:"idempotency_key" binding:"required"`
	Direction      string    `json:"direction" binding:"required,oneof=outbound inbound"`
	Channel        string    `json:"channel" binding:"required,oneof=email portal"`
	MessageID      string    `json:"message_id"`
	ThreadID       string    `json:"thread_id"`
	From           string    `json:"from"`
	Subject        string    `json:"subject"`
	Snippet        string    `json:"snippet"`
	Timestamp      time.Time `json:"timestamp"`
}

// AddDocumentRequest attaches a document.
type AddDocumentRequest struct {
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
	Kind           string `json:"kind" binding:"required"`
	Filename       string `json:"filename" binding:"required"`
	URL            string `json:"url"`
}

// ScheduleInterviewRequest schedules a new interview round.
type ScheduleInterviewRequest struct {
	IdempotencyKey string    `json:"idempotency_key" binding:"required"`
	Type           string    `json:"type" binding:"required"`
	ScheduledAt    time.Time `json:"scheduled_at" binding:"required"`
	Duration       int       `json:"duration_minutes"`
	Location       string    `json:"location"`
	Round          int       `json:"round"`
}

// UpdateInterviewRequest records the outcome of an interview.
type UpdateInterviewRequest struct {
	Status   *string `json:"status,omitempty" binding:"omitempty,oneof=scheduled completed cancelled"`
	Feedback *string `json:"feedback,omitempty"`
	Rating   *int    `json:"rating,omitempty"`
}

// AddTaskRequest creates a new task on an application.
type AddTaskRequest struct {
	IdempotencyKey string     `json:"idempotency_key" binding:"required"`
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Category       string     `json:"category"`
}

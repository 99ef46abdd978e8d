package model

import "errors"

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrTerminalStatus      = errors.New("application is in a terminal status and cannot transition")
	ErrInterviewNotFound   = errors.New("interview not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrTitleRequired       = errors.New("title is required")
)

type ErrorCode string

const (
	CodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	CodeInvalidStatus       ErrorCode = "INVALID_STATUS"
	CodeTerminalStatus      ErrorCode = "TERMINAL_STATUS"
	CodeInterviewNotFound   ErrorCode = "INTERVIEW_NOT_FOUND"
	CodeTaskNotFound        ErrorCode = "TASK_NOT_FOUND"
	CodeTitleRequired       ErrorCode = "TITLE_REQUIRED"
	CodeInternalError       ErrorCode = "INTERNAL_ERROR"
)

func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrApplicationNotFound):
		return CodeApplicationNotFound
	case errors.Is(err, ErrInvalidStatus):
		return CodeInvalidStatus
	case errors.Is(err, ErrTerminalStatus):
		return CodeTerminalStatus
	case errors.Is(err, ErrInterviewNotFound):
		return CodeInterviewNotFound
	case errors.Is(err, ErrTaskNotFound):
		return CodeTaskNotFound
	case errors.Is(err, ErrTitleRequired):
		return CodeTitleRequired
	default:
		return CodeInternalError
	}
}

func GetErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrApplicationNotFound):
		return "Application not found"
	case errors.Is(err, ErrInvalidStatus):
		return "Invalid status"
	case errors.Is(err, ErrTerminalStatus):
		return "Application is in a terminal status and cannot transition"
	case errors.Is(err, ErrInterviewNotFound):
		return "Interview not found"
	case errors.Is(err, ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, ErrTitleRequired):
		return "Title is required"
	default:
		return "Internal server error"
	}
}

package model

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification row doesn't
	// exist or doesn't belong to the requesting user.
	ErrNotificationNotFound = errors.New("notification not found")
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeNotificationNotFound ErrorCode = "NOTIFICATION_NOT_FOUND"
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
)

// GetErrorCode maps errors to error codes.
func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrNotificationNotFound):
		return CodeNotificationNotFound
	default:
		return CodeInternalError
	}
}

// GetErrorMessage returns a user-friendly error message.
func GetErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotificationNotFound):
		return "Notification not found"
	default:
		return "Internal server error"
	}
}

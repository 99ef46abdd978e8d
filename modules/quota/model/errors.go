package model

import "errors"

var (
	// ErrSubscriptionNotFound is returned when a user has no subscription row.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrQuotaDenied is returned when Track would push usage past the limit.
	ErrQuotaDenied = errors.New("quota denied")
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeSubscriptionNotFound ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	CodeQuotaDenied          ErrorCode = "QUOTA_DENIED"
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
)

// GetErrorCode maps errors to error codes.
func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		return CodeSubscriptionNotFound
	case errors.Is(err, ErrQuotaDenied):
		return CodeQuotaDenied
	default:
		return CodeInternalError
	}
}

// GetErrorMessage returns a user-friendly error message.
func GetErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		return "Subscription not found"
	case errors.Is(err, ErrQuotaDenied):
		return "Usage limit reached for this plan"
	default:
		return "Internal server error"
	}
}

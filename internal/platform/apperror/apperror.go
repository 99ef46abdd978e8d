// Package apperror defines the closed set of cross-cutting error kinds
// shared by the orchestration engine's components (mail, LLM, browser,
// submission, monitor, quota). Module-local validation errors keep living
// as sentinel errors inside their own model packages; apperror is for the
// kinds that more than one component needs to branch on.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error kinds from the component error design.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindAuthExpired         Kind = "auth_expired"
	KindQuotaDenied         Kind = "quota_denied"
	KindExternalUnavailable Kind = "external_unavailable"
	KindClassifiedUnknown   Kind = "classified_unknown"
	KindClassifiedLowConf   Kind = "classified_low_confidence"
	KindInvariant           Kind = "invariant"
)

// Error wraps a Kind with a message and an optional cause, and carries the
// (current, limit) pair for KindQuotaDenied so callers don't need a second
// round trip to explain the denial.
type Error struct {
	Kind    Kind
	Message string
	Current int
	Limit   int
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with no cause; check it with Is.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func QuotaDenied(message string, current, limit int) *Error {
	return &Error{Kind: KindQuotaDenied, Message: message, Current: current, Limit: limit}
}

// KindOf extracts the Kind from err, walking the Unwrap chain. It returns
// an empty Kind and false when nothing in the chain is an *Error.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

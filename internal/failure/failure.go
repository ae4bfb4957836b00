package failure

import (
	"errors"
	"strings"
)

const (
	messageSeparatorConstant = ": "
)

// Kind enumerates the categories of failures reported to the user.
type Kind string

// Supported failure kinds.
const (
	KindInvalidArgument    Kind = "InvalidArgument"
	KindPatternSyntax      Kind = "PatternSyntaxError"
	KindNotAPartialClone   Kind = "NotAPartialClone"
	KindCorruptMetadata    Kind = "CorruptMetadata"
	KindGitOperationFailed Kind = "GitOperationFailed"
	KindNonFastForward     Kind = "NonFastForward"
	KindIOFailure          Kind = "IoFailure"
)

// Sentinel values for errors.Is classification.
var (
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrPatternSyntax      = &Error{Kind: KindPatternSyntax}
	ErrNotAPartialClone   = &Error{Kind: KindNotAPartialClone}
	ErrCorruptMetadata    = &Error{Kind: KindCorruptMetadata}
	ErrGitOperationFailed = &Error{Kind: KindGitOperationFailed}
	ErrNonFastForward     = &Error{Kind: KindNonFastForward}
	ErrIOFailure          = &Error{Kind: KindIOFailure}
)

// Error is a classified failure with the offending input and its cause.
type Error struct {
	Kind    Kind
	Subject string
	Cause   error
}

// New constructs a classified failure.
func New(kind Kind, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Cause: cause}
}

// Error renders the failure as "<kind>: <subject>: <cause>", omitting empty parts.
func (failureError *Error) Error() string {
	if failureError == nil {
		return ""
	}

	messageParts := []string{string(failureError.Kind)}
	if trimmedSubject := strings.TrimSpace(failureError.Subject); len(trimmedSubject) > 0 {
		messageParts = append(messageParts, trimmedSubject)
	}
	if failureError.Cause != nil {
		messageParts = append(messageParts, failureError.Cause.Error())
	}
	return strings.Join(messageParts, messageSeparatorConstant)
}

// Unwrap exposes the underlying cause.
func (failureError *Error) Unwrap() error {
	if failureError == nil {
		return nil
	}
	return failureError.Cause
}

// Is reports whether target is the sentinel for the same kind.
func (failureError *Error) Is(target error) bool {
	if failureError == nil {
		return false
	}
	targetFailure, isFailure := target.(*Error)
	if !isFailure || targetFailure == nil {
		return false
	}
	if len(targetFailure.Subject) > 0 || targetFailure.Cause != nil {
		return false
	}
	return targetFailure.Kind == failureError.Kind
}

// KindOf extracts the kind of the first classified failure in the chain.
func KindOf(err error) (Kind, bool) {
	var failureError *Error
	if !errors.As(err, &failureError) || failureError == nil {
		return "", false
	}
	return failureError.Kind, true
}

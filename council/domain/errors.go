package domain

import (
	"errors"
	"fmt"
)

// Kind groups domain errors by how the caller should react.
type Kind string

const (
	KindValidation Kind = "validation"
	KindPolicy     Kind = "policy"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindStorage    Kind = "storage"
)

// Error is the tagged failure returned by every core operation.
type Error struct {
	Kind Kind
	code string
	msg  string
	Err  error
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, code: code, msg: msg}
}

// Code returns the stable machine-readable reason.
func (e *Error) Code() string {
	if e == nil {
		return ""
	}
	return e.code
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.Err)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code so wrapped copies compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return e.code == t.code
}

var (
	ErrEmptyText       = newError(KindValidation, "empty_text", "text is empty")
	ErrInvalidChoice   = newError(KindValidation, "invalid_choice", "vote choice must be up or down")
	ErrInvalidDecision = newError(KindValidation, "invalid_decision", "decision must be approve or reject")
	ErrInvalidPage     = newError(KindValidation, "invalid_page", "page size must be positive")
	ErrUnknownActor    = newError(KindValidation, "unknown_actor", "actor is not registered")
	ErrInvalidRole     = newError(KindValidation, "invalid_role", "role must be asker, expert or moderator")

	ErrProhibitedContent = newError(KindPolicy, "prohibited_content", "text contains prohibited terms")
	ErrDuplicateQuestion = newError(KindPolicy, "duplicate_question", "a similar question is already published")

	ErrNotPending          = newError(KindConflict, "not_pending", "question is not pending")
	ErrNotFound            = newError(KindConflict, "not_found", "question not found")
	ErrQuestionNotApproved = newError(KindConflict, "question_not_approved", "question is not approved")

	ErrForbidden = newError(KindForbidden, "forbidden", "actor role does not permit this action")

	ErrStorage = newError(KindStorage, "storage_failure", "storage failure")
)

// Storage wraps a store error so callers can classify it as fatal for the
// current operation. Domain errors pass through unchanged.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindStorage, code: ErrStorage.code, msg: ErrStorage.msg, Err: err}
}

// KindOf reports the kind of err, or KindStorage for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorage
}

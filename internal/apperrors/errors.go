// Package apperrors defines the error taxonomy shared by the store, the
// complaint engine and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers; it maps onto an HTTP status.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindTransient    Kind = "transient_store"
	KindUnauthorized Kind = "unauthorized"
)

// Code is a machine-stable identifier surfaced to API clients.
type Code string

const (
	CodeInvalidInput          Code = "INVALID_INPUT"
	CodeTitleRequired         Code = "TITLE_REQUIRED"
	CodeInvalidCategory       Code = "INVALID_CATEGORY"
	CodeInvalidStatus         Code = "INVALID_STATUS"
	CodeRemarksRequired       Code = "REMARKS_REQUIRED"
	CodeMessageRequired       Code = "MESSAGE_REQUIRED"
	CodeActiveComplaintExists Code = "ACTIVE_COMPLAINT_EXISTS"
	CodeAlreadyClaimed        Code = "ALREADY_CLAIMED"
	CodeNotClaimed            Code = "NOT_CLAIMED"
	CodeAlreadyTerminal       Code = "ALREADY_TERMINAL"
	CodeNotClaimOwner         Code = "NOT_CLAIM_OWNER"
	CodeDepartmentMismatch    Code = "DEPARTMENT_MISMATCH"
	CodeRoleNotAllowed        Code = "ROLE_NOT_ALLOWED"
	CodeNotVisible            Code = "NOT_VISIBLE"
	CodeComplaintNotFound     Code = "COMPLAINT_NOT_FOUND"
	CodeUserNotFound          Code = "USER_NOT_FOUND"
	CodeStoreFailure          Code = "STORE_FAILURE"
	CodeUnauthorized          Code = "UNAUTHORIZED"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Code so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func newError(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation builds a ValidationError.
func Validation(code Code, msg string) *Error { return newError(KindValidation, code, msg) }

// Conflict builds a ConflictError.
func Conflict(code Code, msg string) *Error { return newError(KindConflict, code, msg) }

// Forbidden builds a ForbiddenError.
func Forbidden(code Code, msg string) *Error { return newError(KindForbidden, code, msg) }

// NotFound builds a NotFoundError.
func NotFound(code Code, msg string) *Error { return newError(KindNotFound, code, msg) }

// Unauthorized builds an error for a missing or invalid identity.
func Unauthorized(msg string) *Error { return newError(KindUnauthorized, CodeUnauthorized, msg) }

// Transient wraps a storage failure. Callers may retry.
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Code: CodeStoreFailure, Message: op + " failed", Err: err}
}

// Sentinels for errors.Is checks.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrTransient      = &Error{Kind: KindTransient}
	ErrAlreadyClaimed = &Error{Kind: KindConflict, Code: CodeAlreadyClaimed}
)

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err. Unclassified errors are transient.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindTransient
}

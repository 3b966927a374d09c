// Package domainerrors defines coded errors shared by services and transports.
//
// Services return *Error values so handlers can map them to responses without
// inspecting messages. Infrastructure failures are wrapped with CodeInternal and
// keep their cause for logging.
package domainerrors

import (
	"errors"
)

// Code is a stable, machine-readable error identifier.
type Code string

// Generic codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Threshold-authorization codes.
const (
	CodeInvalidOwners       Code = "invalid_owners"
	CodeTooManyOwners       Code = "too_many_owners"
	CodeInvalidThreshold    Code = "invalid_threshold"
	CodeInvalidOwner        Code = "invalid_owner"
	CodeTooManyAccounts     Code = "too_many_accounts"
	CodePayloadTooLarge     Code = "payload_too_large"
	CodeOwnerSetChanged     Code = "owner_set_changed"
	CodeAlreadyExecuted     Code = "already_executed"
	CodeNotEnoughSignatures Code = "not_enough_signatures"
	CodeInvalidAccounts     Code = "invalid_accounts"
	CodeInvalidMultisig     Code = "invalid_multisig"
	CodeInvalidAuthority    Code = "invalid_authority"
	CodeExecutionFailed     Code = "execution_failed"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
// A nil err still produces a coded error so callers never lose the code.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// Is is an alias of HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost coded error in err's chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// MessageOf returns the message of the outermost coded error, or err.Error().
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Package dErrors provides coded domain errors. Services return these so
// transports can translate them into user-facing responses without string
// matching, and tests can assert on codes instead of messages.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeLocked       Code = "locked"
	CodeInternal     Code = "internal"

	// Login failure taxonomy. Each maps 1:1 to a user-facing message.
	CodeIdentityNotFound  Code = "identity_not_found"
	CodeInvalidCredential Code = "invalid_credential"
	CodeAccountSuspended  Code = "account_suspended"
	CodeAccountInactive   Code = "account_inactive"
	CodeAccountPending    Code = "account_pending"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates a cause with a code and message.
func Wrap(cause error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps domain error codes to HTTP status codes.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidCredential, CodeIdentityNotFound:
		return http.StatusUnauthorized
	case CodeForbidden, CodeAccountSuspended, CodeAccountInactive, CodeAccountPending:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeLocked:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the user-facing message for a login failure code.
// Unknown codes fall back to a generic message so internal detail never
// leaks to the login screen.
func UserMessage(code Code) string {
	switch code {
	case CodeIdentityNotFound:
		return "No account matches that identifier."
	case CodeInvalidCredential:
		return "The password you entered is incorrect."
	case CodeAccountSuspended:
		return "This account has been suspended. Contact the village office."
	case CodeAccountInactive:
		return "This account is inactive."
	case CodeAccountPending:
		return "This account is awaiting approval."
	case CodeLocked:
		return "Too many failed attempts. Try again later."
	default:
		return "Login failed. Please try again."
	}
}

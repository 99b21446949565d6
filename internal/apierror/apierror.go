package apierror

import (
	"errors"
	"fmt"
)

// Code classifies a client-side failure.
type Code string

const (
	CodeValidation     Code = "VALIDATION"
	CodeAuth           Code = "AUTH"
	CodeNetwork        Code = "NETWORK"
	CodeSessionExpired Code = "SESSION_EXPIRED"
	CodeExport         Code = "EXPORT"
	CodeNotFound       Code = "NOT_FOUND"
)

// Error is a structured client error with a code and a user-readable message.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage is the dismissible text shown to the user. It never includes
// the underlying cause.
func (e *Error) UserMessage() string {
	return e.Message
}

// NewValidation creates an error for input rejected before any network call.
func NewValidation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// NewAuth creates an error for rejected credentials or registration conflicts.
func NewAuth(msg string) *Error {
	return &Error{Code: CodeAuth, Message: msg}
}

// NewNetwork creates an error for transport failures and timeouts.
func NewNetwork(msg string, cause error) *Error {
	return &Error{Code: CodeNetwork, Message: msg, Cause: cause}
}

// NewSessionExpired creates the unauthorized-signal error. It is the only
// error with a cross-component side effect (forced logout).
func NewSessionExpired() *Error {
	return &Error{Code: CodeSessionExpired, Message: "session expired, please sign in again"}
}

// NewExport creates an error for rendering or PDF generation failures.
func NewExport(msg string, cause error) *Error {
	return &Error{Code: CodeExport, Message: msg, Cause: cause}
}

// NewNotFound creates an error for a missing remote document.
func NewNotFound(id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("document not found: %s", id)}
}

// CodeOf extracts the code from err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

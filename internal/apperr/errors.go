// Package apperr defines the stable error taxonomy of the approval
// engine. Every failure a caller can act on carries one of these codes;
// the HTTP layer maps codes to statuses and clients map them to
// messages ("already processed" vs "not your turn to approve").
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, outward-facing error code.
type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeLineAuthority      Code = "LINE_AUTHORITY"
	CodeSequenceGeneration Code = "SEQUENCE_GENERATION"
	CodeFileUpload         Code = "FILE_UPLOAD"
	CodeFileDelete         Code = "FILE_DELETE"
)

// Error is a coded business error.
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

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// NotFound is shorthand for a NOT_FOUND error.
func NotFound(what string, id interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %v not found", what, id)}
}

// InvalidState is shorthand for an INVALID_STATE error.
func InvalidState(message string) *Error {
	return &Error{Code: CodeInvalidState, Message: message}
}

// LineAuthority is shorthand for a LINE_AUTHORITY error.
func LineAuthority(message string) *Error {
	return &Error{Code: CodeLineAuthority, Message: message}
}

// CodeOf extracts the code from err, walking the wrap chain. Returns
// ok=false for errors outside the taxonomy.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

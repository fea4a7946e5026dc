// Package pdkerr defines the error taxonomy shared by the layout engine.
//
// Every failure surfaced by parameter resolution, the cell hierarchy,
// ports and the geometry algorithms is an *Error carrying a Code. Codes
// are machine-readable so callers can branch on them:
//
//	if pdkerr.Is(err, pdkerr.CodeUnroutable) {
//	    // try again with different routing hints
//	}
//
// The exported sentinel values match any *Error with the same code, so
// the standard library works too:
//
//	errors.Is(err, pdkerr.ErrDegeneratePath)
package pdkerr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// Parameter model
	CodeDuplicateParameter Code = "DUPLICATE_PARAMETER"
	CodeUnknownParameter   Code = "UNKNOWN_PARAMETER"
	CodeTypeMismatch       Code = "TYPE_MISMATCH"

	// Hierarchy
	CodeCyclicInheritance Code = "CYCLIC_INHERITANCE"
	CodeUnknownType       Code = "UNKNOWN_TYPE"
	CodeDuplicateType     Code = "DUPLICATE_TYPE"

	// Ports
	CodePortAfterRealization Code = "PORT_AFTER_REALIZATION"
	CodeDuplicatePort        Code = "DUPLICATE_PORT"
	CodeUnknownPort          Code = "UNKNOWN_PORT"
	CodeIncompatibleProfile  Code = "INCOMPATIBLE_PROFILE"

	// Geometry
	CodeDegeneratePath Code = "DEGENERATE_PATH"
	CodeUnroutable     Code = "UNROUTABLE"

	// General
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnknownLayer    Code = "UNKNOWN_LAYER"
)

// Sentinels for errors.Is. They compare by code only.
var (
	ErrDuplicateParameter   = &Error{Code: CodeDuplicateParameter}
	ErrUnknownParameter     = &Error{Code: CodeUnknownParameter}
	ErrTypeMismatch         = &Error{Code: CodeTypeMismatch}
	ErrCyclicInheritance    = &Error{Code: CodeCyclicInheritance}
	ErrUnknownType          = &Error{Code: CodeUnknownType}
	ErrPortAfterRealization = &Error{Code: CodePortAfterRealization}
	ErrIncompatibleProfile  = &Error{Code: CodeIncompatibleProfile}
	ErrDegeneratePath       = &Error{Code: CodeDegeneratePath}
	ErrUnroutable           = &Error{Code: CodeUnroutable}
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix, falling back
// to err.Error() for foreign errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Package errors provides structured error types for pangraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Load-time failures carry one of the domain codes:
//   - NOT_FOUND: the input file (or a node) does not exist
//   - MALFORMED_INPUT: a GFA record could not be parsed
//   - CORRUPT_CACHE: a cache or side file is truncated or inconsistent
//   - OUT_OF_RANGE: a node id outside 0..N-1 was used
//   - CYCLIC_GRAPH: the layout sweep could not visit every node
//
// Load failures are always returned to the caller and never terminate the
// process. Accessors on already-loaded data fail fast instead.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedInput, "line %d: bad link", n)
//	if errors.Is(err, errors.ErrCodeMalformedInput) {
//	    // Handle parse error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNotFound, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Load errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeMalformedInput Code = "MALFORMED_INPUT"
	ErrCodeCorruptCache   Code = "CORRUPT_CACHE"
	ErrCodeOutOfRange     Code = "OUT_OF_RANGE"
	ErrCodeCyclicGraph    Code = "CYCLIC_GRAPH"

	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"

	// Session errors
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Concurrency errors
	ErrCodeBusy Code = "BUSY"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
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

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// LineError reports a parse failure at a specific line of an input file.
type LineError struct {
	Line   int    // 1-based line number
	Record string // Record type, e.g. "S" or "L"
	Err    error  // Underlying cause
}

// Error implements the error interface.
func (e *LineError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("line %d (%s): %v", e.Line, e.Record, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LineError) Unwrap() error {
	return e.Err
}

// Code returns the error code for this error type.
func (e *LineError) Code() Code {
	return ErrCodeMalformedInput
}

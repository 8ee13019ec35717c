// Package errors provides structured error types for serverdep.
//
// Every failure the pipeline can produce carries a machine-readable [Code],
// so the CLI can map it to an exit status and callers can branch on it
// without matching message text.
//
// # Error Codes
//
// Codes fall into three groups:
//   - pre-publish: MISSING_ARCHIVE, INVALID_ARCHIVE, MISSING_METADATA, MISSING_VERSION
//   - mid-pipeline: PUBLISH_FAILED, WORKSPACE_FAILED, FILTER_FAILED, DECOMPILE_FAILED,
//     PACKAGE_FAILED
//   - advisory: CACHE_READ_FAILED, CACHE_WRITE_FAILED, CLEANUP_FAILED
//
// Advisory codes never fail a run on their own; see [Fatal].
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMissingVersion, "no %s attribute in %s", attr, path)
//	if errors.Is(err, errors.ErrCodeMissingVersion) {
//	    // ...
//	}
//
//	err := errors.Wrap(errors.ErrCodePublish, origErr, "copy %s", src)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the materialization pipeline.
const (
	// Input errors, raised before anything is written.
	ErrCodeMissingArchive  Code = "MISSING_ARCHIVE"
	ErrCodeInvalidArchive  Code = "INVALID_ARCHIVE"
	ErrCodeMissingMetadata Code = "MISSING_METADATA"
	ErrCodeMissingVersion  Code = "MISSING_VERSION"

	// Stage errors. Each aborts the remainder of the run.
	ErrCodePublish   Code = "PUBLISH_FAILED"
	ErrCodeFilter    Code = "FILTER_FAILED"
	ErrCodeDecompile Code = "DECOMPILE_FAILED"
	ErrCodePackage   Code = "PACKAGE_FAILED"

	// ErrCodeWorkspace is raised when the scratch directory for the sources
	// stage cannot be created.
	ErrCodeWorkspace Code = "WORKSPACE_FAILED"

	// Advisory errors, surfaced to the operator but never fatal.
	ErrCodeCacheRead  Code = "CACHE_READ_FAILED"
	ErrCodeCacheWrite Code = "CACHE_WRITE_FAILED"
	ErrCodeCleanup    Code = "CLEANUP_FAILED"

	// Configuration and invocation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeCanceled      Code = "CANCELED"
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
// If cause already carries the same code it is returned unchanged.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	var e *Error
	if errors.As(cause, &e) && e.Code == code {
		return e
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// Only the outermost *Error in the chain is considered: a DECOMPILE_FAILED
// error caused by a CANCELED one is a DECOMPILE_FAILED error.
func Is(err error, code Code) bool {
	return GetCode(err) == code
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
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// Fatal reports whether an error with the given code must abort a run.
// Cache and cleanup failures are advisory; everything else is fatal.
func Fatal(code Code) bool {
	switch code {
	case ErrCodeCacheRead, ErrCodeCacheWrite, ErrCodeCleanup:
		return false
	}
	return true
}

// IsSourcesStage reports whether code belongs to the best-effort sources
// stage (filter, decompile, package). A failure there leaves the published
// binary and descriptor valid.
func IsSourcesStage(code Code) bool {
	switch code {
	case ErrCodeWorkspace, ErrCodeFilter, ErrCodeDecompile, ErrCodePackage:
		return true
	}
	return false
}

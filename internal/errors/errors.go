// Package errors defines the application error taxonomy and central handling.
package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// GenericUserMessage is the fallback notice for unclassified failures.
const GenericUserMessage = "There's been an error. Try again later."

// AppError carries an internal message, a user-facing message, and routing
// metadata for logging and reporting.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewValidationError wraps a user-input validation failure. The message is
// shown to the user verbatim as a re-prompt.
func NewValidationError(userMsg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     fmt.Sprintf("validation failed: %s", userMsg),
		UserMessage: userMsg,
		Severity:    SeverityLow,
		Retryable:   true,
	}
}

// NewStorageError wraps a database or session-store failure.
func NewStorageError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("storage error: %s", underlyingMsg),
		UserMessage: GenericUserMessage,
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// Meta returns the code and severity labels of an error for telemetry.
// Unclassified errors count as high severity with an unknown code.
func Meta(err error) (code, severity string) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code, string(appErr.Severity)
	}

	return "unknown", string(SeverityHigh)
}

// NewStateError flags an operation that is impossible in the current
// conversation state, such as a stale button press.
func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     msg,
		UserMessage: "Unknown action.",
		Severity:    SeverityMedium,
	}
}

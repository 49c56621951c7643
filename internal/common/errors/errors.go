// Package errors provides standardized error handling for the analysis funnel.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeAnalysisRequestFailed ErrorCode = "ANALYSIS_REQUEST_FAILED"
	ErrCodeAnalysisTimeout       ErrorCode = "ANALYSIS_TIMEOUT"
	ErrCodeAnalysisBadResponse   ErrorCode = "ANALYSIS_BAD_RESPONSE"

	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	ErrCodeInvalidEmail   ErrorCode = "INVALID_EMAIL"
	ErrCodeFileReadFailed ErrorCode = "FILE_READ_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrInvalidEmail is the cause of every NewInvalidEmailError.
var ErrInvalidEmail = New("INVALID_EMAIL")

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so sentinel checks keep working.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewAnalysisRequestFailedError wraps a transport or non-success response.
func NewAnalysisRequestFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisRequestFailed,
		Message:   "Analysis request failed",
		Details:   detailsOf(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewAnalysisTimeoutError reports an analysis call that ran past its deadline.
func NewAnalysisTimeoutError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisTimeout,
		Message:   "Analysis timed out",
		Details:   detailsOf(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewAnalysisBadResponseError reports a response that could not be decoded or
// violated the response schema.
func NewAnalysisBadResponseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisBadResponse,
		Message:   "Analysis service returned an invalid response",
		Details:   detailsOf(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDeliveryFailedError reports a failed report delivery.
func NewDeliveryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Report delivery failed",
		Details:   detailsOf(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidEmailError is returned for an address without "@".
func NewInvalidEmailError(email string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidEmail,
		Message:   "Please enter a valid email address.",
		Details:   fmt.Sprintf("email: %q", email),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     ErrInvalidEmail,
	}
}

// NewFileReadFailedError reports a source file that could not be read.
func NewFileReadFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileReadFailed,
		Message:   "Could not read source file",
		Details:   fmt.Sprintf("path: %s, error: %s", path, detailsOf(err)),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeAnalysisRequestFailed, ErrCodeAnalysisTimeout:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "ANALYSIS"):
		return "ANALYSIS"
	case strings.HasPrefix(codeStr, "DELIVERY"):
		return "DELIVERY"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "FILE"):
		return "FILE"
	default:
		return "OTHER"
	}
}

// Notice renders the text shown to the user for a failure that resets the
// session.
func Notice(err error) string {
	if err == nil {
		return ""
	}
	var stdErr *StandardError
	if As(err, &stdErr) {
		switch stdErr.Code {
		case ErrCodeAnalysisTimeout:
			return "The analysis took too long. Please try again."
		case ErrCodeAnalysisRequestFailed, ErrCodeAnalysisBadResponse:
			return "We couldn't analyze your files. Please check the service and try again."
		}
		return stdErr.Message
	}
	return "Something went wrong. Please try again."
}

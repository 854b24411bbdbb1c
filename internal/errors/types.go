package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type
type ErrorCode string

const (
	// Configuration errors (startup-fatal)
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"

	// Database errors
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	ErrCodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"

	// Remote platform errors
	ErrCodeUpstreamAPI     ErrorCode = "UPSTREAM_API"
	ErrCodeUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"

	// Ingestion outcomes that callers branch on
	ErrCodeTenantNotFound ErrorCode = "TENANT_NOT_FOUND"
	ErrCodeDuplicateEvent ErrorCode = "DUPLICATE_EVENT"

	// Validation errors
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Security errors
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION"
	ErrCodeAuthorization  ErrorCode = "AUTHORIZATION"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Cause       error                  `json:"-"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Retryable   bool                   `json:"retryable"`
	UserMessage string                 `json:"user_message,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithUserMessage sets a user-friendly message
func (e *AppError) WithUserMessage(msg string) *AppError {
	e.UserMessage = msg
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// GetUserMessage extracts a user-friendly message from an error
func GetUserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return "An internal error occurred"
}

// GetMessage extracts the structured message from an error, without the
// underlying cause chain.
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsTenantNotFound reports whether err is a failed tenant resolution.
// Callers must drop the event rather than retry.
func IsTenantNotFound(err error) bool {
	return IsCode(err, ErrCodeTenantNotFound)
}

// IsDuplicateEvent reports whether err is a uniqueness violation on message
// insert. Treated as the success path by the ingestion pipeline.
func IsDuplicateEvent(err error) bool {
	return IsCode(err, ErrCodeDuplicateEvent)
}

// IsAuthentication reports whether err is a decryption/auth failure.
func IsAuthentication(err error) bool {
	return IsCode(err, ErrCodeAuthentication)
}

// IsUpstreamTimeout reports whether err is a bounded-wait expiry on a
// remote platform call.
func IsUpstreamTimeout(err error) bool {
	return IsCode(err, ErrCodeUpstreamTimeout)
}

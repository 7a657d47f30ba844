// Package errors defines the application-level error taxonomy.
// Expected domain outcomes are modeled as typed error kinds so callers and
// the HTTP error handler branch on kind instead of string matching.
package errors

import (
	"net/http"
	"time"

	"sitewatch/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Credential and login errors. Unknown user and wrong password share one
	// kind so the response does not reveal which failed.
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Invalid email or password",
		"",
	)

	// Two-factor errors
	ErrTwoFactorInvalidCode = NewBaseError(
		http.StatusUnauthorized,
		"TWO_FACTOR_INVALID_CODE",
		"Invalid two-factor code",
		"",
	)

	ErrTwoFactorNotPending = NewBaseError(
		http.StatusBadRequest,
		"TWO_FACTOR_NOT_PENDING",
		"No two-factor setup is pending for this account",
		"",
	)

	ErrChallengeInvalid = NewBaseError(
		http.StatusUnauthorized,
		"CHALLENGE_INVALID",
		"Invalid two-factor challenge",
		"",
	)

	ErrChallengeExpired = NewBaseError(
		http.StatusUnauthorized,
		"CHALLENGE_EXPIRED",
		"Two-factor challenge has expired",
		"",
	)

	// Refresh token errors
	ErrRefreshInvalid = NewBaseError(
		http.StatusUnauthorized,
		"REFRESH_INVALID",
		"Invalid refresh token",
		"",
	)

	ErrRefreshExpired = NewBaseError(
		http.StatusUnauthorized,
		"REFRESH_EXPIRED",
		"Refresh token has expired",
		"",
	)

	ErrRefreshReuseDetected = NewBaseError(
		http.StatusUnauthorized,
		"REFRESH_REUSE_DETECTED",
		"Refresh token has already been used",
		"",
	)

	// Password reset errors
	ErrResetTokenInvalid = NewBaseError(
		http.StatusBadRequest,
		"RESET_TOKEN_INVALID",
		"Invalid password reset token",
		"",
	)

	ErrResetTokenExpired = NewBaseError(
		http.StatusBadRequest,
		"RESET_TOKEN_EXPIRED",
		"Password reset token has expired",
		"",
	)

	// Password policy errors
	ErrPasswordStrength = NewBaseError(
		http.StatusBadRequest,
		"PASSWORD_STRENGTH",
		"Password does not meet security requirements",
		"",
	)

	// Session errors
	ErrSessionNotFound = NewBaseError(
		http.StatusNotFound,
		"SESSION_NOT_FOUND",
		"Session not found",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"Access denied",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"Resource not found",
		"",
	)
)

// LockoutError reports a brute-force lockout. Unlike the sentinel kinds above
// it carries data: when the lock expires and which key (ip or username)
// tripped it, so the HTTP layer can emit Retry-After.
type LockoutError struct {
	LockedUntil time.Time
	Reason      string // "ip" or "username"
}

// NewLockoutError creates a lockout error for the given expiry and key kind.
func NewLockoutError(lockedUntil time.Time, reason string) *LockoutError {
	return &LockoutError{LockedUntil: lockedUntil, Reason: reason}
}

// Error implements the error interface
func (e *LockoutError) Error() string {
	return "too many failed attempts, try again later"
}

// HTTPCode returns the HTTP status code
func (e *LockoutError) HTTPCode() int {
	return http.StatusTooManyRequests
}

// ErrorCode returns the business error code
func (e *LockoutError) ErrorCode() string {
	return "LOCKED_OUT"
}

// Message returns the user-friendly error message
func (e *LockoutError) Message() string {
	return "Too many failed attempts, try again later"
}

// Details returns detailed error information
func (e *LockoutError) Details() string {
	return "locked by " + e.Reason + " until " + e.LockedUntil.Format(time.RFC3339)
}

// RetryAfter returns the client-facing wait duration, never negative.
func (e *LockoutError) RetryAfter() time.Duration {
	d := time.Until(e.LockedUntil)
	if d < 0 {
		return 0
	}

	return d
}

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}

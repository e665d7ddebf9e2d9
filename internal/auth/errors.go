package auth

import (
	"errors"
	"fmt"
)

// Error codes for authentication failures
const (
	// ErrInvalidCredentials means the backend rejected the username or password.
	ErrInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	// ErrNetwork means no response reached the backend.
	ErrNetwork = "AUTH_NETWORK_ERROR"
	// ErrSessionExpired means the backend invalidated a previously valid session.
	ErrSessionExpired = "AUTH_SESSION_EXPIRED"
	// ErrValidationFailed means a persisted session did not survive bootstrap validation.
	ErrValidationFailed = "AUTH_VALIDATION_FAILED"

	// ErrMalformedResponse means the backend answered with a body that does not match its schema.
	ErrMalformedResponse = "AUTH_MALFORMED_RESPONSE"
	// ErrServiceError means the backend answered with a server-side failure (5xx).
	ErrServiceError = "AUTH_SERVICE_ERROR"
	// ErrLoginSuperseded means a logout, expiry or newer login happened while the login was in flight.
	ErrLoginSuperseded = "AUTH_LOGIN_SUPERSEDED"
	// ErrSessionStoreFailed means the session could not be persisted or cleared.
	ErrSessionStoreFailed = "AUTH_SESSION_STORE_FAILED"
)

// LoginFailedMessage is the message shown to users when a login attempt is rejected.
const LoginFailedMessage = "Login failed. Please check your credentials."

// AuthError represents an authentication error with code and context.
type AuthError struct {
	// Code is the error code (e.g., AUTH_SESSION_EXPIRED)
	Code string

	// Message is a human-readable error message, suitable for display
	Message string

	// Context provides additional details about the error
	Context map[string]any

	// Cause is the underlying error that caused this error
	Cause error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the error code for structured logging.
func (e *AuthError) ErrorCode() string {
	return e.Code
}

// NewError creates a new AuthError.
func NewError(code, message string, context map[string]any) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// WrapError wraps an existing error with an AuthError.
func WrapError(code, message string, cause error, context map[string]any) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
		Context: context,
		Cause:   cause,
	}
}

// IsAuthError checks if err, or any error it wraps, is an AuthError with the given code.
func IsAuthError(err error, code string) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code == code
	}
	return false
}

// Code returns the AuthError code carried by err, or "" when there is none.
func Code(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return ""
}

// Message returns the display message of an AuthError, or err.Error() otherwise.
func Message(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return err.Error()
}

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Session errors (SESSION-001 to SESSION-099)
	ErrCodeNotLoggedIn    ErrorCode = "SESSION-001"
	ErrCodeSessionExpired ErrorCode = "SESSION-002"
	ErrCodeSessionStore   ErrorCode = "SESSION-003"

	// Access errors (ACCESS-001 to ACCESS-099)
	ErrCodePermissionDenied ErrorCode = "ACCESS-001"
	ErrCodeUnknownRoute     ErrorCode = "ACCESS-002"
	ErrCodeSessionPending   ErrorCode = "ACCESS-003"

	// Login errors (LOGIN-001 to LOGIN-099)
	ErrCodeLoginFailed      ErrorCode = "LOGIN-001"
	ErrCodeBackendUnreached ErrorCode = "LOGIN-002"

	// Signup errors (SIGNUP-001 to SIGNUP-099)
	ErrCodeSignupStep    ErrorCode = "SIGNUP-001"
	ErrCodeSignupInput   ErrorCode = "SIGNUP-002"
	ErrCodeSignupBackend ErrorCode = "SIGNUP-003"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigRead    ErrorCode = "CONFIG-002"
)

// CandidashError is a user-facing error with a stable code and hints on how to recover.
type CandidashError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *CandidashError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, s := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", s)
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *CandidashError) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the code as a plain string for structured logging.
func (e *CandidashError) ErrorCode() string {
	return string(e.Code)
}

// New creates a new CandidashError
func New(code ErrorCode, message string) *CandidashError {
	return &CandidashError{Code: code, Message: message}
}

// Wrap creates a new CandidashError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *CandidashError {
	return &CandidashError{Code: code, Message: message, Cause: cause}
}

// HasCode reports whether err or any error it wraps is a CandidashError with
// the given code.
func HasCode(err error, code ErrorCode) bool {
	var ce *CandidashError
	return stderrors.As(err, &ce) && ce.Code == code
}

// WithSuggestion adds a suggestion to the error
func (e *CandidashError) WithSuggestion(suggestion string) *CandidashError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *CandidashError) WithSuggestions(suggestions ...string) *CandidashError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// NewNotLoggedInError is returned when a command needs a session and none exists.
func NewNotLoggedInError(attemptedPath string) *CandidashError {
	msg := "not logged in"
	if attemptedPath != "" {
		msg = fmt.Sprintf("login required to open %s", attemptedPath)
	}
	return New(ErrCodeNotLoggedIn, msg).
		WithSuggestion("Run 'candidash auth login' and retry")
}

// NewSessionExpiredError is returned after the backend invalidated the session.
func NewSessionExpiredError() *CandidashError {
	return New(ErrCodeSessionExpired, "Session expired. Please login again.").
		WithSuggestion("Run 'candidash auth login' to start a new session")
}

// NewPermissionDeniedError reports an unmet permission requirement.
func NewPermissionDeniedError(target, requirement string) *CandidashError {
	return New(ErrCodePermissionDenied, fmt.Sprintf("not authorized to open %s (requires %s)", target, requirement)).
		WithSuggestion("Run 'candidash auth whoami' to list your permissions").
		WithSuggestion("Ask a super admin to grant the missing permission to your role")
}

// NewUnknownRouteError reports a path that is not in the route table.
func NewUnknownRouteError(path string) *CandidashError {
	return New(ErrCodeUnknownRoute, fmt.Sprintf("unknown route: %s", path)).
		WithSuggestion("Run 'candidash route list' to see the console routes")
}

// NewSessionPendingError is returned when the persisted session could not be
// validated yet.
func NewSessionPendingError() *CandidashError {
	return New(ErrCodeSessionPending, "session is still being validated").
		WithSuggestion("Retry the command")
}

// NewLoginFailedError wraps a rejected login with the message shown to the user.
func NewLoginFailedError(message string, cause error) *CandidashError {
	return Wrap(ErrCodeLoginFailed, message, cause).
		WithSuggestion("Check the username and password and try again")
}

// NewBackendUnreachableError reports that no response reached the backend.
func NewBackendUnreachableError(apiURL string, cause error) *CandidashError {
	return Wrap(ErrCodeBackendUnreached, fmt.Sprintf("cannot reach backend at %s", apiURL), cause).
		WithSuggestion("Check your network connection").
		WithSuggestion("Set api_url in ~/.candidash/config.yaml or CANDIDASH_API_URL")
}

// NewSignupStepError reports a signup command issued out of order.
func NewSignupStepError(current, required string) *CandidashError {
	return New(ErrCodeSignupStep, fmt.Sprintf("signup is at step %q, this command needs %q", current, required)).
		WithSuggestion("Run 'candidash signup status' to see where you are").
		WithSuggestion("Run 'candidash signup reset' to start over")
}

// NewConfigInvalidError reports a configuration value that failed validation.
func NewConfigInvalidError(details string) *CandidashError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Review ~/.candidash/config.yaml and ./.candidash.yaml")
}

package exitcode

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/candidash/internal/auth"
	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage or input (bad flags,
	// malformed contact details, invalid configuration)
	UsageError = 2

	// PermissionDenied indicates the session lacks the permission a route needs
	PermissionDenied = 3

	// AuthError indicates a missing, rejected or expired session
	AuthError = 5

	// NetworkError indicates the backend could not be reached or failed
	NetworkError = 6

	// Interrupted indicates the command was cancelled by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps an error to an exit code. Coded errors decide by
// their code; the message is only inspected for untyped errors.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	var ce *cerrors.CandidashError
	if errors.As(err, &ce) {
		if code, ok := fromCandidashCode(ce.Code); ok {
			return code
		}
	}

	var ae *auth.AuthError
	if errors.As(err, &ae) {
		return fromAuthCode(ae.Code)
	}

	return fromMessage(err)
}

func fromCandidashCode(code cerrors.ErrorCode) (int, bool) {
	switch code {
	case cerrors.ErrCodeNotLoggedIn, cerrors.ErrCodeSessionExpired, cerrors.ErrCodeSessionPending,
		cerrors.ErrCodeLoginFailed:
		return AuthError, true
	case cerrors.ErrCodePermissionDenied:
		return PermissionDenied, true
	case cerrors.ErrCodeUnknownRoute, cerrors.ErrCodeSignupStep, cerrors.ErrCodeSignupInput,
		cerrors.ErrCodeConfigInvalid:
		return UsageError, true
	case cerrors.ErrCodeBackendUnreached:
		return NetworkError, true
	case cerrors.ErrCodeSessionStore, cerrors.ErrCodeConfigRead:
		return GeneralError, true
	}
	// SIGNUP-003 wraps the backend failure; let the cause decide.
	return 0, false
}

func fromAuthCode(code string) int {
	switch code {
	case auth.ErrInvalidCredentials, auth.ErrSessionExpired, auth.ErrValidationFailed, auth.ErrLoginSuperseded:
		return AuthError
	case auth.ErrNetwork, auth.ErrServiceError:
		return NetworkError
	default:
		return GeneralError
	}
}

func fromMessage(err error) int {
	errMsg := strings.ToLower(err.Error())

	// Usage errors reported by cobra
	if strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "unknown command") ||
		strings.Contains(errMsg, "unknown shorthand flag") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts ") ||
		strings.Contains(errMsg, "invalid argument") {
		return UsageError
	}

	if strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "forbidden") {
		return AuthError
	}

	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "timeout") {
		return NetworkError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or input)"
	case PermissionDenied:
		return "Permission denied"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}

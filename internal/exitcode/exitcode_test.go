package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/candidash/internal/auth"
	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"UsageError", UsageError, 2},
		{"PermissionDenied", PermissionDenied, 3},
		{"AuthError", AuthError, 5},
		{"NetworkError", NetworkError, 6},
		{"Interrupted", Interrupted, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code)
		})
	}
}

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error returns success", nil, Success},
		{"cancelled context", fmt.Errorf("login: %w", context.Canceled), Interrupted},

		{"not logged in", cerrors.NewNotLoggedInError("/admin-management"), AuthError},
		{"session expired", cerrors.NewSessionExpiredError(), AuthError},
		{"permission denied", cerrors.NewPermissionDeniedError("/role-management", "ROLE_MANAGE"), PermissionDenied},
		{"unknown route", cerrors.NewUnknownRouteError("/nowhere"), UsageError},
		{"signup out of order", cerrors.NewSignupStepError("contact", "otp_sent"), UsageError},
		{"invalid config", cerrors.NewConfigInvalidError("timeout must be positive"), UsageError},
		{"backend unreachable", cerrors.NewBackendUnreachableError("http://localhost:8080", errors.New("dial tcp")), NetworkError},

		{"invalid credentials", auth.NewError(auth.ErrInvalidCredentials, "Invalid credentials", nil), AuthError},
		{"network", auth.WrapError(auth.ErrNetwork, "backend unreachable", errors.New("dial"), nil), NetworkError},
		{"service error", auth.NewError(auth.ErrServiceError, "maintenance", nil), NetworkError},
		{"malformed response", auth.NewError(auth.ErrMalformedResponse, "bad body", nil), GeneralError},
		{"wrapped auth error", fmt.Errorf("whoami: %w", auth.NewError(auth.ErrSessionExpired, "expired", nil)), AuthError},
		{
			"signup backend failure defers to cause",
			cerrors.Wrap(cerrors.ErrCodeSignupBackend, "could not send OTP", auth.WrapError(auth.ErrNetwork, "down", nil, nil)),
			NetworkError,
		},

		{"unknown command", errors.New(`unknown command "frobnicate" for "candidash"`), UsageError},
		{"required flag", errors.New(`required flag(s) "username" not set`), UsageError},
		{"arg count", errors.New("accepts 1 arg(s), received 0"), UsageError},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8080: connect: connection refused"), NetworkError},
		{"generic error", errors.New("something went wrong"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineExitCode(tt.err))
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	for _, code := range []int{Success, GeneralError, UsageError, PermissionDenied, AuthError, NetworkError, Interrupted} {
		assert.NotEqual(t, "Unknown error", GetExitCodeDescription(code), "code %d", code)
	}
	assert.Equal(t, "Unknown error", GetExitCodeDescription(42))
}

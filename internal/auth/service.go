package auth

import (
	"context"

	"github.com/felixgeelhaar/candidash/internal/session"
)

// Service is the backend the manager authenticates against.
//
// Implementations report failures as *AuthError:
//   - Login returns ErrInvalidCredentials when the backend rejects the
//     credentials, ErrNetwork when no response arrived and ErrMalformedResponse
//     when the reply cannot be turned into a Session.
//   - ValidateSession returns (false, nil) for an explicit rejection and an
//     error only when no verdict could be obtained.
//   - Logout is best-effort; the manager never depends on it succeeding.
type Service interface {
	Login(ctx context.Context, username, password string) (*session.Session, error)
	ValidateSession(ctx context.Context, token string) (bool, error)
	Logout(ctx context.Context, token string) error
}

package auth

import (
	"github.com/felixgeelhaar/candidash/internal/permission"
	"github.com/felixgeelhaar/candidash/internal/session"
)

// State is the lifecycle state of the admin session.
type State int

const (
	// StateUnauthenticated means there is no session.
	StateUnauthenticated State = iota
	// StateAuthenticating means a login request is in flight.
	StateAuthenticating
	// StateAuthenticated means a session is established.
	StateAuthenticated
	// StateValidating means a persisted session is being re-checked on startup.
	StateValidating
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateValidating:
		return "VALIDATING"
	default:
		return "UNKNOWN"
	}
}

// Transition reasons reported to watchers.
const (
	ReasonBootstrap        = "bootstrap"
	ReasonValidated        = "validated"
	ReasonValidatedOffline = "validated_offline"
	ReasonValidationFailed = "validation_failed"
	ReasonLoginStarted     = "login_started"
	ReasonLogin            = "login"
	ReasonLoginFailed      = "login_failed"
	ReasonLogout           = "logout"
	ReasonExpired          = "expired"
)

// Transition describes one state change.
type Transition struct {
	From   State
	To     State
	Reason string
}

// Snapshot is a consistent, immutable view of the manager used by the gate.
type Snapshot struct {
	State   State
	Session *session.Session
}

// Authenticated reports whether the snapshot carries a usable session.
// A re-login in progress keeps the previous session usable until it resolves.
func (s Snapshot) Authenticated() bool {
	if s.Session == nil {
		return false
	}
	return s.State == StateAuthenticated || s.State == StateAuthenticating
}

// Permissions returns the permission set of the snapshot's session.
func (s Snapshot) Permissions() permission.Set {
	if !s.Authenticated() {
		return permission.Set{}
	}
	return s.Session.PermissionSet()
}

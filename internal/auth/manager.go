// Package auth owns the admin session lifecycle: login, logout, startup
// validation and reaction to server-side expiry.
//
// The Manager is the only owner of the current session. The session store is
// a persistence mirror that lets a session survive process restarts, and the
// gate reads the manager through immutable Snapshots.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/candidash/internal/log"
	"github.com/felixgeelhaar/candidash/internal/permission"
	"github.com/felixgeelhaar/candidash/internal/session"
	"github.com/felixgeelhaar/candidash/internal/telemetry"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l.WithComponent("auth")
		}
	}
}

// WithClock overrides the time source used for local expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

type watcher struct {
	id uint64
	fn func(Transition)
}

// Manager is the admin session state machine.
//
// All methods are safe for concurrent use. Backend calls run without holding
// the lock. Store writes are the exception: Save and Clear run under the lock
// so the persisted mirror changes in the same order as the state, and a slow
// store (Redis) delays Snapshot and OnSessionExpired for that long. Every
// in-flight operation remembers the generation it started in
// and drops its result when the generation has moved on, so a slow login can
// never resurrect a session after logout or expiry.
type Manager struct {
	service Service
	store   session.Store
	logger  *log.Logger
	now     func() time.Time

	mu         sync.Mutex
	state      State
	current    *session.Session
	generation uint64
	attemptID  string
	pending    []Transition

	watchers      []watcher
	nextWatcherID uint64
}

// NewManager creates a manager in StateUnauthenticated. Call Bootstrap to
// pick up a persisted session.
func NewManager(service Service, store session.Store, opts ...Option) *Manager {
	m := &Manager{
		service: service,
		store:   store,
		logger:  log.Discard(),
		now:     time.Now,
		state:   StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Watch registers fn to receive every state transition, in registration
// order, after the transition has been applied. The returned function
// deregisters it.
func (m *Manager) Watch(fn func(Transition)) (unwatch func()) {
	m.mu.Lock()
	m.nextWatcherID++
	id := m.nextWatcherID
	m.watchers = append(m.watchers, watcher{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, w := range m.watchers {
				if w.id == id {
					m.watchers = append(m.watchers[:i:i], m.watchers[i+1:]...)
					return
				}
			}
		})
	}
}

// setState records a transition. Must be called with mu held.
func (m *Manager) setState(to State, reason string) {
	if m.state == to {
		return
	}
	m.pending = append(m.pending, Transition{From: m.state, To: to, Reason: reason})
	m.state = to
}

// unlockAndNotify releases mu and delivers the transitions recorded while it was held.
func (m *Manager) unlockAndNotify() {
	pending := m.pending
	m.pending = nil
	watchers := make([]watcher, len(m.watchers))
	copy(watchers, m.watchers)
	m.mu.Unlock()

	for _, t := range pending {
		m.logger.Debug("session state changed", "from", t.From.String(), "to", t.To.String(), "reason", t.Reason)
		for _, w := range watchers {
			w.fn(t)
		}
	}
}

// clearStore drops the persisted session. Must be called with mu held.
func (m *Manager) clearStore(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.WithError(err).Warn("failed to clear persisted session")
		return WrapError(ErrSessionStoreFailed, "failed to clear persisted session", err, nil)
	}
	return nil
}

// Bootstrap restores a persisted session and confirms it with the backend.
//
// Without a persisted session the manager stays unauthenticated. A locally
// expired token, an explicit rejection or a malformed reply clears the store
// and returns an ErrValidationFailed error, which callers treat as "no
// session". When the backend cannot be reached the session is kept.
func (m *Manager) Bootstrap(ctx context.Context) error {
	ctx, span := telemetry.StartAuthSpan(ctx, "bootstrap")
	defer span.End()

	m.mu.Lock()
	if m.state != StateUnauthenticated || m.current != nil {
		m.mu.Unlock()
		return nil
	}

	stored, err := m.store.Load(ctx)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			m.mu.Unlock()
			telemetry.RecordSuccess(span, attribute.Bool("session_found", false))
			return nil
		case errors.Is(err, session.ErrCorrupt):
			m.logger.WithError(err).Warn("discarding unreadable persisted session")
			_ = m.clearStore(ctx)
			m.mu.Unlock()
			telemetry.RecordSuccess(span, attribute.Bool("session_found", false))
			return nil
		default:
			m.mu.Unlock()
			wrapped := WrapError(ErrSessionStoreFailed, "failed to load persisted session", err, nil)
			telemetry.RecordError(span, wrapped)
			return wrapped
		}
	}

	m.generation++
	gen := m.generation
	m.current = stored
	m.setState(StateValidating, ReasonBootstrap)

	now := m.now()
	if stored.Expired(now) || TokenExpired(stored.Token, now) {
		m.current = nil
		_ = m.clearStore(ctx)
		m.setState(StateUnauthenticated, ReasonValidationFailed)
		m.unlockAndNotify()
		verr := NewError(ErrValidationFailed, "persisted session has expired", map[string]any{"user_id": stored.UserID})
		telemetry.RecordError(span, verr)
		return verr
	}
	token := stored.Token
	m.unlockAndNotify()

	valid, vErr := m.service.ValidateSession(ctx, token)

	m.mu.Lock()
	if m.generation != gen || m.state != StateValidating {
		m.unlockAndNotify()
		m.logger.DebugContext(ctx, "discarding stale validation result")
		return nil
	}

	switch {
	case vErr == nil && valid:
		m.setState(StateAuthenticated, ReasonValidated)
		m.unlockAndNotify()
		telemetry.RecordSuccess(span, attribute.String("outcome", "valid"))
		return nil

	case vErr != nil && (IsAuthError(vErr, ErrNetwork) || IsAuthError(vErr, ErrServiceError)):
		m.setState(StateAuthenticated, ReasonValidatedOffline)
		m.unlockAndNotify()
		m.logger.WithError(vErr).WarnContext(ctx, "backend unreachable, keeping persisted session")
		telemetry.RecordSuccess(span, attribute.String("outcome", "offline"))
		return nil

	default:
		m.current = nil
		_ = m.clearStore(ctx)
		m.setState(StateUnauthenticated, ReasonValidationFailed)
		m.unlockAndNotify()
		failure := WrapError(ErrValidationFailed, "persisted session is no longer valid", vErr, nil)
		telemetry.RecordError(span, failure)
		return failure
	}
}

// Login authenticates against the backend and, on success, persists and
// returns the new session.
//
// A failed attempt never drops a session that was already established: the
// manager returns to AUTHENTICATED with the previous session. If the manager
// was not authenticated the store is left cleared. A result that arrives after
// a logout, an expiry or a newer login is discarded with ErrLoginSuperseded.
func (m *Manager) Login(ctx context.Context, username, password string) (*session.Session, error) {
	ctx, span := telemetry.StartAuthSpan(ctx, "login")
	defer span.End()

	m.mu.Lock()
	hadSession := m.current != nil && (m.state == StateAuthenticated || m.state == StateAuthenticating)
	m.generation++
	gen := m.generation
	attempt := uuid.NewString()
	m.attemptID = attempt
	if !hadSession {
		m.current = nil
	}
	m.setState(StateAuthenticating, ReasonLoginStarted)
	m.unlockAndNotify()

	m.logger.DebugContext(ctx, "login started", "username", username, "attempt", attempt)
	sess, err := m.service.Login(ctx, username, password)
	if err == nil && (sess == nil || sess.Token == "") {
		err = NewError(ErrMalformedResponse, "login response did not contain a session token", nil)
	}

	m.mu.Lock()
	if m.generation != gen || m.attemptID != attempt || m.state != StateAuthenticating {
		m.unlockAndNotify()
		stale := NewError(ErrLoginSuperseded, "login result discarded because the session changed while it was in flight",
			map[string]any{"attempt": attempt})
		m.logger.InfoContext(ctx, "discarding stale login result", "attempt", attempt)
		telemetry.RecordError(span, stale)
		return nil, stale
	}
	m.attemptID = ""

	if err != nil {
		err = m.failLogin(ctx, err)
		m.unlockAndNotify()
		telemetry.RecordError(span, err)
		return nil, err
	}

	sess = sess.Clone()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = m.now()
	}
	if sess.ExpiresAt.IsZero() {
		if exp, ok := TokenExpiry(sess.Token); ok {
			sess.ExpiresAt = exp
		}
	}

	if saveErr := m.store.Save(ctx, sess); saveErr != nil {
		err = m.failLogin(ctx, WrapError(ErrSessionStoreFailed, "failed to persist session", saveErr, nil))
		m.unlockAndNotify()
		telemetry.RecordError(span, err)
		return nil, err
	}

	m.current = sess
	m.setState(StateAuthenticated, ReasonLogin)
	m.unlockAndNotify()

	m.logger.InfoContext(ctx, "logged in", "user_id", sess.UserID, "role", sess.RoleName, "permissions", len(sess.Permissions))
	telemetry.RecordSuccess(span,
		attribute.Int64("user_id", sess.UserID),
		attribute.String("role", sess.RoleName),
	)
	return sess.Clone(), nil
}

// failLogin restores the pre-login state. Must be called with mu held.
func (m *Manager) failLogin(ctx context.Context, cause error) error {
	if m.current != nil {
		m.setState(StateAuthenticated, ReasonLoginFailed)
	} else {
		_ = m.clearStore(ctx)
		m.setState(StateUnauthenticated, ReasonLoginFailed)
	}

	var authErr *AuthError
	if !errors.As(cause, &authErr) {
		cause = WrapError(ErrServiceError, "login failed", cause, nil)
	}
	m.logger.WithError(cause).InfoContext(ctx, "login failed")
	return cause
}

// Logout ends the session locally and tells the backend on a best-effort
// basis. Only a failure to clear the local store is returned.
func (m *Manager) Logout(ctx context.Context) error {
	ctx, span := telemetry.StartAuthSpan(ctx, "logout")
	defer span.End()

	m.mu.Lock()
	var token string
	if m.current != nil {
		token = m.current.Token
	}
	m.generation++
	m.attemptID = ""
	m.current = nil
	clearErr := m.clearStore(ctx)
	m.setState(StateUnauthenticated, ReasonLogout)
	m.unlockAndNotify()

	if token != "" && m.service != nil {
		if err := m.service.Logout(ctx, token); err != nil {
			m.logger.WithError(err).WarnContext(ctx, "server logout failed, local session cleared anyway")
		}
	}

	if clearErr != nil {
		telemetry.RecordError(span, clearErr)
		return clearErr
	}
	telemetry.RecordSuccess(span)
	return nil
}

// OnSessionExpired reacts to the backend invalidating the session. Repeated
// calls produce a single transition to StateUnauthenticated.
//
// A login already in flight is left to complete; only the session it would
// have fallen back to is dropped.
func (m *Manager) OnSessionExpired() {
	ctx := context.Background()

	m.mu.Lock()
	switch m.state {
	case StateAuthenticated, StateValidating:
		m.generation++
		m.current = nil
		_ = m.clearStore(ctx)
		m.setState(StateUnauthenticated, ReasonExpired)
		m.logger.Info("session expired")
	case StateAuthenticating:
		if m.current != nil {
			m.current = nil
			_ = m.clearStore(ctx)
		}
	}
	m.unlockAndNotify()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a consistent copy of state and session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, Session: m.current.Clone()}
}

// Session returns a copy of the current session, or nil when not authenticated.
func (m *Manager) Session() *session.Session {
	snap := m.Snapshot()
	if !snap.Authenticated() {
		return nil
	}
	return snap.Session
}

// IsAuthenticated reports whether a session is established.
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().Authenticated()
}

// HasPermission reports whether the current session grants code.
func (m *Manager) HasPermission(code string) bool {
	return permission.Has(m.Snapshot().Permissions(), code)
}

// HasAnyPermission reports whether the current session grants at least one of codes.
func (m *Manager) HasAnyPermission(codes []string) bool {
	return permission.HasAny(m.Snapshot().Permissions(), codes)
}

// HasAllPermissions reports whether the current session grants every one of codes.
func (m *Manager) HasAllPermissions(codes []string) bool {
	return permission.HasAll(m.Snapshot().Permissions(), codes)
}

// HasRole reports whether the current session has the given role name.
func (m *Manager) HasRole(role string) bool {
	s := m.Session()
	return s != nil && s.RoleName == role
}

// IsSuperAdmin reports whether the session belongs to a super admin.
func (m *Manager) IsSuperAdmin() bool { return m.HasRole(permission.RoleSuperAdmin) }

// IsStateAdmin reports whether the session belongs to a state admin.
func (m *Manager) IsStateAdmin() bool { return m.HasRole(permission.RoleStateAdmin) }

// IsCityAdmin reports whether the session belongs to a city admin.
func (m *Manager) IsCityAdmin() bool { return m.HasRole(permission.RoleCityAdmin) }

// StateID returns the admin's state scope.
func (m *Manager) StateID() (int64, bool) {
	s := m.Session()
	if s == nil || s.Scope.StateID == 0 {
		return 0, false
	}
	return s.Scope.StateID, true
}

// StateName returns the name of the admin's state scope.
func (m *Manager) StateName() (string, bool) {
	s := m.Session()
	if s == nil || s.Scope.StateName == "" {
		return "", false
	}
	return s.Scope.StateName, true
}

// CityID returns the admin's city scope.
func (m *Manager) CityID() (int64, bool) {
	s := m.Session()
	if s == nil || s.Scope.CityID == 0 {
		return 0, false
	}
	return s.Scope.CityID, true
}

// CityName returns the name of the admin's city scope.
func (m *Manager) CityName() (string, bool) {
	s := m.Session()
	if s == nil || s.Scope.CityName == "" {
		return "", false
	}
	return s.Scope.CityName, true
}

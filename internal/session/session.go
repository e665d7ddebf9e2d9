// Package session defines the authenticated admin session and the stores that
// mirror it across process restarts.
//
// A Session is owned by the auth manager. Stores only persist and reconstruct
// it: they never validate tokens or talk to the network.
package session

import (
	"strings"
	"time"

	"github.com/felixgeelhaar/candidash/internal/permission"
)

// Scope is the administrative partition (state and city) an admin acts on.
// Zero IDs mean the admin is not restricted at that level.
type Scope struct {
	StateID   int64  `json:"stateId,omitempty"`
	StateName string `json:"stateName,omitempty"`
	CityID    int64  `json:"cityId,omitempty"`
	CityName  string `json:"cityName,omitempty"`
}

// Session is an authenticated admin identity together with its permission set.
//
// Sessions are replaced as a whole. Permissions are fixed for the lifetime of
// the session and only change through a new login.
type Session struct {
	UserID      int64     `json:"userId"`
	Username    string    `json:"username"`
	FirstName   string    `json:"firstName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
	Email       string    `json:"email,omitempty"`
	RoleName    string    `json:"roleName"`
	Scope       Scope     `json:"scope"`
	Permissions []string  `json:"permissions"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DisplayName returns the admin's full name, falling back to the username.
func (s *Session) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.Username
	}
	return name
}

// PermissionSet returns the session's permissions as an evaluator set.
func (s *Session) PermissionSet() permission.Set {
	if s == nil {
		return permission.Set{}
	}
	return permission.NewSet(s.Permissions...)
}

// Expired reports whether the session carries a known expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Permissions = append([]string(nil), s.Permissions...)
	return &c
}

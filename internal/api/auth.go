package api

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/candidash/internal/auth"
	"github.com/felixgeelhaar/candidash/internal/session"
	"github.com/felixgeelhaar/candidash/internal/telemetry"
	"github.com/felixgeelhaar/candidash/internal/transport"
)

// Auth endpoints.
const (
	PathLogin    = "/api/auth/login"
	PathValidate = "/api/auth/validate"
	PathLogout   = "/api/auth/logout"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the backend's reply to a successful login.
type LoginResponse struct {
	UserID      int64    `json:"userId"`
	Username    string   `json:"username"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	RoleName    string   `json:"roleName"`
	StateID     *int64   `json:"stateId"`
	StateName   string   `json:"stateName"`
	CityID      *int64   `json:"cityId"`
	CityName    string   `json:"cityName"`
	Permissions []string `json:"permissions"`
	Token       string   `json:"token"`
	Message     string   `json:"message"`
}

// Session converts the response into a session.
func (r *LoginResponse) Session() *session.Session {
	s := &session.Session{
		UserID:      r.UserID,
		Username:    r.Username,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		RoleName:    r.RoleName,
		Permissions: append([]string(nil), r.Permissions...),
		Token:       r.Token,
		Scope: session.Scope{
			StateName: r.StateName,
			CityName:  r.CityName,
		},
	}
	if r.StateID != nil {
		s.Scope.StateID = *r.StateID
	}
	if r.CityID != nil {
		s.Scope.CityID = *r.CityID
	}
	return s
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// AuthService implements auth.Service over the backend's auth endpoints.
// None of its calls raise the session-expiry signal: a rejection here is the
// answer to the question being asked.
type AuthService struct {
	client *Client
}

var _ auth.Service = (*AuthService)(nil)

// NewAuthService wraps c.
func NewAuthService(c *Client) *AuthService {
	return &AuthService{client: c}
}

// Login posts the credentials. 400 and 401 map to ErrInvalidCredentials with
// the backend's message, 5xx to ErrServiceError, and a 2xx reply that does
// not match the LoginResponse schema to ErrMalformedResponse.
func (a *AuthService) Login(ctx context.Context, username, password string) (sess *session.Session, err error) {
	ctx, span := telemetry.StartAPISpan(ctx, http.MethodPost, PathLogin)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}()

	ctx = transport.WithoutAuthCheck(ctx)
	resp, err := a.client.doRequest(ctx, http.MethodPost, PathLogin, LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest, transport.IsAuthRejection(resp.StatusCode):
		msg := errorMessage(body)
		if msg == "" {
			msg = auth.LoginFailedMessage
		}
		return nil, auth.NewError(auth.ErrInvalidCredentials, msg, map[string]any{"status": resp.StatusCode})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, auth.NewError(auth.ErrServiceError, errorMessage(body), map[string]any{"status": resp.StatusCode})
	}

	var lr LoginResponse
	if err := a.client.decode(SchemaLoginResponse, body, &lr); err != nil {
		return nil, err
	}
	a.client.logger.DebugContext(ctx, "login accepted", "user_id", lr.UserID, "role", lr.RoleName)
	return lr.Session(), nil
}

// ValidateSession asks the backend whether token is still valid. An explicit
// {"valid": false} or a 401/403 is a rejection; anything else that prevents
// a verdict is returned as an error.
func (a *AuthService) ValidateSession(ctx context.Context, token string) (valid bool, err error) {
	ctx, span := telemetry.StartAPISpan(ctx, http.MethodGet, PathValidate)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}()

	ctx = transport.WithoutAuthCheck(ctx)
	resp, err := a.client.doRequest(ctx, http.MethodGet, PathValidate, nil, a.client.withToken(token))
	if err != nil {
		return false, err
	}
	body, err := readBody(resp)
	if err != nil {
		return false, err
	}

	switch {
	case transport.IsAuthRejection(resp.StatusCode):
		return false, nil
	case resp.StatusCode >= 500:
		return false, auth.NewError(auth.ErrServiceError, errorMessage(body), map[string]any{"status": resp.StatusCode})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, auth.NewError(auth.ErrMalformedResponse, errorMessage(body), map[string]any{"status": resp.StatusCode})
	}

	var vr validateResponse
	if err := a.client.decode(SchemaValidateResponse, body, &vr); err != nil {
		return false, err
	}
	return vr.Valid, nil
}

// Logout tells the backend the session is over.
func (a *AuthService) Logout(ctx context.Context, token string) error {
	ctx, span := telemetry.StartAPISpan(ctx, http.MethodPost, PathLogout)
	defer span.End()

	ctx = transport.WithoutAuthCheck(ctx)
	resp, err := a.client.doRequest(ctx, http.MethodPost, PathLogout, nil, a.client.withToken(token))
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
		telemetry.RecordError(span, serr)
		return serr
	}
	telemetry.RecordSuccess(span)
	return nil
}

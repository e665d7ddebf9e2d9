// Package transport provides the HTTP round tripper that decorates backend
// requests with the admin's credentials and raises the session-expiry signal
// when the backend rejects them.
package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/candidash/internal/expiry"
	"github.com/felixgeelhaar/candidash/internal/session"
)

// Header names sent with every authenticated request.
const (
	HeaderAuthorization = "Authorization"
	HeaderUserID        = "X-User-Id"
	HeaderPermissions   = "X-User-Permissions"
	HeaderRequestID     = "X-Request-Id"
)

// DefaultScheme prefixes the token in the Authorization header.
const DefaultScheme = "Bearer"

// Credentials supplies the session whose headers are attached to a request.
// It returns nil when there is no session.
type Credentials interface {
	Session() *session.Session
}

// CredentialsFunc adapts a function to Credentials.
type CredentialsFunc func() *session.Session

// Session implements Credentials.
func (f CredentialsFunc) Session() *session.Session { return f() }

type skipAuthCheckKey struct{}

// WithoutAuthCheck marks ctx so that a 401/403 response to the request does
// not publish a session-expiry signal. Login, validation and logout use it:
// a rejection there is the answer, not a sign that the session died.
func WithoutAuthCheck(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthCheckKey{}, true)
}

func authCheckDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(skipAuthCheckKey{}).(bool)
	return v
}

// ResponseObserver is notified of every completed response. The metrics
// package implements it.
type ResponseObserver interface {
	ObserveResponse(req *http.Request, resp *http.Response, err error, elapsed time.Duration)
}

// Transport is an http.RoundTripper that attaches credentials and publishes
// on the expiry bus when the backend answers 401 or 403.
type Transport struct {
	// Base performs the request. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// Credentials is consulted per request. May be nil.
	Credentials Credentials
	// Bus receives the expiry signal. May be nil.
	Bus *expiry.Bus
	// Scheme prefixes the token. Empty uses DefaultScheme; "-" sends the raw token.
	Scheme string
	// Observer, when set, sees every response.
	Observer ResponseObserver
}

// New returns a Transport over http.DefaultTransport.
func New(creds Credentials, bus *expiry.Bus) *Transport {
	return &Transport{Credentials: creds, Bus: bus}
}

// RoundTrip implements http.RoundTripper. The request is cloned before
// headers are added and the response is returned unchanged.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}

	// A request that carries its own Authorization keeps it.
	if t.Credentials != nil && out.Header.Get(HeaderAuthorization) == "" {
		if s := t.Credentials.Session(); s != nil && s.Token != "" {
			out.Header.Set(HeaderAuthorization, Authorization(t.Scheme, s.Token))
			out.Header.Set(HeaderUserID, strconv.FormatInt(s.UserID, 10))
			out.Header.Set(HeaderPermissions, strings.Join(s.Permissions, ","))
		}
	}

	start := time.Now()
	resp, err := t.base().RoundTrip(out)

	if t.Observer != nil {
		t.Observer.ObserveResponse(out, resp, err, time.Since(start))
	}

	if err == nil && IsAuthRejection(resp.StatusCode) && !authCheckDisabled(out.Context()) && t.Bus != nil {
		t.Bus.Publish()
	}

	return resp, err
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// Authorization formats the Authorization header value for token. An empty
// scheme uses DefaultScheme and "-" sends the raw token.
func Authorization(scheme, token string) string {
	switch scheme {
	case "":
		return DefaultScheme + " " + token
	case "-":
		return token
	default:
		return scheme + " " + token
	}
}

// IsAuthRejection reports whether status means the backend refused the
// session.
func IsAuthRejection(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

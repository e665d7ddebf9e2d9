// Package gate turns an auth snapshot and a permission requirement into an
// access decision for console routes and individual components.
package gate

import (
	"net/url"
	"strings"

	"github.com/felixgeelhaar/candidash/internal/auth"
	"github.com/felixgeelhaar/candidash/internal/permission"
)

// Decision is the outcome of a route check.
type Decision string

const (
	// Allow grants access to the target.
	Allow Decision = "ALLOW"
	// RedirectLogin sends an unauthenticated caller to the login page.
	RedirectLogin Decision = "REDIRECT_LOGIN"
	// RedirectUnauthorized sends an authenticated caller without the
	// required permissions to the unauthorized page.
	RedirectUnauthorized Decision = "REDIRECT_UNAUTHORIZED"
	// Pending means a persisted session is still being validated; render a
	// loading indicator and check again.
	Pending Decision = "PENDING"
)

// ComponentDecision is the outcome of a component check.
type ComponentDecision string

const (
	Show ComponentDecision = "SHOW"
	Hide ComponentDecision = "HIDE"
)

// Default redirect targets.
const (
	DefaultLoginPath        = "/login"
	DefaultUnauthorizedPath = "/unauthorized"
	DefaultLandingPath      = "/dashboard"
)

// Observer is notified of every decision. kind is "route" or "component".
type Observer interface {
	ObserveDecision(kind string, d Decision)
}

// Decide is the single decision function shared by route and component gates.
//
// A nil requirement means "no requirement" and allows any authenticated
// caller; it is checked before the requirement's code list is consulted.
func Decide(snap auth.Snapshot, req *permission.Requirement) Decision {
	if snap.State == auth.StateValidating {
		return Pending
	}
	if !snap.Authenticated() {
		return RedirectLogin
	}
	if req == nil {
		return Allow
	}
	if !req.SatisfiedBy(snap.Permissions()) {
		return RedirectUnauthorized
	}
	return Allow
}

// Component maps a decision onto show/hide. Anything short of Allow hides
// the component, including Pending.
func Component(snap auth.Snapshot, req *permission.Requirement) ComponentDecision {
	if Decide(snap, req) == Allow {
		return Show
	}
	return Hide
}

// Render returns content when the component would be shown and fallback
// otherwise. Pass the zero value of T for "render nothing".
func Render[T any](snap auth.Snapshot, req *permission.Requirement, content, fallback T) T {
	if Component(snap, req) == Show {
		return content
	}
	return fallback
}

// Result is the outcome of RouteGate.Check.
type Result struct {
	Decision Decision
	// Redirect is where the caller should be sent. Empty for Allow and
	// Pending on a known route.
	Redirect string
	// AttemptedPath is the path the caller asked for.
	AttemptedPath string
	// Route is the matched route, nil when the path is unknown.
	Route *Route
}

// RouteGate guards console routes.
type RouteGate struct {
	LoginPath        string
	UnauthorizedPath string
	LandingPath      string
	Routes           *Table
	Observer         Observer
}

// New returns a RouteGate over routes with the default redirect targets.
func New(routes *Table) *RouteGate {
	return &RouteGate{
		LoginPath:        DefaultLoginPath,
		UnauthorizedPath: DefaultUnauthorizedPath,
		LandingPath:      DefaultLandingPath,
		Routes:           routes,
	}
}

// Check decides whether the snapshot may open path.
//
// Public routes are always allowed. Unknown paths require authentication
// only and redirect to the landing page once allowed.
func (g *RouteGate) Check(snap auth.Snapshot, path string) Result {
	res := Result{AttemptedPath: path}

	var req *permission.Requirement
	route, ok := g.Routes.Match(path)
	if ok {
		res.Route = &route
		req = route.Requirement
	}

	switch {
	case ok && route.Public:
		res.Decision = Allow
	default:
		res.Decision = Decide(snap, req)
	}

	switch res.Decision {
	case RedirectLogin:
		res.Redirect = LoginRedirect(g.loginPath(), path)
	case RedirectUnauthorized:
		res.Redirect = g.unauthorizedPath()
	case Allow:
		if !ok {
			res.Redirect = g.landingPath()
		}
	}

	if g.Observer != nil {
		g.Observer.ObserveDecision("route", res.Decision)
	}
	return res
}

// CheckComponent decides whether a component guarded by req is shown.
func (g *RouteGate) CheckComponent(snap auth.Snapshot, req *permission.Requirement) ComponentDecision {
	d := Decide(snap, req)
	if g.Observer != nil {
		g.Observer.ObserveDecision("component", d)
	}
	if d == Allow {
		return Show
	}
	return Hide
}

func (g *RouteGate) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

func (g *RouteGate) unauthorizedPath() string {
	if g.UnauthorizedPath == "" {
		return DefaultUnauthorizedPath
	}
	return g.UnauthorizedPath
}

func (g *RouteGate) landingPath() string {
	if g.LandingPath == "" {
		return DefaultLandingPath
	}
	return g.LandingPath
}

// LoginRedirect builds the login URL that remembers the attempted path.
func LoginRedirect(loginPath, attempted string) string {
	if attempted == "" {
		return loginPath
	}
	return loginPath + "?" + url.Values{"from": {attempted}}.Encode()
}

// ReturnPath recovers the attempted path from a login redirect. It returns
// "/" when the redirect carries none or when the value is not a local path.
func ReturnPath(redirect string) string {
	u, err := url.Parse(redirect)
	if err != nil {
		return "/"
	}
	from := u.Query().Get("from")
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") {
		return "/"
	}
	return from
}

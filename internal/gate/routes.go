package gate

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/felixgeelhaar/candidash/internal/permission"
)

// Route is a console route and the permission it requires.
type Route struct {
	Path        string
	Name        string
	Requirement *permission.Requirement
	// Public routes are reachable without a session.
	Public bool
}

// Table resolves paths to routes by longest matching path prefix.
type Table struct {
	routes []Route
}

// NewTable builds a table. Paths are normalized to a leading slash without a
// trailing one; duplicate paths are rejected.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{}
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		r.Path = cleanPath(r.Path)
		if seen[r.Path] {
			return nil, fmt.Errorf("duplicate route %q", r.Path)
		}
		seen[r.Path] = true
		t.routes = append(t.routes, r)
	}
	// Longest first so the first hit in Match is the most specific one.
	sort.SliceStable(t.routes, func(i, j int) bool {
		return len(t.routes[i].Path) > len(t.routes[j].Path)
	})
	return t, nil
}

// DefaultRoutes returns the admin console routes.
func DefaultRoutes() *Table {
	t, err := NewTable(
		Route{Path: "/login", Name: "login", Public: true},
		Route{Path: "/unauthorized", Name: "unauthorized", Public: true},
		Route{Path: "/individualsignup", Name: "individual-signup", Public: true},
		Route{Path: "/onboard", Name: "onboard", Public: true},

		Route{Path: "/", Name: "index"},
		Route{Path: "/dashboard", Name: "dashboard"},
		Route{Path: "/customers", Name: "customers"},
		Route{Path: "/locations", Name: "locations"},
		Route{Path: "/settings", Name: "settings"},
		Route{Path: "/notifications", Name: "notifications"},
		Route{Path: "/reports", Name: "reports"},
		Route{Path: "/onboarding", Name: "onboarding"},

		Route{Path: "/under-screening", Name: "under-screening", Requirement: permission.Require(permission.ScreeningView)},
		Route{Path: "/orientation", Name: "orientation", Requirement: permission.Require(permission.ScreeningView)},
		Route{Path: "/enroll", Name: "enroll", Requirement: permission.Require(permission.ScreeningManage)},
		Route{Path: "/admin-management", Name: "admin-management", Requirement: permission.Require(permission.AdminManage)},
		Route{Path: "/role-management", Name: "role-management", Requirement: permission.Require(permission.RoleManage)},
		Route{Path: "/permission-management", Name: "permission-management", Requirement: permission.Require(permission.PermissionManage)},
		Route{Path: "/training-master", Name: "training-master", Requirement: permission.Require(permission.TrainingManage)},
		Route{Path: "/training-batches", Name: "training-batches", Requirement: permission.Require(permission.TrainingManage)},
		Route{Path: "/training-calendar", Name: "training-calendar", Requirement: permission.Require(permission.TrainingView)},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Match returns the route for path. Query strings and fragments are ignored,
// and a route matches its own path and anything below it. The root route
// only matches "/" exactly.
func (t *Table) Match(path string) (Route, bool) {
	if t == nil {
		return Route{}, false
	}
	p := cleanPath(stripQuery(path))
	for _, r := range t.routes {
		if r.Path == "/" {
			if p == "/" {
				return r, true
			}
			continue
		}
		if p == r.Path || strings.HasPrefix(p, r.Path+"/") {
			return r, true
		}
	}
	return Route{}, false
}

// Lookup finds a route by name.
func (t *Table) Lookup(name string) (Route, bool) {
	if t == nil {
		return Route{}, false
	}
	for _, r := range t.routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Routes returns the routes sorted by path.
func (t *Table) Routes() []Route {
	if t == nil {
		return nil
	}
	out := append([]Route(nil), t.routes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func stripQuery(path string) string {
	if u, err := url.Parse(path); err == nil {
		return u.Path
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

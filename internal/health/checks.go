package health

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/felixgeelhaar/candidash/internal/auth"
	"github.com/felixgeelhaar/candidash/internal/config"
	"github.com/felixgeelhaar/candidash/internal/session"
)

// Check names.
const (
	NameConfig  = "config"
	NameSession = "session"
	NameBackend = "backend"
)

// NewConfigChecker validates cfg. A backend reached over plain http on a
// non-loopback host is reported as degraded since the token travels in clear.
func NewConfigChecker(cfg *config.Config, sources []string) Checker {
	return CheckFunc{CheckName: NameConfig, Fn: func(context.Context) *Result {
		if err := cfg.Validate(); err != nil {
			return Unhealthy(err.Error())
		}

		var r *Result
		if insecureRemote(cfg.APIURL) {
			r = Degraded("backend is reached over plain http")
		} else {
			r = Healthy("configuration is valid")
		}
		return r.WithDetail("api_url", cfg.APIURL).
			WithDetail("session_backend", cfg.Session.Backend).
			WithDetail("sources", sources)
	}}
}

func insecureRemote(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return false
	}
	ip := net.ParseIP(host)
	return ip == nil || !ip.IsLoopback()
}

// NewSessionChecker reads the persisted session without validating it
// against the backend.
func NewSessionChecker(store session.Store, now func() time.Time) Checker {
	if now == nil {
		now = time.Now
	}
	return CheckFunc{CheckName: NameSession, Fn: func(ctx context.Context) *Result {
		s, err := store.Load(ctx)
		switch {
		case errors.Is(err, session.ErrNotFound):
			return Healthy("no session stored")
		case errors.Is(err, session.ErrCorrupt):
			return Degraded("stored session is corrupt and will be discarded").WithDetail("error", err.Error())
		case err != nil:
			return Unhealthy("session store unreadable").WithDetail("error", err.Error())
		}

		if auth.TokenExpired(s.Token, now()) {
			return Degraded("stored session has expired, log in again").WithDetail("username", s.Username)
		}
		r := Healthy("session stored for "+s.Username).WithDetail("username", s.Username)
		if exp, ok := auth.TokenExpiry(s.Token); ok {
			r.WithDetail("expires_at", exp.UTC().Format(time.RFC3339))
		}
		return r
	}}
}

// Pinger reaches the backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewBackendChecker reports whether the backend at apiURL answers.
func NewBackendChecker(p Pinger, apiURL string) Checker {
	return CheckFunc{CheckName: NameBackend, Fn: func(ctx context.Context) *Result {
		start := time.Now()
		err := p.Ping(ctx)
		latency := time.Since(start)
		if err != nil {
			return Unhealthy("backend unreachable").
				WithDetail("api_url", apiURL).
				WithDetail("error", err.Error()).
				WithLatency(latency)
		}
		return Healthy("backend reachable").WithDetail("api_url", apiURL).WithLatency(latency)
	}}
}

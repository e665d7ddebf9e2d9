package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/candidash/internal/expiry"
	"github.com/felixgeelhaar/candidash/internal/session"
)

func staticCreds(s *session.Session) Credentials {
	return CredentialsFunc(func() *session.Session { return s })
}

func testSession() *session.Session {
	return &session.Session{
		UserID:      42,
		Token:       "tok-123",
		Permissions: []string{"SCREENING_VIEW", "TRAINING_VIEW"},
	}
}

type countingObserver struct {
	statuses []int
}

func (c *countingObserver) ObserveResponse(_ *http.Request, resp *http.Response, err error, _ time.Duration) {
	if err == nil {
		c.statuses = append(c.statuses, resp.StatusCode)
	}
}

func TestTransport_AttachesCredentials(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: New(staticCreds(testSession()), nil)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer tok-123", got.Get(HeaderAuthorization))
	assert.Equal(t, "42", got.Get(HeaderUserID))
	assert.Equal(t, "SCREENING_VIEW,TRAINING_VIEW", got.Get(HeaderPermissions))
	assert.Len(t, got.Get(HeaderRequestID), 36)
}

func TestTransport_Scheme(t *testing.T) {
	tests := []struct {
		scheme string
		want   string
	}{
		{"", "Bearer tok-123"},
		{"Token", "Token tok-123"},
		{"-", "tok-123"},
	}
	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(HeaderAuthorization)
			}))
			defer srv.Close()

			tr := New(staticCreds(testSession()), nil)
			tr.Scheme = tt.scheme
			resp, err := (&http.Client{Transport: tr}).Get(srv.URL)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransport_NoSessionNoAuthHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	resp, err := (&http.Client{Transport: New(staticCreds(nil), nil)}).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, got.Get(HeaderAuthorization))
	assert.Empty(t, got.Get(HeaderUserID))
	assert.NotEmpty(t, got.Get(HeaderRequestID))
}

func TestTransport_PublishesOnRejection(t *testing.T) {
	tests := []struct {
		status  int
		publish bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			bus := expiry.New()
			signals := 0
			bus.Subscribe(func() { signals++ })

			resp, err := (&http.Client{Transport: New(staticCreds(testSession()), bus)}).Get(srv.URL)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode, "response is passed through")
			if tt.publish {
				assert.Equal(t, 1, signals)
			} else {
				assert.Zero(t, signals)
			}
		})
	}
}

func TestTransport_WithoutAuthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	bus := expiry.New()
	signals := 0
	bus.Subscribe(func() { signals++ })

	req, err := http.NewRequestWithContext(WithoutAuthCheck(context.Background()), http.MethodPost, srv.URL, nil)
	require.NoError(t, err)
	resp, err := (&http.Client{Transport: New(staticCreds(testSession()), bus)}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, signals)
}

func TestTransport_DoesNotMutateCallerRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := New(staticCreds(testSession()), nil).RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get(HeaderAuthorization))
}

func TestTransport_KeepsCallerRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(HeaderRequestID)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(HeaderRequestID, "fixed-id")
	resp, err := (&http.Client{Transport: New(nil, nil)}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "fixed-id", got)
}

func TestTransport_Observer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	obs := &countingObserver{}
	tr := New(nil, nil)
	tr.Observer = obs
	resp, err := (&http.Client{Transport: tr}).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []int{http.StatusTeapot}, obs.statuses)
}

func TestTransport_ExplicitAuthorizationWins(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(HeaderAuthorization, Authorization("", "persisted"))
	resp, err := (&http.Client{Transport: New(staticCreds(testSession()), nil)}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer persisted", got.Get(HeaderAuthorization))
	assert.Empty(t, got.Get(HeaderUserID))
}

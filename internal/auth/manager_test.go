package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/candidash/internal/permission"
	"github.com/felixgeelhaar/candidash/internal/session"
)

// fakeService is a scriptable Service. When gate is non-nil, Login blocks
// until a value is sent on it, which lets tests interleave other calls.
type fakeService struct {
	mu sync.Mutex

	loginSession *session.Session
	loginErr     error
	gate         chan struct{}
	loginCalls   int

	valid       bool
	validateErr error
	validated   []string

	logoutErr   error
	logoutCalls []string
}

func (f *fakeService) Login(ctx context.Context, username, password string) (*session.Session, error) {
	f.mu.Lock()
	f.loginCalls++
	gate := f.gate
	sess, err := f.loginSession, f.loginErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

func (f *fakeService) ValidateSession(ctx context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validated = append(f.validated, token)
	return f.valid, f.validateErr
}

func (f *fakeService) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls = append(f.logoutCalls, token)
	return f.logoutErr
}

// failingStore wraps a MemoryStore and fails chosen operations.
type failingStore struct {
	*session.MemoryStore
	saveErr  error
	loadErr  error
	clearErr error
}

func (s *failingStore) Save(ctx context.Context, sess *session.Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, sess)
}

func (s *failingStore) Load(ctx context.Context) (*session.Session, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.MemoryStore.Load(ctx)
}

func (s *failingStore) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.MemoryStore.Clear(ctx)
}

// blockingStore holds the first Save until release is closed.
type blockingStore struct {
	*session.MemoryStore
	saving  chan struct{}
	release chan struct{}
}

func (s *blockingStore) Save(ctx context.Context, sess *session.Session) error {
	close(s.saving)
	<-s.release
	return s.MemoryStore.Save(ctx, sess)
}

func adminSession() *session.Session {
	return &session.Session{
		UserID:      7,
		Username:    "admin",
		FirstName:   "Meera",
		RoleName:    permission.RoleStateAdmin,
		Scope:       session.Scope{StateID: 29, StateName: "Karnataka", CityID: 0},
		Permissions: []string{permission.ScreeningView, permission.TrainingView},
		Token:       "opaque-token",
	}
}

func recordTransitions(m *Manager) *[]Transition {
	var got []Transition
	var mu sync.Mutex
	m.Watch(func(t Transition) {
		mu.Lock()
		got = append(got, t)
		mu.Unlock()
	})
	return &got
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{loginSession: adminSession()}
	store := session.NewMemoryStore()
	m := NewManager(svc, store)
	transitions := recordTransitions(m)

	sess, err := m.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)
	assert.False(t, sess.CreatedAt.IsZero())

	assert.Equal(t, StateAuthenticated, m.State())
	assert.True(t, m.IsAuthenticated())

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", persisted.Token)

	assert.Equal(t, []Transition{
		{From: StateUnauthenticated, To: StateAuthenticating, Reason: ReasonLoginStarted},
		{From: StateAuthenticating, To: StateAuthenticated, Reason: ReasonLogin},
	}, *transitions)
}

func TestLogin_SetsExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	sess := adminSession()
	sess.Token = signedToken(t, exp)

	m := NewManager(&fakeService{loginSession: sess}, session.NewMemoryStore())
	got, err := m.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(exp), "expected %v, got %v", exp, got.ExpiresAt)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{loginErr: NewError(ErrInvalidCredentials, "Invalid credentials", nil)}
	store := session.NewMemoryStore()
	m := NewManager(svc, store)

	sess, err := m.Login(ctx, "admin", "wrong")
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.True(t, IsAuthError(err, ErrInvalidCredentials))
	assert.Equal(t, "Invalid credentials", Message(err))

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.False(t, m.IsAuthenticated())
	_, loadErr := store.Load(ctx)
	assert.ErrorIs(t, loadErr, session.ErrNotFound)
}

func TestLogin_FailedReloginKeepsSession(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{loginSession: adminSession()}
	store := session.NewMemoryStore()
	m := NewManager(svc, store)

	_, err := m.Login(ctx, "admin", "secret")
	require.NoError(t, err)

	svc.mu.Lock()
	svc.loginErr = NewError(ErrNetwork, "backend unreachable", nil)
	svc.mu.Unlock()

	_, err = m.Login(ctx, "admin", "secret")
	require.Error(t, err)
	assert.True(t, IsAuthError(err, ErrNetwork))

	assert.Equal(t, StateAuthenticated, m.State())
	assert.True(t, m.HasPermission(permission.ScreeningView))
	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", persisted.Token)
}

func TestLogin_UntypedServiceErrorIsWrapped(t *testing.T) {
	m := NewManager(&fakeService{loginErr: errors.New("boom")}, session.NewMemoryStore())

	_, err := m.Login(context.Background(), "admin", "secret")
	assert.True(t, IsAuthError(err, ErrServiceError))
}

func TestLogin_EmptyTokenIsMalformed(t *testing.T) {
	sess := adminSession()
	sess.Token = ""
	m := NewManager(&fakeService{loginSession: sess}, session.NewMemoryStore())

	_, err := m.Login(context.Background(), "admin", "secret")
	assert.True(t, IsAuthError(err, ErrMalformedResponse))
	assert.Equal(t, StateUnauthenticated, m.State())
}

func TestLogin_StoreFailure(t *testing.T) {
	store := &failingStore{MemoryStore: session.NewMemoryStore(), saveErr: errors.New("disk full")}
	m := NewManager(&fakeService{loginSession: adminSession()}, store)

	_, err := m.Login(context.Background(), "admin", "secret")
	assert.True(t, IsAuthError(err, ErrSessionStoreFailed))
	assert.Equal(t, StateUnauthenticated, m.State())
}

func TestLogin_StaleResultAfterLogout(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	svc := &fakeService{loginSession: adminSession(), gate: gate}
	store := session.NewMemoryStore()
	m := NewManager(svc, store)

	type result struct {
		sess *session.Session
		err  error
	}
	done := make(chan result, 1)
	go func() {
		s, err := m.Login(ctx, "admin", "secret")
		done <- result{s, err}
	}()

	require.Eventually(t, func() bool { return m.State() == StateAuthenticating }, time.Second, time.Millisecond)

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, StateUnauthenticated, m.State())

	close(gate)
	res := <-done

	assert.Nil(t, res.sess)
	assert.True(t, IsAuthError(res.err, ErrLoginSuperseded))
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.False(t, m.IsAuthenticated())
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestLogin_NewerAttemptSupersedesOlder(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	svc := &fakeService{loginSession: adminSession(), gate: gate}
	m := NewManager(svc, session.NewMemoryStore())

	first := make(chan error, 1)
	go func() {
		_, err := m.Login(ctx, "admin", "secret")
		first <- err
	}()
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.loginCalls == 1
	}, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := m.Login(ctx, "admin", "secret")
		second <- err
	}()
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.loginCalls == 2
	}, time.Second, time.Millisecond)

	gate <- struct{}{}
	gate <- struct{}{}

	errs := []error{<-first, <-second}
	superseded := 0
	for _, err := range errs {
		if IsAuthError(err, ErrLoginSuperseded) {
			superseded++
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Equal(t, 1, superseded)
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestOnSessionExpired_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	m := NewManager(&fakeService{loginSession: adminSession()}, store)
	_, err := m.Login(ctx, "admin", "secret")
	require.NoError(t, err)

	transitions := recordTransitions(m)

	m.OnSessionExpired()
	afterOne := m.Snapshot()
	m.OnSessionExpired()
	afterTwo := m.Snapshot()

	assert.Equal(t, afterOne, afterTwo)
	assert.Equal(t, StateUnauthenticated, afterTwo.State)
	assert.Nil(t, afterTwo.Session)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.Len(t, *transitions, 1)
	assert.Equal(t, Transition{From: StateAuthenticated, To: StateUnauthenticated, Reason: ReasonExpired}, (*transitions)[0])
}

func TestOnSessionExpired_DuringLoginDropsFallback(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{loginSession: adminSession()}
	m := NewManager(svc, session.NewMemoryStore())
	_, err := m.Login(ctx, "admin", "secret")
	require.NoError(t, err)

	gate := make(chan struct{})
	svc.mu.Lock()
	svc.gate = gate
	svc.loginErr = NewError(ErrInvalidCredentials, "Invalid credentials", nil)
	svc.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := m.Login(ctx, "admin", "wrong")
		done <- err
	}()
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.loginCalls == 2
	}, time.Second, time.Millisecond)

	m.OnSessionExpired()
	assert.Equal(t, StateAuthenticating, m.State())
	assert.False(t, m.IsAuthenticated())

	close(gate)
	assert.True(t, IsAuthError(<-done, ErrInvalidCredentials))
	assert.Equal(t, StateUnauthenticated, m.State())
}

func TestLogout_WaitsForPersistInFlight(t *testing.T) {
	ctx := context.Background()
	store := &blockingStore{
		MemoryStore: session.NewMemoryStore(),
		saving:      make(chan struct{}),
		release:     make(chan struct{}),
	}
	m := NewManager(&fakeService{loginSession: adminSession()}, store)

	loginDone := make(chan error, 1)
	go func() {
		_, err := m.Login(ctx, "asha", "pw")
		loginDone <- err
	}()
	<-store.saving

	logoutDone := make(chan error, 1)
	go func() { logoutDone <- m.Logout(ctx) }()

	select {
	case <-logoutDone:
		t.Fatal("logout finished while the session was being persisted")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-loginDone)
	require.NoError(t, <-logoutDone)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound, "logout must not be overtaken by the login's write")
	assert.Equal(t, StateUnauthenticated, m.State())
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{loginSession: adminSession(), logoutErr: errors.New("server down")}
	store := session.NewMemoryStore()
	m := NewManager(svc, store)
	_, err := m.Login(ctx, "admin", "secret")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Equal(t, []string{"opaque-token"}, svc.logoutCalls)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// Logging out again is harmless and skips the server call.
	require.NoError(t, m.Logout(ctx))
	assert.Len(t, svc.logoutCalls, 1)
}

func TestLogout_ClearFailure(t *testing.T) {
	store := &failingStore{MemoryStore: session.NewMemoryStore(), clearErr: errors.New("read-only")}
	m := NewManager(&fakeService{}, store)

	err := m.Logout(context.Background())
	assert.True(t, IsAuthError(err, ErrSessionStoreFailed))
	assert.Equal(t, StateUnauthenticated, m.State())
}

func TestBootstrap(t *testing.T) {
	tests := []struct {
		name        string
		persisted   *session.Session
		loadErr     error
		valid       bool
		validateErr error
		wantState   State
		wantCode    string
		wantStored  bool
		wantCalls   int
	}{
		{
			name:      "no persisted session",
			wantState: StateUnauthenticated,
		},
		{
			name:      "corrupt persisted session",
			loadErr:   session.ErrCorrupt,
			wantState: StateUnauthenticated,
		},
		{
			name:      "store unavailable",
			loadErr:   errors.New("permission denied"),
			wantState: StateUnauthenticated,
			wantCode:  ErrSessionStoreFailed,
		},
		{
			name:       "valid session",
			persisted:  adminSession(),
			valid:      true,
			wantState:  StateAuthenticated,
			wantStored: true,
			wantCalls:  1,
		},
		{
			name:      "rejected session",
			persisted: adminSession(),
			valid:     false,
			wantState: StateUnauthenticated,
			wantCode:  ErrValidationFailed,
			wantCalls: 1,
		},
		{
			name:        "malformed validation reply",
			persisted:   adminSession(),
			validateErr: NewError(ErrMalformedResponse, "bad body", nil),
			wantState:   StateUnauthenticated,
			wantCode:    ErrValidationFailed,
			wantCalls:   1,
		},
		{
			name:        "network error keeps session",
			persisted:   adminSession(),
			validateErr: NewError(ErrNetwork, "connection refused", nil),
			wantState:   StateAuthenticated,
			wantStored:  true,
			wantCalls:   1,
		},
		{
			name:        "server error keeps session",
			persisted:   adminSession(),
			validateErr: NewError(ErrServiceError, "503", nil),
			wantState:   StateAuthenticated,
			wantStored:  true,
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := &failingStore{MemoryStore: session.NewMemoryStore(), loadErr: tt.loadErr}
			if tt.persisted != nil {
				require.NoError(t, store.MemoryStore.Save(ctx, tt.persisted))
			}
			svc := &fakeService{valid: tt.valid, validateErr: tt.validateErr}
			m := NewManager(svc, store)

			err := m.Bootstrap(ctx)
			if tt.wantCode == "" {
				require.NoError(t, err)
			} else {
				assert.True(t, IsAuthError(err, tt.wantCode), "got %v", err)
			}

			assert.Equal(t, tt.wantState, m.State())
			assert.Len(t, svc.validated, tt.wantCalls)

			_, loadErr := store.MemoryStore.Load(ctx)
			if tt.wantStored {
				assert.NoError(t, loadErr)
			} else if tt.persisted != nil {
				assert.ErrorIs(t, loadErr, session.ErrNotFound)
			}
		})
	}
}

func TestBootstrap_LocallyExpiredTokenSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	sess := adminSession()
	sess.Token = signedToken(t, time.Now().Add(-time.Minute))
	require.NoError(t, store.Save(ctx, sess))

	svc := &fakeService{valid: true}
	m := NewManager(svc, store)
	transitions := recordTransitions(m)

	err := m.Bootstrap(ctx)
	assert.True(t, IsAuthError(err, ErrValidationFailed))
	assert.Empty(t, svc.validated)
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Equal(t, []Transition{
		{From: StateUnauthenticated, To: StateValidating, Reason: ReasonBootstrap},
		{From: StateValidating, To: StateUnauthenticated, Reason: ReasonValidationFailed},
	}, *transitions)
}

func TestBootstrap_SecondCallIsNoop(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(ctx, adminSession()))
	svc := &fakeService{valid: true}
	m := NewManager(svc, store)

	require.NoError(t, m.Bootstrap(ctx))
	require.NoError(t, m.Bootstrap(ctx))
	assert.Len(t, svc.validated, 1)
}

func TestDerivedQueries(t *testing.T) {
	m := NewManager(&fakeService{loginSession: adminSession()}, session.NewMemoryStore())

	assert.False(t, m.HasPermission(permission.ScreeningView))
	assert.False(t, m.IsStateAdmin())
	_, ok := m.StateID()
	assert.False(t, ok)
	assert.Nil(t, m.Session())

	_, err := m.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)

	assert.True(t, m.HasPermission(permission.ScreeningView))
	assert.False(t, m.HasPermission(permission.ScreeningManage))
	assert.True(t, m.HasAnyPermission([]string{permission.ScreeningManage, permission.TrainingView}))
	assert.False(t, m.HasAnyPermission(nil))
	assert.True(t, m.HasAllPermissions([]string{permission.ScreeningView, permission.TrainingView}))
	assert.True(t, m.HasAllPermissions(nil))

	assert.True(t, m.IsStateAdmin())
	assert.False(t, m.IsSuperAdmin())
	assert.False(t, m.IsCityAdmin())

	id, ok := m.StateID()
	assert.True(t, ok)
	assert.Equal(t, int64(29), id)
	name, ok := m.StateName()
	assert.True(t, ok)
	assert.Equal(t, "Karnataka", name)
	_, ok = m.CityID()
	assert.False(t, ok)
	_, ok = m.CityName()
	assert.False(t, ok)

	// The returned session is a copy.
	s := m.Session()
	s.Permissions[0] = "MUTATED"
	assert.True(t, m.HasPermission(permission.ScreeningView))
}

func TestWatch_Unwatch(t *testing.T) {
	m := NewManager(&fakeService{loginSession: adminSession()}, session.NewMemoryStore())
	calls := 0
	unwatch := m.Watch(func(Transition) { calls++ })

	_, err := m.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	unwatch()
	unwatch()
	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, 2, calls)
}

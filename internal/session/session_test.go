package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/tokenstore"
)

type fakeGateway struct {
	mu       sync.Mutex
	loginErr error
	meErr    error
	token    string
	user     countries.User
	calls    []string
	meToken  func() string
	seenMe   []string
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	g.mu.Unlock()
}

func (g *fakeGateway) Login(_ context.Context, creds countries.Credentials) (countries.AuthResponse, error) {
	g.record("login:" + creds.Email)
	if g.loginErr != nil {
		return countries.AuthResponse{}, g.loginErr
	}
	return countries.AuthResponse{Token: g.token, User: g.user}, nil
}

func (g *fakeGateway) Register(_ context.Context, reg countries.Registration) (countries.AuthResponse, error) {
	g.record("register:" + reg.Username)
	if g.loginErr != nil {
		return countries.AuthResponse{}, g.loginErr
	}
	return countries.AuthResponse{Token: g.token, User: g.user}, nil
}

func (g *fakeGateway) Me(context.Context) (countries.User, error) {
	g.record("me")
	if g.meToken != nil {
		g.mu.Lock()
		g.seenMe = append(g.seenMe, g.meToken())
		g.mu.Unlock()
	}
	if g.meErr != nil {
		return countries.User{}, g.meErr
	}
	return g.user, nil
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

type memStore struct {
	mu      sync.Mutex
	token   string
	saveErr error
	loadErr error
	clears  int
}

func (s *memStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.loadErr
}

func (s *memStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.token = token
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.clears++
	return nil
}

type recordingDependent struct {
	holder    *Holder
	refreshes int
	clears    int
	sawUser   bool
	err       error
}

func (d *recordingDependent) Refresh(context.Context) error {
	d.refreshes++
	d.sawUser = d.holder.Snapshot().User != nil
	return d.err
}

func (d *recordingDependent) Clear() { d.clears++ }

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestLogin_PersistsTokenThenIdentityThenDependents(t *testing.T) {
	gw := &fakeGateway{token: "tok-1", user: countries.User{ID: "u1", Username: "ana", Email: "ana@example.com"}}
	store := &memStore{}
	h := New(gw, store)
	gw.meToken = h.Token
	dep := &recordingDependent{holder: h}
	h.Attach(dep)

	user, err := h.Login(context.Background(), " ana@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)

	assert.Equal(t, []string{"login:ana@example.com", "me"}, gw.Calls())
	assert.Equal(t, []string{"tok-1"}, gw.seenMe, "identity fetch must carry the new token")
	assert.Equal(t, "tok-1", store.token)
	assert.Equal(t, 1, dep.refreshes)
	assert.True(t, dep.sawUser, "dependents refresh after the identity is known")

	snap := h.Snapshot()
	assert.Equal(t, Authenticated, snap.Phase)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
}

func TestLogin_FailureLeavesNoToken(t *testing.T) {
	gw := &fakeGateway{loginErr: &countries.APIError{Status: 401, Message: "Invalid credentials"}}
	store := &memStore{}
	h := New(gw, store)
	dep := &recordingDependent{holder: h}
	h.Attach(dep)

	_, err := h.Login(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	assert.True(t, countries.IsUnauthorized(err))
	assert.Equal(t, "Invalid credentials", countries.UserMessage(err))

	assert.Empty(t, h.Token())
	assert.Empty(t, store.token)
	assert.Zero(t, dep.refreshes)
	snap := h.Snapshot()
	assert.Equal(t, Anonymous, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Error(t, snap.Err)
}

func TestLogin_PersistFailureIsAnError(t *testing.T) {
	gw := &fakeGateway{token: "tok", user: countries.User{ID: "u1"}}
	h := New(gw, &memStore{saveErr: errors.New("disk full")})

	_, err := h.Login(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, h.Token())
	assert.Equal(t, []string{"login:a@b.c"}, gw.Calls())
}

func TestRegister_SignsIn(t *testing.T) {
	gw := &fakeGateway{token: "tok-r", user: countries.User{ID: "u2", Username: "bo"}}
	h := New(gw, &memStore{})

	user, err := h.Register(context.Background(), countries.Registration{Username: " bo ", Email: "bo@x.io", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "u2", user.ID)
	assert.Equal(t, []string{"register:bo", "me"}, gw.Calls())
	assert.Equal(t, Authenticated, h.Snapshot().Phase)
}

func TestLogout_IsIdempotentAndClearsDependents(t *testing.T) {
	gw := &fakeGateway{token: "tok", user: countries.User{ID: "u1"}}
	store := &memStore{}
	h := New(gw, store)
	dep := &recordingDependent{holder: h}
	h.Attach(dep)

	_, err := h.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	h.Logout()
	h.Logout()

	assert.Empty(t, h.Token())
	assert.Empty(t, store.token)
	assert.Equal(t, 2, dep.clears)
	snap := h.Snapshot()
	assert.Equal(t, Anonymous, snap.Phase)
	assert.Nil(t, snap.User)
	assert.Equal(t, []string{"login:a@b.c", "me"}, gw.Calls(), "logout makes no network call")
}

func TestRefreshIdentity_NoTokenClearsLoading(t *testing.T) {
	gw := &fakeGateway{}
	h := New(gw, &memStore{})

	require.NoError(t, h.RefreshIdentity(context.Background()))
	assert.False(t, h.Snapshot().Loading)
	assert.Empty(t, gw.Calls())
}

func TestRefreshIdentity_FailureLogsOut(t *testing.T) {
	gw := &fakeGateway{meErr: &countries.APIError{Status: 401, Message: "Token expired"}}
	store := &memStore{token: "stale"}
	h := New(gw, store)
	dep := &recordingDependent{holder: h}
	h.Attach(dep)

	err := h.Restore(context.Background())
	require.Error(t, err)
	assert.True(t, countries.IsUnauthorized(err))

	assert.Empty(t, h.Token())
	assert.Empty(t, store.token)
	assert.Equal(t, 1, dep.clears)
	assert.Zero(t, dep.refreshes)
	snap := h.Snapshot()
	assert.Equal(t, Anonymous, snap.Phase)
	assert.False(t, snap.Loading)
}

func TestRestore_ExpiredTokenLogsOutWithoutNetwork(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gw := &fakeGateway{user: countries.User{ID: "u1"}}
	store := &memStore{token: signedToken(t, now.Add(-time.Minute))}
	h := New(gw, store, WithClock(func() time.Time { return now }))

	err := h.Restore(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, gw.Calls())
	assert.Empty(t, store.token)
	assert.ErrorIs(t, h.Snapshot().Err, ErrSessionExpired)
}

func TestRestore_ValidTokenAuthenticates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(time.Hour)
	gw := &fakeGateway{user: countries.User{ID: "u1", Username: "ana"}}
	h := New(gw, &memStore{token: signedToken(t, exp)}, WithClock(func() time.Time { return now }))
	dep := &recordingDependent{holder: h}
	h.Attach(dep)

	require.NoError(t, h.Restore(context.Background()))
	snap := h.Snapshot()
	assert.Equal(t, Authenticated, snap.Phase)
	assert.True(t, snap.ExpiresAt.Equal(exp.Truncate(time.Second)))
	assert.Equal(t, 1, dep.refreshes)
}

func TestRestore_OpaqueTokenStillChecksWithServer(t *testing.T) {
	gw := &fakeGateway{user: countries.User{ID: "u1"}}
	h := New(gw, &memStore{token: "not-a-jwt"})

	require.NoError(t, h.Restore(context.Background()))
	assert.Equal(t, []string{"me"}, gw.Calls())
	assert.True(t, h.Snapshot().ExpiresAt.IsZero())
}

func TestHandleExternalChange(t *testing.T) {
	gw := &fakeGateway{token: "tok-a", user: countries.User{ID: "u1"}}
	store := &memStore{}
	h := New(gw, store)
	dep := &recordingDependent{holder: h}
	h.Attach(dep)
	_, err := h.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	// Same token: nothing to do.
	require.NoError(t, h.HandleExternalChange(context.Background(), tokenstore.Change{Old: "", New: "tok-a"}))
	assert.Equal(t, 1, dep.refreshes)

	// Another process signed in as someone else.
	require.NoError(t, h.HandleExternalChange(context.Background(), tokenstore.Change{Old: "tok-a", New: "tok-b"}))
	assert.Equal(t, "tok-b", h.Token())
	assert.Equal(t, 2, dep.refreshes)
	assert.Equal(t, "tok-a", store.token, "external tokens are not re-persisted")

	// Another process logged out.
	require.NoError(t, h.HandleExternalChange(context.Background(), tokenstore.Change{Old: "tok-b", New: ""}))
	assert.Empty(t, h.Token())
	assert.Equal(t, Anonymous, h.Snapshot().Phase)
	assert.Equal(t, 1, dep.clears)
}

func TestSubscribe_ReceivesSnapshotsUntilUnsubscribed(t *testing.T) {
	gw := &fakeGateway{token: "tok", user: countries.User{ID: "u1"}}
	h := New(gw, &memStore{})

	var mu sync.Mutex
	var phases []Phase
	unsubscribe := h.Subscribe(func(s Snapshot) {
		mu.Lock()
		phases = append(phases, s.Phase)
		mu.Unlock()
	})

	_, err := h.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	unsubscribe()
	h.Logout()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, phases)
	assert.Equal(t, Authenticating, phases[0])
	assert.Equal(t, Authenticated, phases[len(phases)-1])
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "authenticating", Authenticating.String())
	assert.Equal(t, "authenticated", Authenticated.String())
}

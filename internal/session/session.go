package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/tokenstore"
)

// ErrSessionExpired is returned when the stored token's exp claim has passed.
var ErrSessionExpired = errors.New("session expired")

// AuthGateway is the subset of the API the holder calls.
type AuthGateway interface {
	Login(ctx context.Context, creds countries.Credentials) (countries.AuthResponse, error)
	Register(ctx context.Context, reg countries.Registration) (countries.AuthResponse, error)
	Me(ctx context.Context) (countries.User, error)
}

// TokenStore persists the token under a fixed key.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Dependent is state derived from the session, such as the favorites set.
// Refresh runs after the identity is confirmed; Clear runs on logout.
type Dependent interface {
	Refresh(ctx context.Context) error
	Clear()
}

// Phase is the session lifecycle state.
type Phase int

const (
	Anonymous Phase = iota
	Authenticating
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Phase     Phase
	User      *countries.User
	Token     string
	Loading   bool
	ExpiresAt time.Time
	Err       error
}

// HasToken reports whether a token is present.
func (s Snapshot) HasToken() bool {
	return s.Token != ""
}

// Holder owns the auth token and current user. It is the single writer of
// the token; the listing engine and favorites reconciler read it through
// Token.
type Holder struct {
	gateway AuthGateway
	store   TokenStore
	log     zerolog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	token     string
	user      *countries.User
	phase     Phase
	loading   bool
	expiresAt time.Time
	lastErr   error
	gen       uint64 // bumped on every token change

	dependents []Dependent
	listeners  map[int]func(Snapshot)
	nextID     int
}

// Option customizes a Holder.
type Option func(*Holder)

// WithLogger sets the holder's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Holder) { h.log = l }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(h *Holder) { h.now = now }
}

// New builds a Holder. It starts anonymous; call Restore to load a stored token.
func New(gateway AuthGateway, store TokenStore, opts ...Option) *Holder {
	h := &Holder{
		gateway:   gateway,
		store:     store,
		log:       zerolog.Nop(),
		now:       time.Now,
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Ensure Holder can feed the API client.
var _ countries.TokenSource = (*Holder)(nil)

// Token implements countries.TokenSource.
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Snapshot returns a copy of the current state.
func (h *Holder) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

func (h *Holder) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:     h.phase,
		Token:     h.token,
		Loading:   h.loading,
		ExpiresAt: h.expiresAt,
		Err:       h.lastErr,
	}
	if h.user != nil {
		u := *h.user
		snap.User = &u
	}
	return snap
}

// Attach registers state that must follow the session.
func (h *Holder) Attach(d Dependent) {
	h.mu.Lock()
	h.dependents = append(h.dependents, d)
	h.mu.Unlock()
}

// Subscribe registers fn to receive a snapshot after every state change.
func (h *Holder) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *Holder) notify() {
	h.mu.RLock()
	snap := h.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Login authenticates, persists the token, then loads the identity and
// refreshes dependents, in that order.
func (h *Holder) Login(ctx context.Context, email, password string) (countries.User, error) {
	creds := countries.Credentials{Email: strings.TrimSpace(email), Password: password}
	return h.authenticate(ctx, "login", func(ctx context.Context) (countries.AuthResponse, error) {
		return h.gateway.Login(ctx, creds)
	})
}

// Register creates an account and signs in with the returned token.
func (h *Holder) Register(ctx context.Context, reg countries.Registration) (countries.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Username = strings.TrimSpace(reg.Username)
	return h.authenticate(ctx, "register", func(ctx context.Context) (countries.AuthResponse, error) {
		return h.gateway.Register(ctx, reg)
	})
}

func (h *Holder) authenticate(ctx context.Context, op string, call func(context.Context) (countries.AuthResponse, error)) (countries.User, error) {
	h.mu.Lock()
	prev := h.phase
	h.phase = Authenticating
	h.loading = true
	h.lastErr = nil
	h.mu.Unlock()
	h.notify()

	resp, err := call(ctx)
	if err == nil {
		if saveErr := h.store.Save(resp.Token); saveErr != nil {
			err = errors.Errorf("persist token: %w", saveErr)
		}
	}
	if err != nil {
		h.mu.Lock()
		h.phase = prev
		h.loading = false
		h.lastErr = err
		h.mu.Unlock()
		h.log.Warn().Err(err).Str("op", op).Msg("authentication failed")
		h.notify()
		return countries.User{}, errors.Errorf("%s: %w", op, err)
	}

	h.setToken(resp.Token)
	h.log.Info().Str("op", op).Msg("token issued")

	if err := h.RefreshIdentity(ctx); err != nil {
		return countries.User{}, errors.Errorf("%s: %w", op, err)
	}
	h.refreshDependents(ctx)

	snap := h.Snapshot()
	if snap.User == nil {
		return resp.User, nil
	}
	return *snap.User, nil
}

// setToken adopts token in memory without persisting it.
func (h *Holder) setToken(token string) {
	h.mu.Lock()
	h.token = token
	h.expiresAt = tokenExpiry(token)
	h.gen++
	h.mu.Unlock()
}

// Logout clears the token, identity, and dependents. It is synchronous,
// idempotent, and makes no network call.
func (h *Holder) Logout() {
	h.mu.Lock()
	wasSignedIn := h.token != "" || h.user != nil
	h.token = ""
	h.user = nil
	h.phase = Anonymous
	h.loading = false
	h.expiresAt = time.Time{}
	h.gen++
	deps := append([]Dependent(nil), h.dependents...)
	h.mu.Unlock()

	if err := h.store.Clear(); err != nil {
		h.log.Warn().Err(err).Msg("clear stored token")
	}
	for _, d := range deps {
		d.Clear()
	}
	if wasSignedIn {
		h.log.Info().Msg("logged out")
	}
	h.notify()
}

// RefreshIdentity fetches the current user for the held token. A failure is
// treated as an invalid session and performs a full Logout. The loading flag
// is cleared on every path.
func (h *Holder) RefreshIdentity(ctx context.Context) error {
	h.mu.Lock()
	token := h.token
	gen := h.gen
	if token == "" {
		h.loading = false
		h.mu.Unlock()
		h.notify()
		return nil
	}
	if exp := h.expiresAt; !exp.IsZero() && !h.now().Before(exp) {
		h.mu.Unlock()
		h.log.Info().Time("expired_at", exp).Msg("stored token expired")
		h.Logout()
		h.setErr(ErrSessionExpired)
		return ErrSessionExpired
	}
	h.loading = true
	if h.phase == Anonymous {
		h.phase = Authenticating
	}
	h.mu.Unlock()
	h.notify()

	user, err := h.gateway.Me(ctx)

	h.mu.Lock()
	if h.gen != gen {
		// The token changed while the request was outstanding; the newer
		// operation owns the state now.
		h.mu.Unlock()
		h.log.Debug().Msg("discarding stale identity response")
		return nil
	}
	if err != nil {
		h.mu.Unlock()
		h.log.Warn().Err(err).Msg("identity fetch failed; logging out")
		h.Logout()
		h.setErr(err)
		return errors.Errorf("fetch identity: %w", err)
	}
	h.user = &user
	h.phase = Authenticated
	h.loading = false
	h.lastErr = nil
	h.mu.Unlock()
	h.notify()
	return nil
}

func (h *Holder) setErr(err error) {
	h.mu.Lock()
	h.lastErr = err
	h.mu.Unlock()
	h.notify()
}

// Restore loads the persisted token and re-establishes the session.
func (h *Holder) Restore(ctx context.Context) error {
	token, err := h.store.Load()
	if err != nil {
		h.log.Warn().Err(err).Msg("load stored token")
		token = ""
	}
	h.setToken(token)
	if err := h.RefreshIdentity(ctx); err != nil {
		return err
	}
	if h.Snapshot().Phase == Authenticated {
		h.refreshDependents(ctx)
	}
	return nil
}

// HandleExternalChange reconciles with a token written or removed by another
// process.
func (h *Holder) HandleExternalChange(ctx context.Context, change tokenstore.Change) error {
	if change.Removed() {
		h.Logout()
		return nil
	}
	if change.New == h.Token() {
		return nil
	}
	h.setToken(change.New)
	if err := h.RefreshIdentity(ctx); err != nil {
		return err
	}
	h.refreshDependents(ctx)
	return nil
}

func (h *Holder) refreshDependents(ctx context.Context) {
	h.mu.RLock()
	deps := append([]Dependent(nil), h.dependents...)
	h.mu.RUnlock()
	for _, d := range deps {
		if err := d.Refresh(ctx); err != nil {
			h.log.Warn().Err(err).Msg("refresh session dependent")
		}
	}
}

// tokenExpiry returns the exp claim of a JWT without verifying it. Opaque
// tokens yield the zero time.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

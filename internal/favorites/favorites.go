package favorites

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/countries"
)

// ErrAuthRequired is returned by Toggle when no token is held. No request is
// made in that case.
var ErrAuthRequired = errors.New("sign in to manage favorites")

// Gateway is the subset of the API the reconciler calls.
type Gateway interface {
	ListFavorites(ctx context.Context) ([]countries.Favorite, error)
	AddFavorite(ctx context.Context, fav countries.Favorite) (countries.Favorite, error)
	RemoveFavorite(ctx context.Context, code string) error
}

// EntryState tells whether an entry is confirmed by the server.
type EntryState int

const (
	Synced EntryState = iota
	PendingAdd
	PendingRemove
)

func (s EntryState) String() string {
	switch s {
	case PendingAdd:
		return "pending-add"
	case PendingRemove:
		return "pending-remove"
	default:
		return "synced"
	}
}

// Entry is one favorite as the user currently sees it.
type Entry struct {
	countries.Favorite
	State EntryState
}

// Snapshot is a copy of the favorites state. Entries holds every visible
// favorite plus any optimistic removal still in flight, in server order
// followed by local additions.
type Snapshot struct {
	Entries []Entry
	Loading bool
	Err     error
}

// Codes returns the codes that count as favorites right now.
func (s Snapshot) Codes() []string {
	out := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.State != PendingRemove {
			out = append(out, e.Code)
		}
	}
	return out
}

type intent struct {
	add bool
	fav countries.Favorite
}

// Reconciler keeps the local favorites set in step with the server. Toggles
// apply optimistically and roll back on failure. Toggles on the same code
// run one at a time; different codes proceed in parallel.
type Reconciler struct {
	gateway Gateway
	tokens  countries.TokenSource
	log     zerolog.Logger

	mu      sync.Mutex
	synced  map[string]countries.Favorite
	order   []string
	pending map[string]intent
	loading bool
	lastErr error

	refreshGen uint64
	epoch      uint64            // bumped by Clear
	mutations  uint64            // bumped by each committed toggle
	touched    map[string]uint64 // code -> mutation that last changed it

	codeMu sync.Mutex
	codes  map[string]*sync.Mutex

	listeners map[int]func(Snapshot)
	nextID    int
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// New builds an empty Reconciler. tokens decides whether the user is signed
// in; it is usually the session holder.
func New(gateway Gateway, tokens countries.TokenSource, opts ...Option) *Reconciler {
	r := &Reconciler{
		gateway:   gateway,
		tokens:    tokens,
		log:       zerolog.Nop(),
		synced:    make(map[string]countries.Favorite),
		pending:   make(map[string]intent),
		touched:   make(map[string]uint64),
		codes:     make(map[string]*sync.Mutex),
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsFavorite reports whether code is currently a favorite, counting
// optimistic changes.
func (r *Reconciler) IsFavorite(code string) bool {
	code = normalizeCode(code)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isMemberLocked(code)
}

func (r *Reconciler) isMemberLocked(code string) bool {
	if in, ok := r.pending[code]; ok {
		return in.add
	}
	_, ok := r.synced[code]
	return ok
}

// State returns the entry state for code and whether it is in the set at
// all, pending removals included.
func (r *Reconciler) State(code string) (EntryState, bool) {
	code = normalizeCode(code)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, synced := r.synced[code]
	in, pending := r.pending[code]
	switch {
	case pending && in.add && !synced:
		return PendingAdd, true
	case pending && !in.add && synced:
		return PendingRemove, true
	case synced:
		return Synced, true
	}
	return Synced, false
}

// List returns the current favorites in display order.
func (r *Reconciler) List() []countries.Favorite {
	snap := r.Snapshot()
	out := make([]countries.Favorite, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		if e.State != PendingRemove {
			out = append(out, e.Favorite)
		}
	}
	return out
}

// Resolve joins the favorites against loaded countries. Codes with no
// loaded country are omitted.
func (r *Reconciler) Resolve(loaded []countries.Country) []countries.Country {
	return ResolveCodes(r.Snapshot().Codes(), loaded)
}

// ResolveCodes returns the loaded countries for codes, in codes order.
// Unknown codes are skipped.
func ResolveCodes(codes []string, loaded []countries.Country) []countries.Country {
	byCode := make(map[string]countries.Country, len(loaded))
	for _, c := range loaded {
		byCode[c.Code()] = c
	}
	var out []countries.Country
	for _, code := range codes {
		if c, ok := byCode[normalizeCode(code)]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Snapshot returns a copy of the current state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() Snapshot {
	snap := Snapshot{Loading: r.loading, Err: r.lastErr}
	for _, code := range r.order {
		fav, synced := r.synced[code]
		in, pending := r.pending[code]
		switch {
		case pending && in.add && !synced:
			snap.Entries = append(snap.Entries, Entry{Favorite: in.fav, State: PendingAdd})
		case pending && !in.add && synced:
			snap.Entries = append(snap.Entries, Entry{Favorite: fav, State: PendingRemove})
		case synced:
			snap.Entries = append(snap.Entries, Entry{Favorite: fav, State: Synced})
		}
	}
	return snap
}

// Subscribe registers fn to receive a snapshot after every state change.
func (r *Reconciler) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	snap := r.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (r *Reconciler) codeLock(code string) *sync.Mutex {
	r.codeMu.Lock()
	defer r.codeMu.Unlock()
	l, ok := r.codes[code]
	if !ok {
		l = &sync.Mutex{}
		r.codes[code] = l
	}
	return l
}

func (r *Reconciler) ensureOrderLocked(code string) {
	for _, c := range r.order {
		if c == code {
			return
		}
	}
	r.order = append(r.order, code)
}

// Toggle flips membership of country. The local set changes immediately;
// the server call follows, and a failure restores the previous membership.
// A successful toggle is followed by a Refresh. It returns whether the
// country was being added.
func (r *Reconciler) Toggle(ctx context.Context, country countries.Country) (bool, error) {
	if r.tokens == nil || r.tokens.Token() == "" {
		return false, ErrAuthRequired
	}
	fav := countries.FavoriteFrom(country)
	fav.Code = normalizeCode(fav.Code)
	if fav.Code == "" {
		return false, errors.New("country has no code")
	}

	lock := r.codeLock(fav.Code)
	lock.Lock()
	defer lock.Unlock()

	// A toggle queued behind another may start after logout.
	if r.tokens.Token() == "" {
		return false, ErrAuthRequired
	}

	r.mu.Lock()
	add := !r.isMemberLocked(fav.Code)
	epoch := r.epoch
	r.pending[fav.Code] = intent{add: add, fav: fav}
	r.ensureOrderLocked(fav.Code)
	r.lastErr = nil
	r.mu.Unlock()
	r.notify()

	var err error
	if add {
		var saved countries.Favorite
		saved, err = r.gateway.AddFavorite(ctx, fav)
		if err == nil && normalizeCode(saved.Code) == fav.Code {
			fav = mergeFavorite(fav, saved)
		}
	} else {
		err = r.gateway.RemoveFavorite(ctx, fav.Code)
	}

	r.mu.Lock()
	if r.epoch != epoch {
		// Cleared by logout while the request was in flight.
		r.mu.Unlock()
		return add, err
	}
	delete(r.pending, fav.Code)
	if err != nil {
		r.lastErr = err
	} else {
		r.mutations++
		r.touched[fav.Code] = r.mutations
		if add {
			r.synced[fav.Code] = fav
		} else {
			delete(r.synced, fav.Code)
		}
	}
	r.mu.Unlock()
	r.notify()

	if err != nil {
		r.log.Warn().Err(err).Str("code", fav.Code).Bool("add", add).Msg("favorite toggle rolled back")
		return add, errors.Errorf("toggle favorite %s: %w", fav.Code, err)
	}
	r.log.Debug().Str("code", fav.Code).Bool("add", add).Msg("favorite toggled")
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn().Err(err).Msg("refresh after toggle")
	}
	return add, nil
}

func mergeFavorite(local, saved countries.Favorite) countries.Favorite {
	if strings.TrimSpace(saved.Name) != "" {
		local.Name = saved.Name
	}
	if strings.TrimSpace(saved.Flag) != "" {
		local.Flag = saved.Flag
	}
	return local
}

// Refresh replaces the local set with the server's. Any failure leaves the
// set empty so a stale list is never shown as current. Toggles still in
// flight stay applied on top of the result, and toggles committed while the
// refresh was outstanding win over it. Without a token, Refresh clears.
func (r *Reconciler) Refresh(ctx context.Context) error {
	if r.tokens == nil || r.tokens.Token() == "" {
		r.Clear()
		return nil
	}

	r.mu.Lock()
	r.refreshGen++
	gen := r.refreshGen
	startMutations := r.mutations
	r.loading = true
	r.mu.Unlock()
	r.notify()

	favs, err := r.gateway.ListFavorites(ctx)

	r.mu.Lock()
	if gen != r.refreshGen {
		r.mu.Unlock()
		r.log.Debug().Msg("discarding stale favorites refresh")
		return nil
	}
	r.loading = false

	next := make(map[string]countries.Favorite, len(favs))
	order := make([]string, 0, len(favs))
	if err == nil {
		for _, fav := range favs {
			fav.Code = normalizeCode(fav.Code)
			if fav.Code == "" {
				continue
			}
			if _, dup := next[fav.Code]; !dup {
				order = append(order, fav.Code)
			}
			next[fav.Code] = fav
		}
		r.lastErr = nil
	} else {
		r.lastErr = err
	}
	for code, seq := range r.touched {
		if seq <= startMutations {
			continue
		}
		if fav, ok := r.synced[code]; ok {
			if _, in := next[code]; !in {
				order = append(order, code)
			}
			next[code] = fav
		} else {
			delete(next, code)
		}
	}
	for _, code := range r.order {
		if _, ok := r.pending[code]; ok {
			if _, in := next[code]; !in && !containsCode(order, code) {
				order = append(order, code)
			}
		}
	}
	r.synced = next
	r.order = order
	count := len(next)
	r.mu.Unlock()
	r.notify()

	if err != nil {
		r.log.Warn().Err(err).Msg("favorites refresh failed; showing none")
		return errors.Errorf("refresh favorites: %w", err)
	}
	r.log.Debug().Int("count", count).Msg("favorites refreshed")
	return nil
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// Clear empties the set and abandons in-flight work. Called on logout.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	r.synced = make(map[string]countries.Favorite)
	r.pending = make(map[string]intent)
	r.touched = make(map[string]uint64)
	r.order = nil
	r.loading = false
	r.lastErr = nil
	r.epoch++
	r.refreshGen++
	r.mu.Unlock()
	r.notify()
}

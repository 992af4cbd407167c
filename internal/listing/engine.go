package listing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"

	"github.com/atlas-tui/atlas/internal/countries"
)

// DefaultPageSize is the number of countries requested per page.
const DefaultPageSize = 5

// Pager is the subset of the API the engine calls.
type Pager interface {
	ListCountries(ctx context.Context, page, limit int) ([]countries.Country, error)
	SearchCountries(ctx context.Context, kind countries.FilterKind, query string) ([]countries.Country, error)
}

// Mode tells whether the sequence holds browse pages or one search result.
type Mode int

const (
	Browse Mode = iota
	Search
)

func (m Mode) String() string {
	if m == Search {
		return "search"
	}
	return "browse"
}

// Snapshot is a copy of the listing state. Visible is Countries with the
// keyword filter applied.
type Snapshot struct {
	Countries []countries.Country
	Visible   []countries.Country
	Page      int
	HasMore   bool
	Loading   bool
	Searching bool
	Mode      Mode
	Keyword   string
	Query     string
	Kind      countries.FilterKind
	Err       error
}

// Engine owns the ordered country sequence. All mutation happens under its
// lock; requests run without it. Each Search and Reset bumps the epoch, and
// a completion from an older epoch is dropped without touching state.
type Engine struct {
	pager    Pager
	log      zerolog.Logger
	pageSize int
	limiter  *rate.Limiter

	mu          sync.Mutex
	items       []countries.Country
	seen        map[string]struct{}
	page        int // last page appended
	hasMore     bool
	loadingPage bool
	fetching    chan struct{} // closed when the outstanding page request returns
	searching   bool
	mode        Mode
	keyword     string
	query       string
	kind        countries.FilterKind
	err         error
	searchErr   bool // err came from a failed search and outlives the fallback reset
	epoch       uint64

	listeners map[int]func(Snapshot)
	nextID    int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithBoundaryLimit sets how often BoundaryReached may start a page load.
func WithBoundaryLimit(every time.Duration, burst int) Option {
	return func(e *Engine) {
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds an empty Engine in browse mode. Call Reset to load page one.
func New(pager Pager, opts ...Option) *Engine {
	e := &Engine{
		pager:     pager,
		log:       zerolog.Nop(),
		pageSize:  DefaultPageSize,
		limiter:   rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		seen:      make(map[string]struct{}),
		hasMore:   true,
		kind:      countries.DefaultFilterKind,
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PageSize returns the configured page size.
func (e *Engine) PageSize() int {
	return e.pageSize
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	items := append([]countries.Country(nil), e.items...)
	return Snapshot{
		Countries: items,
		Visible:   FilterByKeyword(items, e.keyword),
		Page:      e.page,
		HasMore:   e.hasMore,
		Loading:   e.loadingPage,
		Searching: e.searching,
		Mode:      e.mode,
		Keyword:   e.keyword,
		Query:     e.query,
		Kind:      e.kind,
		Err:       e.err,
	}
}

// Visible returns the sequence with the keyword filter applied.
func (e *Engine) Visible() []countries.Country {
	e.mu.Lock()
	defer e.mu.Unlock()
	return FilterByKeyword(e.items, e.keyword)
}

// Subscribe registers fn to receive a snapshot after every state change.
func (e *Engine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	snap := e.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// LoadNextPage fetches the page after the last one appended. It returns
// false without a request while a page or search is loading, after the last
// page, or in search mode. Countries whose code is already present are skipped.
func (e *Engine) LoadNextPage(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if e.fetching != nil || e.searching || !e.hasMore || e.mode == Search {
		e.mu.Unlock()
		return false, nil
	}
	done := make(chan struct{})
	e.fetching = done
	e.loadingPage = true
	epoch := e.epoch
	next := e.page + 1
	e.mu.Unlock()
	e.notify()

	batch, err := e.pager.ListCountries(ctx, next, e.pageSize)

	e.mu.Lock()
	e.fetching = nil
	close(done)
	if e.epoch != epoch || e.page != next-1 || e.mode == Search {
		e.mu.Unlock()
		e.log.Debug().Int("page", next).Msg("discarding stale page")
		return false, nil
	}
	e.loadingPage = false
	if err != nil {
		e.err = err
		e.searchErr = false
		e.mu.Unlock()
		e.notify()
		e.log.Warn().Err(err).Int("page", next).Msg("page load failed")
		return false, errors.Errorf("load page %d: %w", next, err)
	}
	added := 0
	for _, c := range batch {
		code := c.Code()
		if _, dup := e.seen[code]; dup {
			continue
		}
		e.seen[code] = struct{}{}
		e.items = append(e.items, c)
		added++
	}
	e.page = next
	e.hasMore = len(batch) == e.pageSize
	if !e.searchErr {
		e.err = nil
	}
	hasMore := e.hasMore
	e.mu.Unlock()
	e.notify()
	e.log.Debug().Int("page", next).Int("added", added).Bool("has_more", hasMore).Msg("page loaded")
	return true, nil
}

// BoundaryReached is the infinite-scroll trigger. It loads the next page
// when browsing with more to fetch and no load in flight, at most as often
// as the boundary limiter allows.
func (e *Engine) BoundaryReached(ctx context.Context) (bool, error) {
	e.mu.Lock()
	ready := !e.loadingPage && !e.searching && e.hasMore && e.mode == Browse
	e.mu.Unlock()
	if !ready || !e.limiter.Allow() {
		return false, nil
	}
	return e.LoadNextPage(ctx)
}

// Search replaces the sequence with the server's matches for query under
// kind. An empty query resets to browsing. A failed search clears the
// sequence and falls back to browsing, keeping the error visible.
func (e *Engine) Search(ctx context.Context, query string, kind countries.FilterKind) error {
	if kind == "" {
		kind = countries.DefaultFilterKind
	}
	if !kind.Valid() {
		return errors.Errorf("unsupported filter kind %q", kind)
	}
	q := strings.TrimSpace(query)
	if q == "" {
		e.mu.Lock()
		e.kind = kind
		e.mu.Unlock()
		return e.Reset(ctx)
	}

	e.mu.Lock()
	e.epoch++
	epoch := e.epoch
	e.loadingPage = false
	e.searching = true
	e.query = q
	e.kind = kind
	e.err = nil
	e.searchErr = false
	e.mu.Unlock()
	e.notify()

	results, err := e.pager.SearchCountries(ctx, kind, q)

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		e.log.Debug().Str("query", q).Msg("discarding superseded search")
		return nil
	}
	e.searching = false
	if err != nil {
		e.items = nil
		e.seen = make(map[string]struct{})
		e.mode = Browse
		e.err = err
		e.searchErr = true
		e.mu.Unlock()
		e.notify()
		e.log.Warn().Err(err).Str("kind", string(kind)).Str("query", q).Msg("search failed; back to browsing")
		if resetErr := e.reset(ctx, true); resetErr != nil {
			e.log.Warn().Err(resetErr).Msg("reset after failed search")
		}
		return errors.Errorf("search %s %q: %w", kind, q, err)
	}
	e.items = make([]countries.Country, 0, len(results))
	e.seen = make(map[string]struct{}, len(results))
	for _, c := range results {
		code := c.Code()
		if _, dup := e.seen[code]; dup {
			continue
		}
		e.seen[code] = struct{}{}
		e.items = append(e.items, c)
	}
	e.mode = Search
	e.hasMore = false
	e.page = 0
	count := len(e.items)
	e.mu.Unlock()
	e.notify()
	e.log.Debug().Str("kind", string(kind)).Str("query", q).Int("results", count).Msg("search complete")
	return nil
}

// Reset discards the sequence and any error, returns to browsing, and loads
// page one.
func (e *Engine) Reset(ctx context.Context) error {
	return e.reset(ctx, false)
}

func (e *Engine) reset(ctx context.Context, keepErr bool) error {
	e.mu.Lock()
	e.epoch++
	epoch := e.epoch
	pending := e.fetching
	e.items = nil
	e.seen = make(map[string]struct{})
	e.page = 0
	e.hasMore = true
	e.loadingPage = pending != nil
	e.searching = false
	e.mode = Browse
	e.query = ""
	if !keepErr {
		e.err = nil
		e.searchErr = false
	}
	e.mu.Unlock()
	e.notify()

	// Only one page request is ever outstanding. A superseded one is
	// discarded when it returns, and page one is requested after it.
	if pending != nil {
		select {
		case <-pending:
		case <-ctx.Done():
			e.mu.Lock()
			if e.epoch == epoch {
				e.loadingPage = false
			}
			e.mu.Unlock()
			e.notify()
			return errors.Errorf("reset: %w", ctx.Err())
		}
	}

	_, err := e.LoadNextPage(ctx)
	return err
}

// ApplyKeywordFilter sets the client-side keyword filter. It never issues a
// request of its own, except that clearing the filter while the sequence is
// empty reloads page one.
func (e *Engine) ApplyKeywordFilter(ctx context.Context, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	e.mu.Lock()
	e.keyword = keyword
	empty := len(e.items) == 0
	e.mu.Unlock()
	e.notify()

	if keyword == "" && empty {
		return e.Reset(ctx)
	}
	return nil
}

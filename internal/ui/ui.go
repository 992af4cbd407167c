package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/favorites"
	"github.com/atlas-tui/atlas/internal/listing"
	"github.com/atlas-tui/atlas/internal/logtail"
	"github.com/atlas-tui/atlas/internal/prefs"
	"github.com/atlas-tui/atlas/internal/session"
	"github.com/atlas-tui/atlas/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewBrowse View = iota
	ViewDetail
	ViewLogs
	ViewAuth
)

const (
	logFetchLimit = 500
	stripInterval = 400 * time.Millisecond
	stripMaxTicks = 150
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Session   *session.Holder
	Favorites *favorites.Reconciler
	Listing   *listing.Engine
	Store     *state.Store
	Log       zerolog.Logger
	Prefs     prefs.Prefs
	PrefsPath string
	LogFile   string
}

// stripState drives the favorites strip auto-scroll. A tick only advances
// the strip when its gen matches; stop bumps gen so queued ticks die.
type stripState struct {
	offset int
	dir    int
	gen    int
	ticks  int
}

func (s stripState) running() bool {
	return s.dir != 0
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	session   *session.Holder
	favorites *favorites.Reconciler
	listing   *listing.Engine
	store     *state.Store
	log       zerolog.Logger
	prefs     prefs.Prefs
	prefsPath string
	logFile   string
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	notice      string
	noticeErr   bool

	// Data state
	snapshot state.Snapshot

	// Browse state
	selectedRow int
	kind        countries.FilterKind
	searching   bool
	searchInput textinput.Model
	strip       stripState

	// Detail state
	detailCode string

	// Log state
	logViewport viewport.Model

	// Auth form
	auth authForm
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search countries"
	search.CharLimit = 64

	m := Model{
		ctx:         ctx,
		session:     opts.Session,
		favorites:   opts.Favorites,
		listing:     opts.Listing,
		store:       opts.Store,
		log:         opts.Log,
		prefs:       opts.Prefs,
		prefsPath:   opts.PrefsPath,
		logFile:     opts.LogFile,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.Prefs.Theme),
		currentView: ViewBrowse,
		kind:        opts.Prefs.FilterKind(),
		searchInput: search,
		auth:        newAuthForm(),
	}
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.contentHeight())
		} else {
			m.logViewport.Width = msg.Width
			m.logViewport.Height = m.contentHeight()
		}
		m.ready = true
		return m, nil

	case storeChangedMsg:
		if m.store == nil {
			return m, nil
		}
		return m, fetchSnapshotCmd(m.store)

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case actionMsg:
		return m.handleAction(msg)

	case stripTickMsg:
		return m.handleStripTick(msg)

	case logsMsg:
		if msg.err != nil {
			m.setNotice("read log: "+msg.err.Error(), true)
			return m, nil
		}
		m.logViewport.SetContent(renderLogEntries(msg.entries))
		m.logViewport.GotoBottom()
		return m, nil
	}

	if m.searching {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	if m.currentView == ViewAuth {
		var cmd tea.Cmd
		m.auth, cmd = m.auth.update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.currentView == ViewAuth {
		return m.renderAuth()
	}
	return m.renderMain()
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	if n := len(snap.Listing.Visible); m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}
	if n := len(snap.Favorites.Entries); n == 0 {
		m.strip.offset = 0
	} else {
		m.strip.offset %= n
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.stopStrip()
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	m.notice = ""

	if m.searching {
		return m.handleSearchKey(msg)
	}
	if m.currentView == ViewAuth {
		return m.handleAuthKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopStrip()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.stopStrip()
		m.currentView = ViewBrowse
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		m.stopStrip()
		m.currentView = ViewLogs
		return m, readLogsCmd(m.logFile)

	case key.Matches(msg, m.keys.Login):
		m.stopStrip()
		m.auth = newAuthForm()
		m.currentView = ViewAuth
		return m, m.auth.focusCmd()

	case key.Matches(msg, m.keys.Logout):
		if !m.session.Snapshot().HasToken() {
			return m, nil
		}
		m.session.Logout()
		m.setNotice("Signed out", false)
		return m, nil

	case key.Matches(msg, m.keys.RefreshFavorites):
		return m, m.runAction("refresh favorites", func(ctx context.Context) (string, error) {
			return "Favorites reloaded", m.favorites.Refresh(ctx)
		})
	}

	switch m.currentView {
	case ViewBrowse:
		return m.handleBrowseKey(msg)
	case ViewDetail:
		return m.handleDetailKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// handleBrowseKey processes keyboard input for the country list.
func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.snapshot.Listing.Visible

	switch {
	case key.Matches(msg, m.keys.Search):
		m.stopStrip()
		m.searching = true
		m.searchInput.SetValue(m.snapshot.Listing.Query)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleKind):
		m.kind = m.kind.Next()
		m.prefs.SearchKind = string(m.kind)
		m.savePrefs()
		m.setNotice("Search by "+m.kind.Label(), false)
		return m, nil

	case key.Matches(msg, m.keys.NextKeyword), key.Matches(msg, m.keys.PrevKeyword):
		step := 1
		if key.Matches(msg, m.keys.PrevKeyword) {
			step = -1
		}
		keyword := listing.NextKeyword(m.snapshot.Listing.Keyword, step)
		m.selectedRow = 0
		return m, m.runAction("keyword", func(ctx context.Context) (string, error) {
			return "", m.listing.ApplyKeywordFilter(ctx, keyword)
		})

	case key.Matches(msg, m.keys.ClearKeyword):
		if m.snapshot.Listing.Keyword == "" {
			return m, nil
		}
		return m, m.runAction("keyword", func(ctx context.Context) (string, error) {
			return "", m.listing.ApplyKeywordFilter(ctx, "")
		})

	case key.Matches(msg, m.keys.Reset):
		m.selectedRow = 0
		return m, m.runAction("reset", func(ctx context.Context) (string, error) {
			return "", m.listing.Reset(ctx)
		})

	case key.Matches(msg, m.keys.ToggleFavorite):
		if c, ok := m.selectedCountry(); ok {
			return m, m.toggleFavoriteCmd(c)
		}
		return m, nil

	case key.Matches(msg, m.keys.Detail):
		if c, ok := m.selectedCountry(); ok {
			m.stopStrip()
			m.detailCode = c.Code()
			m.currentView = ViewDetail
		}
		return m, nil

	case key.Matches(msg, m.keys.StripLeft):
		return m, m.startStrip(-1)

	case key.Matches(msg, m.keys.StripRight):
		return m, m.startStrip(1)

	case key.Matches(msg, m.keys.StripStop):
		m.stopStrip()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < len(visible)-1 {
			m.selectedRow++
		}
		return m, m.boundaryCmd()

	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(len(visible)-1, 0)
		return m, m.boundaryCmd()
	}

	return m, nil
}

// handleSearchKey processes keyboard input while the search box is focused.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := m.searchInput.Value()
		kind := m.kind
		m.searching = false
		m.searchInput.Blur()
		m.selectedRow = 0
		return m, m.runAction("search", func(ctx context.Context) (string, error) {
			return "", m.listing.Search(ctx, query, kind)
		})
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleDetailKey processes keyboard input for the detail view.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ToggleFavorite) {
		if c, ok := m.detailCountry(); ok {
			return m, m.toggleFavoriteCmd(c)
		}
	}
	return m, nil
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Reset) {
		return m, readLogsCmd(m.logFile)
	}
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

// handleAuthKey processes keyboard input for the sign-in form.
func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewBrowse
		return m, nil
	case key.Matches(msg, m.keys.SwitchForm):
		m.auth.switchMode()
		return m, m.auth.focusCmd()
	case key.Matches(msg, m.keys.NextField):
		m.auth.move(1)
		return m, m.auth.focusCmd()
	case key.Matches(msg, m.keys.PrevField):
		m.auth.move(-1)
		return m, m.auth.focusCmd()
	case key.Matches(msg, m.keys.Confirm):
		if m.auth.busy {
			return m, nil
		}
		if err := m.auth.validate(); err != nil {
			m.auth.err = err.Error()
			return m, nil
		}
		m.auth.busy = true
		m.auth.err = ""
		return m, m.submitAuthCmd()
	}

	var cmd tea.Cmd
	m.auth, cmd = m.auth.update(msg)
	return m, cmd
}

func (m Model) submitAuthCmd() tea.Cmd {
	email, password, username := m.auth.values()
	if m.auth.register {
		return m.runAction(opRegister, func(ctx context.Context) (string, error) {
			user, err := m.session.Register(ctx, countries.Registration{Email: email, Password: password, Username: username})
			return "Welcome, " + user.Username, err
		})
	}
	return m.runAction(opLogin, func(ctx context.Context) (string, error) {
		user, err := m.session.Login(ctx, email, password)
		return "Signed in as " + user.Username, err
	})
}

func (m Model) toggleFavoriteCmd(c countries.Country) tea.Cmd {
	name := c.Name.Common
	return m.runAction("favorite", func(ctx context.Context) (string, error) {
		added, err := m.favorites.Toggle(ctx, c)
		if added {
			return name + " starred", err
		}
		return name + " unstarred", err
	})
}

// boundaryCmd asks the listing engine for the next page once the selection
// sits on the last loaded row.
func (m Model) boundaryCmd() tea.Cmd {
	list := m.snapshot.Listing
	if !list.HasMore || list.Loading || m.selectedRow < len(list.Visible)-1 {
		return nil
	}
	return m.runAction("load page", func(ctx context.Context) (string, error) {
		_, err := m.listing.BoundaryReached(ctx)
		return "", err
	})
}

func (m Model) selectedCountry() (countries.Country, bool) {
	visible := m.snapshot.Listing.Visible
	if m.selectedRow < 0 || m.selectedRow >= len(visible) {
		return countries.Country{}, false
	}
	return visible[m.selectedRow], true
}

func (m Model) detailCountry() (countries.Country, bool) {
	for _, c := range m.snapshot.Listing.Countries {
		if c.Code() == m.detailCode {
			return c, true
		}
	}
	return countries.Country{}, false
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.log.Warn().Err(err).Msg("save prefs")
	}
}

// startStrip begins auto-scrolling the favorites strip in dir.
func (m *Model) startStrip(dir int) tea.Cmd {
	if len(m.snapshot.Favorites.Entries) < 2 || m.strip.dir == dir {
		return nil
	}
	m.strip.gen++
	m.strip.dir = dir
	m.strip.ticks = 0
	return stripTickCmd(m.strip.gen)
}

// stopStrip halts auto-scrolling. Ticks already queued are ignored.
func (m *Model) stopStrip() {
	if !m.strip.running() {
		return
	}
	m.strip.gen++
	m.strip.dir = 0
}

func (m Model) handleStripTick(msg stripTickMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.strip.gen || !m.strip.running() {
		return m, nil
	}
	n := len(m.snapshot.Favorites.Entries)
	if n < 2 || m.strip.ticks >= stripMaxTicks {
		m.stopStrip()
		return m, nil
	}
	m.strip.ticks++
	m.strip.offset = ((m.strip.offset+m.strip.dir)%n + n) % n
	return m, stripTickCmd(m.strip.gen)
}

func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	needsAuth := errors.Is(msg.err, favorites.ErrAuthRequired)
	if m.store != nil && !needsAuth {
		m.store.Record(msg.err)
	}

	if msg.err != nil {
		m.log.Warn().Err(msg.err).Str("op", msg.op).Msg("action failed")
		text := countries.UserMessage(msg.err)
		authOp := msg.op == opLogin || msg.op == opRegister
		switch {
		case needsAuth:
			text = "Sign in (L) to keep favorites"
		case !authOp && countries.IsUnauthorized(msg.err):
			text = "Session expired, sign in again (L)"
		}
		if authOp {
			m.auth.busy = false
			m.auth.err = text
			return m, nil
		}
		m.setNotice(text, true)
		return m, nil
	}

	if msg.op == opLogin || msg.op == opRegister {
		m.auth = newAuthForm()
		m.currentView = ViewBrowse
	}
	if msg.info != "" {
		m.setNotice(msg.info, false)
	}
	return m, nil
}

// Messages

type storeChangedMsg struct{}

type snapshotMsg state.Snapshot

type actionMsg struct {
	op   string
	info string
	err  error
}

type stripTickMsg struct {
	gen int
}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

const (
	opLogin    = "login"
	opRegister = "register"
)

// Commands

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func stripTickCmd(gen int) tea.Cmd {
	return tea.Tick(stripInterval, func(time.Time) tea.Msg {
		return stripTickMsg{gen: gen}
	})
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.ReadEntries(path, logFetchLimit, zerolog.DebugLevel)
		return logsMsg{entries: entries, err: err}
	}
}

// runAction runs fn off the update loop and reports its outcome.
func (m Model) runAction(op string, fn func(context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		info, err := fn(ctx)
		return actionMsg{op: op, info: info, err: err}
	}
}

// forwardChanges turns store updates into storeChangedMsg until ctx ends.
func forwardChanges(ctx context.Context, store *state.Store, p *tea.Program) {
	changes := store.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			p.Send(storeChangedMsg{})
		}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	if opts.Store == nil || opts.Session == nil || opts.Favorites == nil || opts.Listing == nil {
		return errors.New("ui requires the core components and a store")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	ctx, cancel := context.WithCancel(opts.Context)
	defer cancel()

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	go forwardChanges(ctx, opts.Store, p)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context.Err() != nil {
		return nil
	}
	return err
}

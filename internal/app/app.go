package app

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/atlas-tui/atlas/internal/config"
	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/favorites"
	"github.com/atlas-tui/atlas/internal/listing"
	"github.com/atlas-tui/atlas/internal/logging"
	"github.com/atlas-tui/atlas/internal/prefs"
	"github.com/atlas-tui/atlas/internal/session"
	"github.com/atlas-tui/atlas/internal/state"
	"github.com/atlas-tui/atlas/internal/tokenstore"
	"github.com/atlas-tui/atlas/internal/ui"
)

// Options configure the atlas application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses the config value
	APIURL     string // overrides the config value when set
	LogLevel   string // overrides the config value when set
	Debug      bool
	Console    io.Writer // mirrors warnings here; nil while the TUI owns the terminal
}

// Runtime is the wired set of components shared by the TUI and the
// headless commands.
type Runtime struct {
	Config    config.Config
	Prefs     prefs.Prefs
	Log       zerolog.Logger
	Client    *countries.Client
	Tokens    *tokenstore.Store
	Session   *session.Holder
	Favorites *favorites.Reconciler
	Listing   *listing.Engine
	Store     *state.Store

	detach  func()
	logFile io.Closer
}

// Build loads configuration and wires every component. Nothing touches the
// network until Start.
func Build(opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, errors.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.PrefsPath != "" {
		cfg.PrefsPath = opts.PrefsPath
	}

	log, logFile, err := logging.New(logging.Options{
		File:    cfg.LogFile,
		Level:   cfg.LogLevel,
		Console: opts.Console,
		Debug:   opts.Debug,
	})
	if err != nil {
		return nil, errors.Errorf("init logging: %w", err)
	}

	userPrefs, err := prefs.Load(cfg.PrefsPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.PrefsPath).Msg("prefs unreadable; using defaults")
	}

	tokens, err := tokenstore.New(cfg.TokenPath, log.With().Str("component", "tokenstore").Logger())
	if err != nil {
		_ = logFile.Close()
		return nil, errors.Errorf("init token store: %w", err)
	}

	rt := &Runtime{
		Config:  cfg,
		Prefs:   userPrefs,
		Log:     log,
		Tokens:  tokens,
		Store:   &state.Store{},
		logFile: logFile,
	}

	// The client reads the bearer token from the session holder on every
	// request, and the holder needs the client for its auth calls, so the
	// token source is bound after both exist.
	tokenSource := &lateToken{}
	client, err := countries.NewClient(cfg.APIURL,
		countries.WithTokenSource(tokenSource),
		countries.WithTimeout(cfg.RequestTimeout),
		countries.WithLogger(log.With().Str("component", "api").Logger()),
	)
	if err != nil {
		_ = logFile.Close()
		return nil, errors.Errorf("init api client: %w", err)
	}
	rt.Client = client

	rt.Session = session.New(client, tokens,
		session.WithLogger(log.With().Str("component", "session").Logger()))
	tokenSource.src = rt.Session

	rt.Favorites = favorites.New(client, rt.Session,
		favorites.WithLogger(log.With().Str("component", "favorites").Logger()))
	rt.Session.Attach(rt.Favorites)

	rt.Listing = listing.New(client,
		listing.WithPageSize(cfg.PageSize),
		listing.WithLogger(log.With().Str("component", "listing").Logger()))

	rt.detach = rt.Store.Attach(rt.Session, rt.Favorites, rt.Listing)
	return rt, nil
}

// lateToken forwards to a TokenSource assigned after construction.
type lateToken struct {
	src countries.TokenSource
}

func (l *lateToken) Token() string {
	if l.src == nil {
		return ""
	}
	return l.src.Token()
}

// Start restores the session and loads the first page concurrently. Neither
// failure is fatal: both are recorded in the store for display and logged.
func (rt *Runtime) Start(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		err := rt.Session.Restore(ctx)
		if err != nil {
			rt.Log.Warn().Err(err).Msg("session restore failed")
		}
		return err
	})
	g.Go(func() error {
		err := rt.Listing.Reset(ctx)
		if err != nil {
			rt.Log.Warn().Err(err).Msg("initial page load failed")
		}
		return err
	})
	rt.Store.Record(g.Wait())
}

// StartTokenWatcher follows the token file for changes made by other atlas
// processes. It returns immediately; the watcher stops with ctx.
func (rt *Runtime) StartTokenWatcher(ctx context.Context) {
	go rt.Tokens.Watch(ctx, rt.Config.WatchInterval, func(change tokenstore.Change) {
		if err := rt.Session.HandleExternalChange(ctx, change); err != nil {
			rt.Store.Record(err)
		}
	})
}

// Close releases the log file and detaches the store.
func (rt *Runtime) Close() error {
	if rt.detach != nil {
		rt.detach()
	}
	if rt.logFile != nil {
		return rt.logFile.Close()
	}
	return nil
}

// Run boots the atlas TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	opts.Console = nil
	rt, err := Build(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Log.Info().Str("api", rt.Client.BaseURL()).Msg("starting atlas")
	rt.StartTokenWatcher(ctx)
	go rt.Start(ctx)

	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   rt.Session,
		Favorites: rt.Favorites,
		Listing:   rt.Listing,
		Store:     rt.Store,
		Log:       rt.Log.With().Str("component", "ui").Logger(),
		Prefs:     rt.Prefs,
		PrefsPath: rt.Config.PrefsPath,
		LogFile:   rt.Config.LogFile,
	})
}

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlas-tui/atlas/internal/app"
)

// rootOpts holds the persistent flags shared by every command.
type rootOpts struct {
	configPath string
	prefsPath  string
	apiURL     string
	logLevel   string
	debug      bool
}

func (o *rootOpts) appOptions() app.Options {
	return app.Options{
		ConfigPath: o.configPath,
		PrefsPath:  o.prefsPath,
		APIURL:     o.apiURL,
		LogLevel:   o.logLevel,
		Debug:      o.debug,
	}
}

// withRuntime builds the wired components for a headless command. Warnings
// are mirrored to stderr since no TUI owns the terminal.
func (o *rootOpts) withRuntime(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	opts := o.appOptions()
	opts.Console = os.Stderr
	rt, err := app.Build(opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

// withSession is withRuntime plus a restored session.
func (o *rootOpts) withSession(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	return o.withRuntime(ctx, func(ctx context.Context, rt *app.Runtime) error {
		if err := rt.Session.Restore(ctx); err != nil {
			rt.Log.Debug().Err(err).Msg("no usable session")
		}
		return fn(ctx, rt)
	})
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}

	cmd := &cobra.Command{
		Use:   "atlas",
		Short: "Explore countries of the world from the terminal",
		Long: `atlas browses and searches country records from a countries API.
Sign in to keep a list of favorite countries that follows you between
sessions. Run without a subcommand to open the interactive browser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), opts.appOptions())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default ~/.config/atlas/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.prefsPath, "prefs", "", "preferences file path")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", "", "countries API base URL")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")

	cmd.AddCommand(
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newBrowseCmd(opts),
		newSearchCmd(opts),
		newFavoritesCmd(opts),
		newLogsCmd(opts),
		newDevServerCmd(),
	)
	return cmd
}

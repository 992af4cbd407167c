package main

import (
	"context"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/app"
	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/session"
)

func newFavoritesCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "List and edit your favorite countries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withFavorites(cmd.Context(), printFavorites)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorites",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withFavorites(cmd.Context(), printFavorites)
			},
		},
		&cobra.Command{
			Use:   "add <code>",
			Short: "Star a country by its three-letter code",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withFavorites(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
					return setFavorite(ctx, rt, args[0], true)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <code>",
			Short: "Unstar a country",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withFavorites(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
					return setFavorite(ctx, rt, args[0], false)
				})
			},
		},
	)
	return cmd
}

// withFavorites runs fn with a signed-in session; Restore already loaded
// the favorites set.
func (o *rootOpts) withFavorites(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	return o.withSession(ctx, func(ctx context.Context, rt *app.Runtime) error {
		if rt.Session.Snapshot().Phase != session.Authenticated {
			return errors.New("not signed in; run `atlas login` first")
		}
		return fn(ctx, rt)
	})
}

func setFavorite(ctx context.Context, rt *app.Runtime, code string, want bool) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if rt.Favorites.IsFavorite(code) == want {
		pterm.Info.Printfln("%s is already %s", code, favoriteWord(want))
		return nil
	}

	country := countries.Country{CCA3: code}
	if want {
		found, err := rt.Client.SearchCountries(ctx, countries.FilterCode, code)
		if err != nil {
			return errors.New(countries.UserMessage(err))
		}
		if len(found) == 0 {
			return errors.Errorf("no country with code %s", code)
		}
		country = found[0]
	}

	if _, err := rt.Favorites.Toggle(ctx, country); err != nil {
		return errors.New(countries.UserMessage(err))
	}
	name := country.Name.Common
	if name == "" {
		name = code
	}
	pterm.Success.Printfln("%s %s", name, favoriteWord(want))
	return nil
}

func favoriteWord(starred bool) string {
	if starred {
		return "starred"
	}
	return "unstarred"
}

func printFavorites(_ context.Context, rt *app.Runtime) error {
	favs := rt.Favorites.List()
	if len(favs) == 0 {
		pterm.Info.Println("No favorites yet")
		return nil
	}
	rows := pterm.TableData{{"Code", "Name", "Flag"}}
	for _, f := range favs {
		rows = append(rows, []string{f.Code, f.Name, f.Flag})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

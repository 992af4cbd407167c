package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/app"
	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/listing"
)

func newBrowseCmd(opts *rootOpts) *cobra.Command {
	var pages int
	var keyword string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List countries page by page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return errors.New("--pages must be at least 1")
			}
			return opts.withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if err := rt.Listing.Reset(ctx); err != nil {
					return errors.New(countries.UserMessage(err))
				}
				for i := 1; i < pages && rt.Listing.Snapshot().HasMore; i++ {
					if _, err := rt.Listing.LoadNextPage(ctx); err != nil {
						return errors.New(countries.UserMessage(err))
					}
				}
				if keyword != "" {
					if err := rt.Listing.ApplyKeywordFilter(ctx, keyword); err != nil {
						return err
					}
				}
				return printListing(rt)
			})
		},
	}
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "number of pages to load")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "keep only countries matching a region, subregion or language")
	return cmd
}

func newSearchCmd(opts *rootOpts) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search countries by name, code, language, region and more",
		Long: `Search sends the query to the endpoint for the chosen filter kind.
Kinds: ` + kindList() + `.
Without --kind the last kind picked in the interactive browser is used.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return opts.withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				kind := rt.Prefs.FilterKind()
				if kindFlag != "" {
					parsed, err := countries.ParseFilterKind(kindFlag)
					if err != nil {
						return err
					}
					kind = parsed
				}
				if err := rt.Listing.Search(ctx, query, kind); err != nil {
					return errors.New(countries.UserMessage(err))
				}
				return printListing(rt)
			})
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "filter kind ("+kindList()+")")
	return cmd
}

func kindList() string {
	kinds := countries.FilterKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// printListing renders the listing's visible countries, marking favorites.
func printListing(rt *app.Runtime) error {
	snap := rt.Listing.Snapshot()
	if len(snap.Visible) == 0 {
		pterm.Info.Println("No countries")
		return nil
	}

	rows := pterm.TableData{{"", "Code", "Name", "Region", "Capital", "Population"}}
	for _, c := range snap.Visible {
		star := ""
		if rt.Favorites.IsFavorite(c.Code()) {
			star = "★"
		}
		rows = append(rows, []string{
			star,
			c.Code(),
			c.Name.Common,
			c.Region,
			c.PrimaryCapital(),
			fmt.Sprintf("%d", c.Population),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}

	switch {
	case snap.Mode == listing.Search:
		pterm.Info.Printfln("%d results for %s %q", len(snap.Countries), snap.Kind.Label(), snap.Query)
	case snap.HasMore:
		pterm.Info.Printfln("Page %d, more available (--pages)", snap.Page)
	default:
		pterm.Info.Printfln("Page %d, end of list", snap.Page)
	}
	return nil
}

package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/apitest"
)

// newDevServerCmd serves the in-memory countries API so the client can be
// tried without a backend.
func newDevServerCmd() *cobra.Command {
	var addr string
	var users []string

	cmd := &cobra.Command{
		Use:    "devserver",
		Short:  "Serve a small in-memory countries API for local testing",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := apitest.NewAPI(apitest.World())
			for _, u := range users {
				name, email, password, ok := parseUserFlag(u)
				if !ok {
					return errors.Errorf("--user %q: want name:email:password", u)
				}
				api.AddUser(name, email, password)
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           api,
				ReadHeaderTimeout: 5 * time.Second,
			}
			ctx := cmd.Context()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			pterm.Info.Printfln("countries API listening on http://%s (use --api http://%s)", addr, addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringArrayVar(&users, "user", nil, "seed an account as name:email:password (repeatable)")
	return cmd
}

func parseUserFlag(v string) (name, email, password string, ok bool) {
	parts := strings.SplitN(v, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

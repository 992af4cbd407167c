package main

import (
	"context"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/app"
	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/session"
)

var errCancelled = errors.New("cancelled")

// prompter reads answers from the terminal. Passwords are not echoed.
type prompter struct {
	rl *readline.Instance
}

func newPrompter() (*prompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, errors.Errorf("init prompt: %w", err)
	}
	return &prompter{rl: rl}, nil
}

func (p *prompter) Close() error {
	return p.rl.Close()
}

// ask returns the flag value when set, otherwise prompts for it.
func (p *prompter) ask(prompt, preset string) (string, error) {
	if strings.TrimSpace(preset) != "" {
		return strings.TrimSpace(preset), nil
	}
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if err != nil {
		return "", promptErr(err)
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) password(prompt string) (string, error) {
	b, err := p.rl.ReadPassword(prompt)
	if err != nil {
		return "", promptErr(err)
	}
	return string(b), nil
}

func promptErr(err error) error {
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return errCancelled
	}
	return errors.Errorf("read input: %w", err)
}

func newLoginCmd(opts *rootOpts) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrompter()
			if err != nil {
				return err
			}
			defer p.Close()

			if email, err = p.ask("email: ", email); err != nil {
				return err
			}
			password, err := p.password("password: ")
			if err != nil {
				return err
			}

			return opts.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				user, err := rt.Session.Login(ctx, email, password)
				if err != nil {
					return errors.New(countries.UserMessage(err))
				}
				pterm.Success.Printfln("Signed in as %s <%s>", user.Username, user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newRegisterCmd(opts *rootOpts) *cobra.Command {
	var email, username string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrompter()
			if err != nil {
				return err
			}
			defer p.Close()

			if username, err = p.ask("username: ", username); err != nil {
				return err
			}
			if email, err = p.ask("email: ", email); err != nil {
				return err
			}
			password, err := p.password("password: ")
			if err != nil {
				return err
			}
			confirm, err := p.password("repeat password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			return opts.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				reg := countries.Registration{Email: email, Password: password, Username: username}
				user, err := rt.Session.Register(ctx, reg)
				if err != nil {
					return errors.New(countries.UserMessage(err))
				}
				pterm.Success.Printfln("Welcome, %s", user.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&username, "username", "u", "", "display name")
	return cmd
}

func newLogoutCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd.Context(), func(_ context.Context, rt *app.Runtime) error {
				rt.Session.Logout()
				pterm.Info.Println("Signed out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(_ context.Context, rt *app.Runtime) error {
				snap := rt.Session.Snapshot()
				if snap.Phase != session.Authenticated || snap.User == nil {
					pterm.Info.Println("Not signed in")
					return nil
				}
				rows := pterm.TableData{
					{"Username", snap.User.Username},
					{"Email", snap.User.Email},
					{"ID", snap.User.ID},
				}
				if !snap.ExpiresAt.IsZero() {
					rows = append(rows, []string{"Expires", snap.ExpiresAt.Local().Format("2006-01-02 15:04")})
				}
				return pterm.DefaultTable.WithData(rows).Render()
			})
		},
	}
}

package ui

import (
	"net/mail"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"gitlab.com/tozd/go/errors"
)

const (
	fieldEmail = iota
	fieldPassword
	fieldUsername
)

// authForm is the sign-in / register modal. Register adds a username field.
type authForm struct {
	inputs   []textinput.Model
	focus    int
	register bool
	busy     bool
	err      string
}

func newAuthForm() authForm {
	email := textinput.New()
	email.Prompt = "Email     "
	email.Placeholder = "you@example.com"
	email.CharLimit = 128

	password := textinput.New()
	password.Prompt = "Password  "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	username := textinput.New()
	username.Prompt = "Username  "
	username.CharLimit = 64

	return authForm{inputs: []textinput.Model{email, password, username}}
}

// fieldCount is the number of fields active in the current mode.
func (f authForm) fieldCount() int {
	if f.register {
		return 3
	}
	return 2
}

func (f *authForm) switchMode() {
	f.register = !f.register
	f.err = ""
	if f.focus >= f.fieldCount() {
		f.focus = 0
	}
}

func (f *authForm) move(step int) {
	n := f.fieldCount()
	f.focus = ((f.focus+step)%n + n) % n
}

// focusCmd focuses the current field and blurs the rest.
func (f *authForm) focusCmd() tea.Cmd {
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
			continue
		}
		f.inputs[i].Blur()
	}
	return cmd
}

func (f authForm) update(msg tea.Msg) (authForm, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f authForm) values() (email, password, username string) {
	return strings.TrimSpace(f.inputs[fieldEmail].Value()),
		f.inputs[fieldPassword].Value(),
		strings.TrimSpace(f.inputs[fieldUsername].Value())
}

func (f authForm) validate() error {
	email, password, username := f.values()
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("Enter a valid email address")
	}
	if password == "" {
		return errors.New("Enter a password")
	}
	if f.register && username == "" {
		return errors.New("Pick a username")
	}
	return nil
}

func (f authForm) title() string {
	if f.register {
		return "Create account"
	}
	return "Sign in"
}

// renderAuth renders the sign-in / register modal.
func (m Model) renderAuth() string {
	styles := m.theme.Styles()
	f := m.auth

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title()))
	b.WriteString("\n\n")
	for i := 0; i < f.fieldCount(); i++ {
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case f.busy:
		b.WriteString(styles.Info.Render("Contacting server..."))
	case f.err != "":
		b.WriteString(styles.Danger.Render(f.err))
	default:
		b.WriteString(styles.Faint.Render("enter submit · tab next · ctrl+r switch · esc cancel"))
	}

	return m.renderModal(b.String(), 56)
}

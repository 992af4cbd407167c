package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding

	// View switching
	Detail key.Binding
	Logs   key.Binding
	Login  key.Binding
	Logout key.Binding

	// Listing actions
	Search       key.Binding
	CycleKind    key.Binding
	NextKeyword  key.Binding
	PrevKeyword  key.Binding
	ClearKeyword key.Binding
	Reset        key.Binding

	// Favorites actions
	ToggleFavorite   key.Binding
	RefreshFavorites key.Binding
	StripLeft        key.Binding
	StripRight       key.Binding
	StripStop        key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Forms
	Confirm    key.Binding
	NextField  key.Binding
	PrevField  key.Binding
	SwitchForm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to list"),
		),

		// View switching
		Detail: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Country detail"),
		),
		Logs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Log view"),
		),
		Login: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Sign in / register"),
		),
		Logout: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "Sign out"),
		),

		// Listing actions
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		CycleKind: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle search filter"),
		),
		NextKeyword: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Next keyword"),
		),
		PrevKeyword: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "Previous keyword"),
		),
		ClearKeyword: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Clear keyword"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Back to first page"),
		),

		// Favorites actions
		ToggleFavorite: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Star / unstar"),
		),
		RefreshFavorites: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reload favorites"),
		),
		StripLeft: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "Scroll favorites left"),
		),
		StripRight: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "Scroll favorites right"),
		),
		StripStop: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Stop scrolling"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		// Forms
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		SwitchForm: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Sign in / register"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.CycleKind, k.ToggleFavorite, k.Login, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.Detail, k.Escape},
		{k.Search, k.CycleKind, k.NextKeyword, k.PrevKeyword, k.ClearKeyword, k.Reset},
		{k.ToggleFavorite, k.RefreshFavorites, k.StripLeft, k.StripRight, k.StripStop},
		{k.Login, k.Logout, k.Logs, k.CycleTheme, k.Help, k.Quit},
	}
}

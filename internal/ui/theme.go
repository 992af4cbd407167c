package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is a named palette of hex colors.
type Theme struct {
	Name string

	Base          string // screen background
	Panel         string // header, command bar and favorites strip
	Selection     string
	SelectionText string

	Text  string
	Muted string
	Faint string

	Accent  string
	Star    string
	Success string
	Warning string
	Danger  string
	Info    string

	// Badges colors favorite entry states, session phases and "offline".
	Badges map[string]string
}

// Styles holds the lipgloss styles the views render with.
type Styles struct {
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Faint   lipgloss.Style
	Accent  lipgloss.Style
	Star    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
	Info    lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Strip    lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
	Key      lipgloss.Style
	Modal    lipgloss.Style

	badges map[string]string
	base   string
	muted  string
}

// Styles builds the style set for t.
func (t Theme) Styles() Styles {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	panel := func(c string) lipgloss.Style {
		return fg(c).Background(lipgloss.Color(t.Panel)).Padding(0, 1)
	}

	return Styles{
		Text:    fg(t.Text),
		Muted:   fg(t.Muted),
		Faint:   fg(t.Faint),
		Accent:  fg(t.Accent),
		Star:    fg(t.Star).Bold(true),
		Success: fg(t.Success).Bold(true),
		Warning: fg(t.Warning),
		Danger:  fg(t.Danger).Bold(true),
		Info:    fg(t.Info),

		Header: panel(t.Text),
		Footer: panel(t.Muted),
		Strip:  panel(t.Text),
		Logo:   fg(t.Star).Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Selection)).
			Foreground(lipgloss.Color(t.SelectionText)),
		Key: fg(t.Warning).Width(12),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Accent)).
			Padding(1, 2),

		badges: t.Badges,
		base:   t.Base,
		muted:  t.Muted,
	}
}

// Badge returns the pill style for a favorite entry state or session
// phase. Unknown names fall back to the muted color.
func (s Styles) Badge(name string) lipgloss.Style {
	color, ok := s.badges[name]
	if !ok {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.base)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

var themes = map[string]Theme{
	"Nightfox": {
		// https://github.com/EdenEast/nightfox.nvim
		Name: "Nightfox", Base: "#131a24", Panel: "#192330",
		Selection: "#2b3b51", SelectionText: "#cdcecf",
		Text: "#cdcecf", Muted: "#738091", Faint: "#71839b",
		Accent: "#719cd6", Star: "#dbc074", Success: "#81b29a",
		Warning: "#f4a261", Danger: "#c94f6d", Info: "#63cdcf",
		Badges: badges("#81b29a", "#dbc074", "#f4a261", "#738091", "#63cdcf", "#719cd6", "#c94f6d"),
	},
	"Kanagawa": {
		// https://github.com/rebelot/kanagawa.nvim
		Name: "Kanagawa", Base: "#16161D", Panel: "#1F1F28",
		Selection: "#2D4F67", SelectionText: "#DCD7BA",
		Text: "#DCD7BA", Muted: "#C8C093", Faint: "#727169",
		Accent: "#7E9CD8", Star: "#E6C384", Success: "#98BB6C",
		Warning: "#FFA066", Danger: "#E46876", Info: "#7FB4CA",
		Badges: badges("#98BB6C", "#E6C384", "#FFA066", "#727169", "#7FB4CA", "#7E9CD8", "#E46876"),
	},
	"Slate": {
		// Tailwind slate and sky scales
		Name: "Slate", Base: "#020617", Panel: "#0f172a",
		Selection: "#0284c7", SelectionText: "#f8fafc",
		Text: "#f1f5f9", Muted: "#94a3b8", Faint: "#64748b",
		Accent: "#38bdf8", Star: "#facc15", Success: "#22c55e",
		Warning: "#f59e0b", Danger: "#ef4444", Info: "#06b6d4",
		Badges: badges("#22c55e", "#f59e0b", "#fb923c", "#64748b", "#06b6d4", "#38bdf8", "#dc2626"),
	},
}

// badges maps the entry states, then the session phases, then offline.
func badges(synced, pendingAdd, pendingRemove, anonymous, authenticating, authenticated, offline string) map[string]string {
	return map[string]string{
		"synced":         synced,
		"pending-add":    pendingAdd,
		"pending-remove": pendingRemove,
		"anonymous":      anonymous,
		"authenticating": authenticating,
		"authenticated":  authenticated,
		"offline":        offline,
	}
}

// GetTheme returns the named theme, or Nightfox when the name is unknown.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[themeOrder[0]]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames lists the themes in cycle order.
func ThemeNames() []string {
	return themeOrder
}

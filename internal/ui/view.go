package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/favorites"
	"github.com/atlas-tui/atlas/internal/listing"
	"github.com/atlas-tui/atlas/internal/logtail"
	"github.com/atlas-tui/atlas/internal/session"
)

// header, command bar, favorites strip and status line
const chromeHeight = 4

func (m Model) contentHeight() int {
	return max(m.height-chromeHeight, 3)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderStrip())
	b.WriteString("\n")

	switch m.currentView {
	case ViewDetail:
		b.WriteString(m.renderDetail())
	case ViewLogs:
		b.WriteString(m.logViewport.View())
	default:
		b.WriteString(m.renderList())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

// renderHeader shows the logo, session badge and listing mode.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	parts := []string{styles.Logo.Render("atlas")}

	phase := snap.Session.Phase.String()
	badge := phase
	if snap.Session.Phase == session.Authenticated && snap.Session.User != nil {
		badge = snap.Session.User.Username
	}
	parts = append(parts, styles.Badge(phase).Render(badge))

	if snap.IsOffline() {
		parts = append(parts, styles.Badge("offline").Render("offline"))
	}

	list := snap.Listing
	switch list.Mode {
	case listing.Search:
		parts = append(parts, styles.Accent.Render(fmt.Sprintf("%s: %q", list.Kind.Label(), list.Query)))
	default:
		parts = append(parts, styles.Muted.Render(fmt.Sprintf("page %d", list.Page)))
	}
	if list.Keyword != "" {
		parts = append(parts, styles.Warning.Render("#"+list.Keyword))
	}
	if list.Loading || list.Searching || snap.Session.Loading || snap.Favorites.Loading {
		parts = append(parts, styles.Info.Render("loading..."))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

// renderCommandBar shows the search box while typing, otherwise key hints.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	if m.searching {
		return m.searchInput.View() + styles.Faint.Render("  by "+m.kind.Label())
	}

	hints := make([]string, 0, len(m.keys.ShortHelp()))
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		hints = append(hints, styles.Warning.Render(h.Key)+" "+styles.Muted.Render(h.Desc))
	}
	hints = append(hints, styles.Faint.Render("filter: "+m.kind.Label()))
	return styles.Footer.Width(m.width).Render(strings.Join(hints, "  "))
}

// renderStrip renders favorites as one line starting at the strip offset.
func (m Model) renderStrip() string {
	styles := m.theme.Styles()
	entries := m.snapshot.Favorites.Entries
	if len(entries) == 0 {
		if m.snapshot.Session.HasToken() {
			return styles.Strip.Render(styles.Faint.Render("★ no favorites yet (s to star)"))
		}
		return styles.Strip.Render(styles.Faint.Render("★ sign in (L) to keep favorites"))
	}

	var chips []string
	for i := range entries {
		e := entries[(m.strip.offset+i)%len(entries)]
		chips = append(chips, m.renderChip(e))
	}
	line := styles.Star.Render("★ ") + strings.Join(chips, " ")
	if m.strip.running() {
		line += styles.Faint.Render("  (space to stop)")
	}
	return styles.Strip.MaxWidth(m.width).Render(line)
}

func (m Model) renderChip(e favorites.Entry) string {
	styles := m.theme.Styles()
	name := e.Name
	if name == "" {
		name = e.Code
	}
	if e.State == favorites.Synced {
		return styles.Text.Render(name)
	}
	return styles.Badge(e.State.String()).Render(name)
}

// renderList renders the visible country rows with a trailing boundary row.
func (m Model) renderList() string {
	styles := m.theme.Styles()
	list := m.snapshot.Listing
	height := m.contentHeight()

	if len(list.Visible) == 0 {
		switch {
		case list.Loading || list.Searching:
			return styles.Muted.Render("Loading countries...")
		case list.Keyword != "":
			return styles.Muted.Render("No loaded country matches #" + list.Keyword + " (x to clear)")
		default:
			return styles.Muted.Render("No countries (r to reload)")
		}
	}

	// keep the selection in view, leaving one line for the boundary row
	rows := max(height-1, 1)
	start := 0
	if m.selectedRow >= rows {
		start = m.selectedRow - rows + 1
	}
	end := min(start+rows, len(list.Visible))

	var b strings.Builder
	for i := start; i < end; i++ {
		line := m.renderRow(list.Visible[i])
		if i == m.selectedRow {
			line = styles.Selected.Width(m.width).Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.renderBoundary())
	return b.String()
}

func (m Model) renderRow(c countries.Country) string {
	star := "  "
	if state, ok := m.favorites.State(c.Code()); ok {
		star = "★ "
		if state != favorites.Synced {
			star = "☆ "
		}
	}
	return fmt.Sprintf("%s%-4s %-28s %-10s %-18s %14s",
		star,
		c.Code(),
		truncate(c.Name.Common, 28),
		truncate(c.Region, 10),
		truncate(c.PrimaryCapital(), 18),
		formatInt(c.Population),
	)
}

func (m Model) renderBoundary() string {
	styles := m.theme.Styles()
	list := m.snapshot.Listing
	switch {
	case list.Loading:
		return styles.Info.Render("  loading more...")
	case list.Mode == listing.Search:
		return styles.Faint.Render(fmt.Sprintf("  %d results (r to browse)", len(list.Countries)))
	case list.HasMore:
		return styles.Faint.Render("  scroll for more")
	default:
		return styles.Faint.Render("  end of list")
	}
}

// renderDetail renders the full record of the country picked from the list.
func (m Model) renderDetail() string {
	styles := m.theme.Styles()
	c, ok := m.detailCountry()
	if !ok {
		return styles.Muted.Render("Country is no longer loaded (esc to go back)")
	}

	title := c.Name.Common
	if state, fav := m.favorites.State(c.Code()); fav {
		title += "  " + styles.Badge(state.String()).Render("★ "+state.String())
	}

	label := styles.Muted.Width(16)
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n")
	b.WriteString(styles.Faint.Render(c.Name.Official))
	b.WriteString("\n\n")

	for _, row := range detailRows(c) {
		b.WriteString(label.Render(row[0]))
		b.WriteString(styles.Text.Render(row[1]))
		b.WriteString("\n")
	}
	return b.String()
}

func detailRows(c countries.Country) [][2]string {
	currency := "-"
	if code, cur, ok := c.PrimaryCurrency(); ok {
		currency = fmt.Sprintf("%s (%s) %s", cur.Name, code, cur.Symbol)
	}
	coords := "-"
	if len(c.LatLng) == 2 {
		coords = fmt.Sprintf("%.2f, %.2f", c.LatLng[0], c.LatLng[1])
	}
	un := "no"
	if c.UNMember {
		un = "yes"
	}

	return [][2]string{
		{"Codes", strings.TrimSpace(c.Code() + " " + c.CCA2)},
		{"Region", joinNonEmpty(" / ", c.Region, c.Subregion)},
		{"Capital", orDash(strings.Join(c.Capital, ", "))},
		{"Population", formatInt(c.Population)},
		{"Area", formatInt(int64(c.Area)) + " km²"},
		{"Currency", currency},
		{"Languages", orDash(strings.Join(c.LanguageNames(), ", "))},
		{"Coordinates", coords},
		{"Timezones", orDash(strings.Join(c.Timezones, ", "))},
		{"Borders", orDash(strings.Join(c.Borders, ", "))},
		{"Drives on", orDash(c.Car.Side)},
		{"UN member", un},
		{"FIFA", orDash(c.FIFA)},
		{"Week starts", orDash(c.StartOfWeek)},
		{"Map", orDash(c.Maps.OpenStreetMaps)},
		{"Flag", orDash(c.Flags.PNG)},
	}
}

// renderStatus shows the latest notice, falling back to component errors.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	switch {
	case m.notice != "" && m.noticeErr:
		return styles.Danger.Render(m.notice)
	case m.notice != "":
		return styles.Success.Render(m.notice)
	case snap.Listing.Err != nil:
		return styles.Danger.Render(countries.UserMessage(snap.Listing.Err))
	case snap.Favorites.Err != nil:
		return styles.Danger.Render(countries.UserMessage(snap.Favorites.Err))
	case snap.Session.Err != nil:
		return styles.Danger.Render(countries.UserMessage(snap.Session.Err))
	}
	return styles.Faint.Render(fmt.Sprintf("%d loaded · %d favorites", len(snap.Listing.Countries), len(snap.Favorites.Entries)))
}

func renderLogEntries(entries []logtail.Entry) string {
	if len(entries) == 0 {
		return "(log is empty)"
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = logtail.Format(e)
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func joinNonEmpty(sep string, values ...string) string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return orDash(strings.Join(out, sep))
}

// formatInt renders n with thousands separators.
func formatInt(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

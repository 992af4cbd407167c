// Package ui implements the atlas terminal interface with Bubble Tea.
//
// # Views
//
//   - Browse: the paged country list, the favorites strip and a search box
//   - Detail: the full record of one country with its favorite state
//   - Logs: the tail of the atlas log file
//   - Auth: a sign-in / register modal
//
// # Data Flow
//
// The model never mutates shared state itself. Key presses become tea.Cmds
// that call the session holder, favorites reconciler or listing engine off
// the update loop. Those components publish snapshots into state.Store, and
// Run forwards every store change to the program as a message so the model
// re-reads the aggregated snapshot.
//
// Errors from actions are shown on the status line using the server's
// message when there is one, and are recorded in the store so repeated
// transport failures show the offline badge.
//
// # Favorites Strip
//
// "[" and "]" start auto-scrolling the strip. Each tick carries the strip
// generation; any exit path (space, a view change, opening the search box,
// quitting) bumps the generation so queued ticks are dropped. The loop also
// stops on its own after a fixed number of steps.
//
// # Themes
//
// Themes (Nightfox, Kanagawa, Slate) cycle with "T" and persist through
// prefs together with the last search filter kind.
package ui

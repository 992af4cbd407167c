// Package state provides thread-safe state management for the atlas UI.
//
// # Overview
//
// The session holder, favorites reconciler, and listing engine each publish
// their own snapshots. The Store fans those in to one Snapshot the UI can
// render without touching any component directly.
//
//	session.Holder ───────┐
//	favorites.Reconciler ─┼──→ store.Set*() ──→ Changes() ──→ UI re-render
//	listing.Engine ───────┘          │
//	                                 └──→ Snapshot()
//
// Attach wires the subscriptions and seeds the store with current values.
//
// # Change Signals
//
// Changes returns a channel with a buffer of one. Every update does a
// non-blocking send, so a burst of updates leaves exactly one pending
// signal and the UI reads the latest Snapshot when it wakes up.
//
// # Errors
//
// Record keeps the outcome of the last user-initiated operation for the
// status line. Only transport failures count toward ConsecutiveFailures; an
// API error proves the server is reachable and resets the count. IsOffline
// reports two or more transport failures in a row.
//
// # Copying
//
// Snapshot clones the country slices and favorite entries, and computes
// FavoriteCountries by joining favorite codes against loaded countries.
// The zero Store is ready to use.
package state

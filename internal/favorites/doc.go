// Package favorites reconciles the user's favorite countries with the server.
//
// The Reconciler holds the confirmed set returned by the server plus an
// overlay of pending intents. Membership checks consult the overlay first,
// so a toggle is visible the moment it is made:
//
//	Toggle("FRA")  -> pending[FRA]=add     -> IsFavorite("FRA") == true
//	server ok      -> synced[FRA]=fav      -> pending cleared
//	server error   -> pending cleared      -> membership reverts
//
// Toggles on the same code hold a per-code lock for the whole round trip,
// so the final membership always matches the last intent. Toggles on
// different codes do not wait for each other.
//
// Refresh replaces the confirmed set wholesale. When the request fails the
// set becomes empty rather than stale. A refresh that returns after a newer
// refresh or a Clear is discarded.
//
// Resolve joins the favorite codes against countries the listing engine has
// loaded; favorites that are not loaded yet are omitted from the result.
package favorites

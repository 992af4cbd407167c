// Package session holds the authentication token and the signed-in user.
//
// The Holder is the only writer of the token. Everything that talks to the
// API reads it through Holder.Token, which satisfies countries.TokenSource,
// so a logout is visible to the next request without any rewiring.
//
// # Lifecycle
//
//	anonymous --Login/Register--> authenticating --identity ok--> authenticated
//	    ^                              |                              |
//	    +---------- failure -----------+------- Logout / 401 ---------+
//
// Login and Register persist the returned token first, then fetch the
// identity with that token, then refresh every attached Dependent (the
// favorites reconciler). A failed identity fetch is treated as an invalid
// session and performs a full Logout.
//
// Restore reads the persisted token at startup. If the token is a JWT whose
// exp claim has already passed, the holder logs out without touching the
// network.
//
// # Other processes
//
// HandleExternalChange applies a token change observed by tokenstore.Watch:
// a removal logs out, a new token is adopted and re-verified.
package session

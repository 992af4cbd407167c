// Package app is the composition root for atlas.
//
// # Overview
//
// Build wires configuration, logging, the token store, the countries API
// client and the three stateful components (session holder, favorites
// reconciler, listing engine) into a Runtime. The TUI and every headless
// subcommand share this wiring.
//
// # Wiring
//
//	config.Load ──> logging.New ──> prefs.Load
//	      │
//	      ├──> tokenstore.New
//	      ├──> countries.NewClient  (token read from the session on each request)
//	      ├──> session.New ──> favorites.New (attached as a session dependent)
//	      ├──> listing.New
//	      └──> state.Store.Attach  (fan-in of all three snapshots)
//
// The client and the session holder need each other: the holder calls the
// client to log in, and the client asks the holder for the bearer token.
// A small forwarding TokenSource is bound once both exist.
//
// # Startup
//
// Start restores the stored session and loads the first page concurrently
// with an errgroup. Neither failure is fatal; the combined outcome is
// recorded in the store so the UI can show it.
//
// StartTokenWatcher follows the token file so a login or logout made by
// another atlas process is adopted by this one.
//
// # Usage
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := app.Run(ctx, app.Options{}); err != nil {
//		log.Fatal(err)
//	}
package app

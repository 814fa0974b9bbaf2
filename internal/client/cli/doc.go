// Package cli provides the interactive sessionkeeper console.
//
// It wires configuration, the local database, the credential store, the
// selected transport and the auth service, then drives the login,
// registration and profile flows from a small REPL. A background session
// watcher logs the user out once the stored session expires and verifies a
// live session with the server on every tick.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

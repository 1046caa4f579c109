// Package cli provides the interactive storefront command-line client.
//
// It wires configuration, local storage, the API client and the session and
// catalog services into an interactive REPL. Typical flow: restore the
// previous session, then execute user commands until exit.
//
// Key features:
//   - Login / Logout, with the session kept across restarts
//   - whoami (local session), me (server view), refresh (token renewal)
//   - Product listing with paging, category filter, product details
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli

// Package client talks to the remote storefront API.
//
// # Overview
//
// The package provides:
//  1. Transport-agnostic contracts: AuthGateway (login, current user, token
//     refresh) and CatalogGateway (products and categories), combined in Client.
//  2. HTTPClient, the JSON-over-HTTP implementation. Every request goes
//     through one shared RoundTripper which attaches the bearer token read
//     from a TokenSource at call time and, when an authenticated call comes
//     back 401, notifies every OnUnauthorized subscriber before returning.
//  3. ErrorMessage, the single helper that turns any failure into a
//     user-facing message.
//
// # Error Handling
//
// Every failed exchange is a *TransportError. It wraps one of the sentinels
// ErrUnauthorized, ErrNotFound, ErrUnavailable or ErrUnexpectedResponse, so
// callers match with errors.Is and read details with errors.As.
//
// The client never retries. Requests are bounded by the configured timeout
// (10 seconds by default) and by the caller's context.
package client

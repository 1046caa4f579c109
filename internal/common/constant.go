// Package common holds the storage keys, header names and small helpers
// shared by the client packages.
package common

// Durable key-value store keys.
const (
	// AuthTokenKey holds the raw access token.
	AuthTokenKey = "authToken"
	// RefreshTokenKey holds the raw refresh token.
	RefreshTokenKey = "refreshToken"
	// SessionRecordKey holds the persisted session record
	// ({"state":{"user":...,"token":...,"isAuthenticated":...}}).
	SessionRecordKey = "auth-storage"
)

// AuthCookieName is the name of the cookie that mirrors the access token.
const AuthCookieName = "authToken"

// HTTP header names set by the transport.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
)

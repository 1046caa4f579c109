// Package models defines the wire and persisted shapes used by the client.
package models

import (
	"encoding/json"
	"strings"
)

// User is the authenticated identity as returned by the identity API.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
	Image     string `json:"image"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Credentials is a single login attempt. It is never persisted.
type Credentials struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	ExpiresInMins int    `json:"expiresInMins,omitempty"`
}

// AuthResponse is returned by login, current-user and refresh calls.
// Current-user responses carry no tokens.
type AuthResponse struct {
	User
	Token        string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UnmarshalJSON accepts the access token under "accessToken" or the older
// "token" name.
func (r *AuthResponse) UnmarshalJSON(b []byte) error {
	var raw struct {
		User
		AccessToken  string `json:"accessToken"`
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	r.User = raw.User
	r.Token = raw.AccessToken
	if r.Token == "" {
		r.Token = raw.Token
	}
	r.RefreshToken = raw.RefreshToken
	return nil
}

// RefreshRequest is the body of a token refresh.
type RefreshRequest struct {
	RefreshToken  string `json:"refreshToken"`
	ExpiresInMins int    `json:"expiresInMins,omitempty"`
}

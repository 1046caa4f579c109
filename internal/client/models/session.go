package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoStoredUser is returned when a persisted record parses but has no user.
var ErrNoStoredUser = errors.New("persisted session has no user")

// PersistedState is the durable subset of the session.
type PersistedState struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// PersistedSession is the record kept under the session record key.
type PersistedSession struct {
	State   PersistedState `json:"state"`
	Version int            `json:"version"`
}

// Marshal encodes the record.
func (p PersistedSession) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// ParsePersistedSession decodes a stored record and returns its nested user.
// Unparsable input and a record without a user are both errors.
func ParsePersistedSession(b []byte) (*PersistedSession, error) {
	var p PersistedSession
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse persisted session: %w", err)
	}
	if p.State.User == nil {
		return nil, ErrNoStoredUser
	}
	return &p, nil
}

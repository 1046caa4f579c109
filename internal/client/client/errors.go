package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("server unavailable")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// TransportError describes a remote call that did not complete successfully.
// StatusCode is zero when no response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorMessage returns the human-readable message carried by err, or
// fallback when there is none. Only the "message" of a remote error payload
// counts as a message; transport internals are never shown to the user.
func ErrorMessage(err error, fallback string) string {
	var te *TransportError
	if errors.As(err, &te) {
		if msg := strings.TrimSpace(te.Message); msg != "" {
			return msg
		}
	}
	return fallback
}

// statusError builds the TransportError for a non-2xx response.
func statusError(op string, status int, body []byte) *TransportError {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	return &TransportError{
		Op:         op,
		StatusCode: status,
		Message:    payload.Message,
		Err:        sentinelForStatus(status),
	}
}

func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return ErrUnavailable
	default:
		return ErrUnexpectedResponse
	}
}

// Package cookie keeps the client-side cookie that mirrors the access token.
//
// The cookie is stored in the durable key-value store as a Set-Cookie line
// under "cookie:<name>", so it carries its own path and expiry and outlives
// the process the same way a browser cookie would.
package cookie

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/repositories/kv"
)

const (
	// DefaultMaxAge is the lifetime of a freshly written cookie.
	DefaultMaxAge = 7 * 24 * time.Hour
	// DefaultPath scopes the cookie to the whole site.
	DefaultPath = "/"

	keyPrefix = "cookie:"
)

type Channel struct {
	repo   kv.Repository
	name   string
	path   string
	maxAge time.Duration
	now    func() time.Time
}

type Option func(*Channel)

func WithMaxAge(d time.Duration) Option {
	return func(c *Channel) { c.maxAge = d }
}

func WithPath(p string) Option {
	return func(c *Channel) { c.path = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) { c.now = now }
}

// New returns the channel for the cookie called name.
func New(repo kv.Repository, name string, opts ...Option) *Channel {
	c := &Channel{
		repo:   repo,
		name:   name,
		path:   DefaultPath,
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key is the durable store key holding the cookie.
func (c *Channel) Key() string { return keyPrefix + c.name }

// Write sets the cookie to value with the configured path and lifetime.
func (c *Channel) Write(ctx context.Context, value string) error {
	ck := &http.Cookie{
		Name:    c.name,
		Value:   value,
		Path:    c.path,
		MaxAge:  int(c.maxAge / time.Second),
		Expires: c.now().Add(c.maxAge).UTC(),
	}
	if err := ck.Valid(); err != nil {
		return fmt.Errorf("cookie %s: %w", c.name, err)
	}
	if err := c.repo.Set(ctx, c.Key(), []byte(ck.String())); err != nil {
		return fmt.Errorf("write cookie %s: %w", c.name, err)
	}
	return nil
}

// Read returns the cookie value, or "" when the cookie is absent, expired or
// unreadable.
func (c *Channel) Read(ctx context.Context) (string, error) {
	raw, err := c.repo.Get(ctx, c.Key())
	if err != nil {
		return "", fmt.Errorf("read cookie %s: %w", c.name, err)
	}
	if len(raw) == 0 {
		return "", nil
	}

	ck, err := http.ParseSetCookie(string(raw))
	if err != nil {
		return "", nil
	}
	if ck.MaxAge < 0 || (!ck.Expires.IsZero() && !c.now().Before(ck.Expires)) {
		return "", nil
	}
	return ck.Value, nil
}

// Expire overwrites the cookie with an already expired one. Expiring a
// missing cookie is not an error.
func (c *Channel) Expire(ctx context.Context) error {
	ck := &http.Cookie{
		Name:    c.name,
		Path:    c.path,
		MaxAge:  -1,
		Expires: time.Unix(0, 0).UTC(),
	}
	if err := c.repo.Set(ctx, c.Key(), []byte(ck.String())); err != nil {
		return fmt.Errorf("expire cookie %s: %w", c.name, err)
	}
	return nil
}

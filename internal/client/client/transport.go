package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/google/uuid"
)

type credentialsKey struct{}

// asCredentialExchange marks a request as a credential exchange. It is still
// decorated with the bearer token, but a 401 on it does not raise the
// unauthorized signal.
func asCredentialExchange(ctx context.Context) context.Context {
	return context.WithValue(ctx, credentialsKey{}, true)
}

func isCredentialExchange(ctx context.Context) bool {
	v, _ := ctx.Value(credentialsKey{}).(bool)
	return v
}

// authTransport decorates outgoing requests with the bearer token and a
// request id, and fans out the unauthorized signal on 401.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
	log    logging.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]UnauthorizedFunc
}

func newAuthTransport(base http.RoundTripper, tokens TokenSource, log logging.Logger) *authTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{
		base:   base,
		tokens: tokens,
		log:    log,
		subs:   make(map[int]UnauthorizedFunc),
	}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	exchange := isCredentialExchange(ctx)

	r := req.Clone(ctx)
	if r.Header.Get(common.RequestIDHeaderName) == "" {
		r.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	}

	if t.tokens != nil {
		token, err := t.tokens.AccessToken(ctx)
		switch {
		case err != nil:
			t.log.Warn(ctx, "access token lookup failed, sending request without it", "error", err)
		case token != "":
			r.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
		}
	}

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !exchange {
		t.log.Warn(ctx, "request rejected as unauthorized",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get(common.RequestIDHeaderName))
		t.notifyUnauthorized(ctx)
	}

	return resp, nil
}

func (t *authTransport) subscribe(fn UnauthorizedFunc) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *authTransport) notifyUnauthorized(ctx context.Context) {
	t.mu.RLock()
	subs := make([]UnauthorizedFunc, 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx)
	}
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

const (
	// DefaultTimeout bounds every remote call.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 64 << 10
)

type HTTPClient struct {
	baseURL       *url.URL
	http          *http.Client
	transport     *authTransport
	log           logging.Logger
	tokenLifetime int
}

// Option configures an HTTPClient.
type Option func(*options)

type options struct {
	timeout       time.Duration
	base          http.RoundTripper
	log           logging.Logger
	tokenLifetime int
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRoundTripper replaces the underlying transport (the auth decoration
// is always applied on top of it).
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTokenLifetime asks the server for tokens valid for the given number of
// minutes on login and refresh. Zero leaves the server default.
func WithTokenLifetime(minutes int) Option {
	return func(o *options) { o.tokenLifetime = minutes }
}

// NewHTTPClient builds a client for the API rooted at baseURL.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	o := options{timeout: DefaultTimeout, log: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	t := newAuthTransport(o.base, tokens, o.log)

	return &HTTPClient{
		baseURL:       u,
		http:          &http.Client{Transport: t, Timeout: o.timeout},
		transport:     t,
		log:           o.log,
		tokenLifetime: o.tokenLifetime,
	}, nil
}

// OnUnauthorized registers fn to run whenever an authenticated request is
// rejected with 401. Subscribers run before the failing call returns.
func (c *HTTPClient) OnUnauthorized(fn UnauthorizedFunc) func() {
	return c.transport.subscribe(fn)
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	if creds.ExpiresInMins == 0 {
		creds.ExpiresInMins = c.tokenLifetime
	}
	var resp models.AuthResponse
	err := c.do(asCredentialExchange(ctx), "login", http.MethodPost, "/auth/login", nil, creds, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetCurrentUser(ctx context.Context) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, "get current user", http.MethodGet, "/auth/me", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	req := models.RefreshRequest{RefreshToken: refreshToken, ExpiresInMins: c.tokenLifetime}
	var resp models.AuthResponse
	if err := c.do(asCredentialExchange(ctx), "refresh token", http.MethodPost, "/auth/refresh", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetProducts(ctx context.Context, limit, skip int) (*models.ProductsPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))

	var page models.ProductsPage
	if err := c.do(ctx, "get products", http.MethodGet, "/products", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	path := "/products/" + strconv.Itoa(id)
	if err := c.do(ctx, "get product", http.MethodGet, path, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) GetProductsByCategory(ctx context.Context, category string, limit int) (*models.ProductsPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var page models.ProductsPage
	path := "/products/category/" + url.PathEscape(category)
	if err := c.do(ctx, "get products by category", http.MethodGet, path, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) GetCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := c.do(ctx, "get categories", http.MethodGet, "/products/categories", nil, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// endpoint joins the base URL and an already escaped path.
func (c *HTTPClient) endpoint(path string, q url.Values) string {
	s := c.baseURL.String() + path
	if len(q) > 0 {
		s += "?" + q.Encode()
	}
	return s
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, q url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug(ctx, "request failed", "op", op, "error", err)
		return &TransportError{Op: op, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	c.log.Debug(ctx, "request completed",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(op, resp.StatusCode, b)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
		}
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: decode body: %w", ErrUnexpectedResponse, err)}
	}
	return nil
}

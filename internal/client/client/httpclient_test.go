package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticToken is a TokenSource whose value the test can swap between calls.
type staticToken struct {
	token atomic.Value
	err   error
}

func newStaticToken(v string) *staticToken {
	s := &staticToken{}
	s.token.Store(v)
	return s
}

func (s *staticToken) AccessToken(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.token.Load().(string), nil
}

func newTestClient(t *testing.T, h http.Handler, tokens TokenSource, opts ...Option) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL, tokens, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_PostsCredentialsWithStoredBearer(t *testing.T) {
	var gotAuth string
	var gotBody models.Credentials

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		writeJSON(w, http.StatusOK, map[string]any{
			"id": 1, "username": "emilys", "email": "emily@example.com",
			"accessToken": "abc", "refreshToken": "xyz",
		})
	})

	c := newTestClient(t, h, newStaticToken("stale"), WithTokenLifetime(30))

	resp, err := c.Login(context.Background(), models.Credentials{Username: "emilys", Password: "emilyspass"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer stale", gotAuth)
	assert.Equal(t, "emilys", gotBody.Username)
	assert.Equal(t, "emilyspass", gotBody.Password)
	assert.Equal(t, 30, gotBody.ExpiresInMins)

	assert.Equal(t, 1, resp.ID)
	assert.Equal(t, "emilys", resp.Username)
	assert.Equal(t, "abc", resp.Token)
	assert.Equal(t, "xyz", resp.RefreshToken)
}

func TestLogin_RejectedCarriesMessageAndDoesNotSignal(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	})
	c := newTestClient(t, h, newStaticToken("old"))

	var signals int32
	c.OnUnauthorized(func(context.Context) { atomic.AddInt32(&signals, 1) })

	_, err := c.Login(context.Background(), models.Credentials{Username: "emilys", Password: "bad"})
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "login", te.Op)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.Equal(t, "Invalid credentials", te.Message)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Invalid credentials", ErrorMessage(err, "Authorization error"))
	assert.Zero(t, atomic.LoadInt32(&signals))
}

func TestRefreshToken_RejectedDoesNotSignal(t *testing.T) {
	var gotAuth string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid refresh token"})
	})
	c := newTestClient(t, h, newStaticToken("old"))

	var signals int32
	c.OnUnauthorized(func(context.Context) { atomic.AddInt32(&signals, 1) })

	_, err := c.RefreshToken(context.Background(), "r1")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Bearer old", gotAuth)
	assert.Zero(t, atomic.LoadInt32(&signals))
}

func TestGetCurrentUser_ReadsTokenFreshOnEveryCall(t *testing.T) {
	var seen []string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		seen = append(seen, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "username": "emilys"})
	})
	tokens := newStaticToken("first")
	c := newTestClient(t, h, tokens)

	_, err := c.GetCurrentUser(context.Background())
	require.NoError(t, err)

	tokens.token.Store("second")
	resp, err := c.GetCurrentUser(context.Background())
	require.NoError(t, err)

	tokens.token.Store("")
	_, err = c.GetCurrentUser(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer first", "Bearer second", ""}, seen)
	assert.Equal(t, "emilys", resp.Username)
	assert.Empty(t, resp.Token)
}

func TestRefreshToken_PostsRefreshTokenWithStoredBearer(t *testing.T) {
	var gotAuth string
	var body models.RefreshRequest
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]any{"accessToken": "a2", "refreshToken": "r2"})
	})
	c := newTestClient(t, h, newStaticToken("a1"))

	resp, err := c.RefreshToken(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer a1", gotAuth)
	assert.Equal(t, "r1", body.RefreshToken)
	assert.Equal(t, "a2", resp.Token)
	assert.Equal(t, "r2", resp.RefreshToken)
}

func TestAuthenticatedCall401_SignalsSubscribers(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token Expired!"})
	})
	c := newTestClient(t, h, newStaticToken("expired"))

	var first, second int32
	c.OnUnauthorized(func(context.Context) { atomic.AddInt32(&first, 1) })
	unsubscribe := c.OnUnauthorized(func(context.Context) { atomic.AddInt32(&second, 1) })

	_, err := c.GetProducts(context.Background(), 12, 0)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualValues(t, 1, atomic.LoadInt32(&first))
	assert.EqualValues(t, 1, atomic.LoadInt32(&second))

	unsubscribe()
	_, err = c.GetCategories(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualValues(t, 2, atomic.LoadInt32(&first))
	assert.EqualValues(t, 1, atomic.LoadInt32(&second))
}

func TestTimeout_IsUnavailable(t *testing.T) {
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c := newTestClient(t, h, nil, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.GetProducts(context.Background(), 12, 0)
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "Error loading products", ErrorMessage(err, "Error loading products"))
}

func TestNonJSONErrorBody_FallsBack(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})
	c := newTestClient(t, h, nil)

	_, err := c.GetProductByID(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "fallback", ErrorMessage(err, "fallback"))
}

func TestMalformedSuccessBody_IsUnexpectedResponse(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{")
	})
	c := newTestClient(t, h, nil)

	_, err := c.GetProducts(context.Background(), 1, 0)
	require.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestCatalogRequests(t *testing.T) {
	h := http.NewServeMux()
	h.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("limit"))
		assert.Equal(t, "24", r.URL.Query().Get("skip"))
		writeJSON(w, http.StatusOK, models.ProductsPage{
			Products: []models.Product{{ID: 25, Title: "Mango"}}, Total: 194, Skip: 24, Limit: 12,
		})
	})
	h.HandleFunc("/products/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Product{ID: 7, Title: "Chanel Coco Noir"})
	})
	h.HandleFunc("/products/category/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/category/home-decoration", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, models.ProductsPage{Products: []models.Product{{ID: 1}}, Total: 5, Limit: 5})
	})
	h.HandleFunc("/products/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Category{{Slug: "beauty", Name: "Beauty"}})
	})

	c := newTestClient(t, h, nil)
	ctx := context.Background()

	page, err := c.GetProducts(ctx, 12, 24)
	require.NoError(t, err)
	assert.Equal(t, 194, page.Total)
	assert.Equal(t, "Mango", page.Products[0].Title)

	p, err := c.GetProductByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Chanel Coco Noir", p.Title)

	page, err = c.GetProductsByCategory(ctx, "home-decoration", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)

	cats, err := c.GetCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{Slug: "beauty", Name: "Beauty"}}, cats)
}

func TestGetProductByID_NotFound(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product with id '999' not found"})
	})
	c := newTestClient(t, h, nil)

	_, err := c.GetProductByID(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Product with id '999' not found", ErrorMessage(err, "x"))
}

func TestRequestID_IsAttached(t *testing.T) {
	var ids []string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(common.RequestIDHeaderName))
		writeJSON(w, http.StatusOK, []models.Category{})
	})
	c := newTestClient(t, h, nil)

	for i := 0; i < 2; i++ {
		_, err := c.GetCategories(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, ids, 2)
	assert.Len(t, ids[0], 36)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestTokenSourceError_SendsWithoutCredentials(t *testing.T) {
	var gotAuth = "unset"
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []models.Category{})
	})
	tokens := newStaticToken("abc")
	tokens.err = errors.New("db is closed")
	c := newTestClient(t, h, tokens)

	_, err := c.GetCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestNewHTTPClient_RejectsBadBaseURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://dummyjson.com", nil)
	require.Error(t, err)

	_, err = NewHTTPClient("://nope", nil)
	require.Error(t, err)

	c, err := NewHTTPClient("https://dummyjson.com/", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://dummyjson.com/auth/me", c.endpoint("/auth/me", nil))
}

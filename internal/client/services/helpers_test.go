package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/storefront/internal/client/database"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/repositories/kv"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func dbPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "storefront.db")
}

func openFileDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), path)
	require.NoError(t, err)
	return db
}

func getKV(t *testing.T, db *sql.DB, key string) []byte {
	t.Helper()
	v, err := kv.NewSQLiteRepository(db).Get(context.Background(), key)
	require.NoError(t, err)
	return v
}

func setKV(t *testing.T, db *sql.DB, key string, value []byte) {
	t.Helper()
	require.NoError(t, kv.NewSQLiteRepository(db).Set(context.Background(), key, value))
}

func emily() models.User {
	return models.User{
		ID:        1,
		Username:  "emilys",
		Email:     "emily.johnson@x.dummyjson.com",
		FirstName: "Emily",
		LastName:  "Johnson",
		Gender:    "female",
		Image:     "https://dummyjson.com/icon/emilys/128",
	}
}

// ---- fake gateway ----

// fakeGateway implements client.AuthGateway and client.CatalogGateway.
type fakeGateway struct {
	mu sync.Mutex

	LoginResp  *models.AuthResponse
	LoginErr   error
	LoginCalls int
	LastCreds  models.Credentials
	OnLogin    func()

	MeResp  *models.AuthResponse
	MeErr   error
	MeCalls int

	RefreshResp *models.AuthResponse
	RefreshErr  error
	LastRefresh string

	Page         *models.ProductsPage
	PageErr      error
	LastLimit    int
	LastSkip     int
	LastCategory string

	ProductRet *models.Product
	ProductErr error

	CategoriesRet []models.Category
	CategoriesErr error
}

func (f *fakeGateway) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	f.mu.Lock()
	f.LoginCalls++
	f.LastCreds = creds
	hook := f.OnLogin
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return f.LoginResp, f.LoginErr
}

func (f *fakeGateway) GetCurrentUser(ctx context.Context) (*models.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MeCalls++
	return f.MeResp, f.MeErr
}

func (f *fakeGateway) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastRefresh = refreshToken
	return f.RefreshResp, f.RefreshErr
}

func (f *fakeGateway) GetProducts(ctx context.Context, limit, skip int) (*models.ProductsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastLimit, f.LastSkip = limit, skip
	return f.Page, f.PageErr
}

func (f *fakeGateway) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	return f.ProductRet, f.ProductErr
}

func (f *fakeGateway) GetProductsByCategory(ctx context.Context, category string, limit int) (*models.ProductsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastCategory, f.LastLimit = category, limit
	return f.Page, f.PageErr
}

func (f *fakeGateway) GetCategories(ctx context.Context) ([]models.Category, error) {
	return f.CategoriesRet, f.CategoriesErr
}

func successfulLogin() *fakeGateway {
	return &fakeGateway{
		LoginResp: &models.AuthResponse{User: emily(), Token: "abc", RefreshToken: "xyz"},
	}
}

package client

import (
	"context"

	"github.com/dmitrijs2005/storefront/internal/client/models"
)

// AuthGateway performs the identity exchanges.
type AuthGateway interface {
	Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error)
	GetCurrentUser(ctx context.Context) (*models.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
}

// CatalogGateway reads the product catalog.
type CatalogGateway interface {
	GetProducts(ctx context.Context, limit, skip int) (*models.ProductsPage, error)
	GetProductByID(ctx context.Context, id int) (*models.Product, error)
	GetProductsByCategory(ctx context.Context, category string, limit int) (*models.ProductsPage, error)
	GetCategories(ctx context.Context) ([]models.Category, error)
}

type Client interface {
	AuthGateway
	CatalogGateway
	OnUnauthorized(fn UnauthorizedFunc) (unsubscribe func())
	Close() error
}

// TokenSource yields the current access token. It is consulted on every
// request; an empty token means the request goes out without credentials.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// UnauthorizedFunc is called when an authenticated request is rejected with 401.
type UnauthorizedFunc func(ctx context.Context)

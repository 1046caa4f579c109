package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/storefront/internal/client/client"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPageSize is the listing page size when none is given.
	DefaultPageSize = 12
	// AllCategories selects the unfiltered listing.
	AllCategories = "all"
	// DefaultCatalogErrorMessage is shown when a failed fetch carries no message.
	DefaultCatalogErrorMessage = "Error loading products"
)

// FallbackCategories is served when the category list cannot be fetched.
var FallbackCategories = []string{
	"beauty", "fragrances", "furniture", "groceries",
	"home-decoration", "kitchen-accessories", "laptops",
	"mens-shirts", "mens-shoes", "mens-watches",
	"mobile-accessories", "motorcycle", "skin-care",
	"smartphones", "sports-accessories", "sunglasses",
	"tablets", "tops", "vehicle", "womens-bags",
	"womens-dresses", "womens-jewellery", "womens-shoes",
	"womens-watches",
}

// CatalogState is a snapshot of the current product listing.
type CatalogState struct {
	Products  []models.Product
	IsLoading bool
	Error     *string
	Total     int
	Skip      int
	Limit     int
}

// CatalogService holds the product listing shown to the user.
type CatalogService struct {
	gateway  client.CatalogGateway
	log      logging.Logger
	pageSize int

	mu    sync.RWMutex
	state CatalogState
}

type CatalogOption func(*CatalogService)

func WithCatalogLogger(l logging.Logger) CatalogOption {
	return func(c *CatalogService) {
		if l != nil {
			c.log = l
		}
	}
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) CatalogOption {
	return func(c *CatalogService) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func NewCatalogService(gateway client.CatalogGateway, opts ...CatalogOption) *CatalogService {
	c := &CatalogService{
		gateway:  gateway,
		log:      logging.Discard(),
		pageSize: DefaultPageSize,
	}
	for _, o := range opts {
		o(c)
	}
	c.state.Limit = c.pageSize
	return c
}

// PageSize is the configured listing page size.
func (c *CatalogService) PageSize() int { return c.pageSize }

func (c *CatalogService) State() CatalogState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.state
	s.Products = append([]models.Product(nil), c.state.Products...)
	if c.state.Error != nil {
		e := *c.state.Error
		s.Error = &e
	}
	return s
}

func (c *CatalogService) ClearError() {
	c.mu.Lock()
	c.state.Error = nil
	c.mu.Unlock()
}

// FetchProducts loads one page of the unfiltered listing. A non-positive
// limit means the page size. The error is also recorded in the state.
func (c *CatalogService) FetchProducts(ctx context.Context, limit, skip int) error {
	if limit <= 0 {
		limit = c.pageSize
	}
	if skip < 0 {
		skip = 0
	}
	c.started()
	page, err := c.gateway.GetProducts(ctx, limit, skip)
	return c.finished(ctx, page, err)
}

// FetchProductsByCategory loads the first page of one category. The
// category "all" loads the unfiltered listing instead.
func (c *CatalogService) FetchProductsByCategory(ctx context.Context, category string, limit int) error {
	category = strings.TrimSpace(category)
	if category == "" || category == AllCategories {
		return c.FetchProducts(ctx, limit, 0)
	}
	if limit <= 0 {
		limit = c.pageSize
	}
	c.started()
	page, err := c.gateway.GetProductsByCategory(ctx, category, limit)
	return c.finished(ctx, page, err)
}

func (c *CatalogService) started() {
	c.mu.Lock()
	c.state.IsLoading = true
	c.state.Error = nil
	c.mu.Unlock()
}

func (c *CatalogService) finished(ctx context.Context, page *models.ProductsPage, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.IsLoading = false
	if err != nil {
		msg := client.ErrorMessage(err, DefaultCatalogErrorMessage)
		c.state.Error = &msg
		c.log.Warn(ctx, "loading products failed", "error", err)
		return fmt.Errorf("load products: %w", err)
	}

	c.state.Products = page.Products
	c.state.Total = page.Total
	c.state.Skip = page.Skip
	c.state.Limit = page.Limit
	return nil
}

// Product fetches a single product.
func (c *CatalogService) Product(ctx context.Context, id int) (*models.Product, error) {
	p, err := c.gateway.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return p, nil
}

// Categories returns the category slugs. Any failure yields
// FallbackCategories.
func (c *CatalogService) Categories(ctx context.Context) []string {
	cats, err := c.gateway.GetCategories(ctx)
	if err != nil {
		c.log.Warn(ctx, "fetching categories failed, using built-in list", "error", err)
		return append([]string(nil), FallbackCategories...)
	}

	slugs := make([]string, 0, len(cats))
	for _, cat := range cats {
		slugs = append(slugs, cat.Slug)
	}
	return slugs
}

// LoadHome loads the first page and the category list concurrently.
// Categories never fail; the returned error is the listing's.
func (c *CatalogService) LoadHome(ctx context.Context, limit int) ([]string, error) {
	var (
		g    errgroup.Group
		cats []string
	)
	g.Go(func() error {
		return c.FetchProducts(ctx, limit, 0)
	})
	g.Go(func() error {
		cats = c.Categories(ctx)
		return nil
	})
	err := g.Wait()
	return cats, err
}

// DisplayCategory renders a slug for display: "home-decoration" becomes
// "Home decoration".
func DisplayCategory(slug string) string {
	if slug == "" {
		return ""
	}
	r, n := utf8.DecodeRuneInString(slug)
	return string(unicode.ToUpper(r)) + strings.ReplaceAll(slug[n:], "-", " ")
}

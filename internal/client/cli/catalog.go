package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/services"
)

// Home loads the first page and the category list.
func (a *App) Home(ctx context.Context) error {
	a.category = services.AllCategories
	cats, err := a.catalog.LoadHome(ctx, a.catalog.PageSize())
	a.printCategories(cats)
	if err != nil {
		return a.reportCatalogError()
	}
	a.printListing()
	return nil
}

// Products lists one page of the unfiltered catalog. Pages count from 1.
func (a *App) Products(ctx context.Context, args []string) error {
	page := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fmt.Fprintln(a.out, "Usage: products [page]")
			return ErrInvalidInput
		}
		page = n
	}

	a.category = services.AllCategories
	size := a.catalog.PageSize()
	if err := a.catalog.FetchProducts(ctx, size, (page-1)*size); err != nil {
		return a.reportCatalogError()
	}
	a.printListing()
	return nil
}

// Category switches the listing to one category, or back to "all".
func (a *App) Category(ctx context.Context, args []string) error {
	slug := strings.ToLower(strings.TrimSpace(args[0]))

	if err := a.catalog.FetchProductsByCategory(ctx, slug, a.catalog.PageSize()); err != nil {
		return a.reportCatalogError()
	}
	a.category = slug
	a.printListing()
	return nil
}

func (a *App) Categories(ctx context.Context) error {
	a.printCategories(a.catalog.Categories(ctx))
	return nil
}

// Product prints the details of one product.
func (a *App) Product(ctx context.Context, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id < 1 {
		fmt.Fprintln(a.out, "Usage: product <id>")
		return ErrInvalidInput
	}

	p, err := a.catalog.Product(ctx, id)
	if err != nil {
		a.log.Debug(ctx, "product lookup failed", "id", id, "error", err)
		fmt.Fprintf(a.out, "Could not load product %d.\n", id)
		return err
	}
	a.printProduct(p)
	return nil
}

func (a *App) reportCatalogError() error {
	st := a.catalog.State()
	msg := services.DefaultCatalogErrorMessage
	if st.Error != nil {
		msg = *st.Error
	}
	fmt.Fprintln(a.out, msg)
	a.catalog.ClearError()
	return fmt.Errorf("%w: %s", ErrCatalog, msg)
}

func (a *App) printCategories(cats []string) {
	if len(cats) == 0 {
		return
	}
	names := make([]string, 0, len(cats)+1)
	names = append(names, "All")
	for _, c := range cats {
		names = append(names, services.DisplayCategory(c))
	}
	fmt.Fprintf(a.out, "Categories: %s\n", strings.Join(names, ", "))
}

func (a *App) printListing() {
	st := a.catalog.State()

	title := "All products"
	if a.category != services.AllCategories {
		title = services.DisplayCategory(a.category)
	}
	if len(st.Products) == 0 {
		fmt.Fprintf(a.out, "%s: nothing found.\n", title)
		return
	}

	from := st.Skip + 1
	to := st.Skip + len(st.Products)
	fmt.Fprintf(a.out, "%s (%d-%d of %d)\n", title, from, to, st.Total)
	for _, p := range st.Products {
		fmt.Fprintf(a.out, "  [%d] %s | %s | $%.2f\n", p.ID, p.Title, p.Category, p.Price)
	}
	if a.category == services.AllCategories && to < st.Total {
		size := a.catalog.PageSize()
		fmt.Fprintf(a.out, "Next page: products %d\n", st.Skip/size+2)
	}
}

func (a *App) printProduct(p *models.Product) {
	fmt.Fprintf(a.out, "[%d] %s\n", p.ID, p.Title)
	if p.Brand != "" {
		fmt.Fprintf(a.out, "Brand: %s\n", p.Brand)
	}
	fmt.Fprintf(a.out, "Category: %s\n", services.DisplayCategory(p.Category))
	fmt.Fprintf(a.out, "Price: $%.2f", p.Price)
	if p.DiscountPercentage > 0 {
		fmt.Fprintf(a.out, " (-%.2f%%)", p.DiscountPercentage)
	}
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "Rating: %.2f  Stock: %d\n", p.Rating, p.Stock)
	if p.Description != "" {
		fmt.Fprintln(a.out, p.Description)
	}
}

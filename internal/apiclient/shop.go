package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"fitnessweb/internal/models"
)

// ListCategories returns the public category list.
func (c *Caller) ListCategories(ctx context.Context) ([]models.ProductCategory, error) {
	page, err := shopCategories.list(ctx, c, nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// ListProducts returns one page of active products for the given filter query
// (page, per_page, category, search, featured).
func (c *Caller) ListProducts(ctx context.Context, query url.Values) (models.Page[models.Product], error) {
	return shopProducts.list(ctx, c, query)
}

// ProductBySlug returns one product for its detail page.
func (c *Caller) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var out models.Product
	path := "/shop/products/" + url.PathEscape(slug)
	if err := c.do(ctx, "/shop/products/:slug", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

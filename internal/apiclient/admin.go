package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"fitnessweb/internal/models"
)

// ListUsers returns one page of accounts.
func (c *Caller) ListUsers(ctx context.Context, page, perPage int) (models.Page[models.User], error) {
	return adminUsers.page(ctx, c, page, perPage)
}

// ToggleAdmin flips the admin flag of a user.
func (c *Caller) ToggleAdmin(ctx context.Context, id uint) (*models.Message, error) {
	var out models.Message
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/admin/users/%d/toggle_admin", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes an account.
func (c *Caller) DeleteUser(ctx context.Context, id uint) error {
	return adminUsers.delete(ctx, c, id)
}

// ListAdvertisements returns one page of advertisements.
func (c *Caller) ListAdvertisements(ctx context.Context, page, perPage int) (models.Page[models.Advertisement], error) {
	return adminAdvertisements.page(ctx, c, page, perPage)
}

// CreateAdvertisement creates an advertisement from a form payload.
func (c *Caller) CreateAdvertisement(ctx context.Context, payload map[string]any) (models.Advertisement, error) {
	return adminAdvertisements.create(ctx, c, payload)
}

// UpdateAdvertisement replaces an advertisement with a form payload.
func (c *Caller) UpdateAdvertisement(ctx context.Context, id uint, payload map[string]any) (models.Advertisement, error) {
	return adminAdvertisements.update(ctx, c, id, payload)
}

// DeleteAdvertisement removes an advertisement.
func (c *Caller) DeleteAdvertisement(ctx context.Context, id uint) error {
	return adminAdvertisements.delete(ctx, c, id)
}

// ListAdminCategories returns every category with its product count.
func (c *Caller) ListAdminCategories(ctx context.Context) (models.Page[models.ProductCategory], error) {
	return adminCategories.list(ctx, c, nil)
}

// CreateCategory creates a category.
func (c *Caller) CreateCategory(ctx context.Context, payload map[string]any) (models.ProductCategory, error) {
	return adminCategories.create(ctx, c, payload)
}

// UpdateCategory replaces a category.
func (c *Caller) UpdateCategory(ctx context.Context, id uint, payload map[string]any) (models.ProductCategory, error) {
	return adminCategories.update(ctx, c, id, payload)
}

// DeleteCategory removes a category. The API refuses while it still has products.
func (c *Caller) DeleteCategory(ctx context.Context, id uint) error {
	return adminCategories.delete(ctx, c, id)
}

// ListAdminProducts returns one page of products, inactive ones included.
func (c *Caller) ListAdminProducts(ctx context.Context, page, perPage int) (models.Page[models.Product], error) {
	return adminProducts.page(ctx, c, page, perPage)
}

// CreateProduct creates a product.
func (c *Caller) CreateProduct(ctx context.Context, payload map[string]any) (models.Product, error) {
	return adminProducts.create(ctx, c, payload)
}

// UpdateProduct replaces a product.
func (c *Caller) UpdateProduct(ctx context.Context, id uint, payload map[string]any) (models.Product, error) {
	return adminProducts.update(ctx, c, id, payload)
}

// DeleteProduct removes a product.
func (c *Caller) DeleteProduct(ctx context.Context, id uint) error {
	return adminProducts.delete(ctx, c, id)
}

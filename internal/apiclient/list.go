package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"fitnessweb/internal/models"
)

// DecodeEnvelope reads a paginated envelope whose items live under key:
// {"<key>": [...], "total_<key>": n, "current_page": p, "total_pages": t}.
func DecodeEnvelope[T any](raw []byte, key string) (models.Page[T], error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.Page[T]{}, fmt.Errorf("decode %s envelope: %w", key, err)
	}

	var page models.Page[T]
	if itemsRaw, ok := fields[key]; ok && string(itemsRaw) != "null" {
		if err := json.Unmarshal(itemsRaw, &page.Items); err != nil {
			return models.Page[T]{}, fmt.Errorf("decode %s items: %w", key, err)
		}
	}
	var meta models.Envelope
	if err := json.Unmarshal(raw, &meta); err != nil {
		return models.Page[T]{}, fmt.Errorf("decode %s pagination: %w", key, err)
	}
	page.CurrentPage = meta.CurrentPage
	page.TotalPages = meta.TotalPages
	if totalRaw, ok := fields["total_"+key]; ok {
		_ = json.Unmarshal(totalRaw, &page.Total)
	} else {
		page.Total = len(page.Items)
	}
	if page.CurrentPage == 0 {
		page.CurrentPage = 1
	}
	return page, nil
}

// DecodeArray reads a bare JSON array as a single page.
func DecodeArray[T any](raw []byte) (models.Page[T], error) {
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return models.Page[T]{}, fmt.Errorf("decode list: %w", err)
	}
	return models.Page[T]{Items: items, CurrentPage: 1, TotalPages: 1, Total: len(items)}, nil
}

// collection is the generic CRUD surface of one admin resource. An empty key
// means the API answers lists with a bare array.
type collection[T any] struct {
	path string
	key  string
}

func (col collection[T]) list(ctx context.Context, c *Caller, query url.Values) (models.Page[T], error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, col.path, query, nil, &raw); err != nil {
		return models.Page[T]{}, err
	}
	if col.key == "" {
		return DecodeArray[T](raw)
	}
	return DecodeEnvelope[T](raw, col.key)
}

func (col collection[T]) page(ctx context.Context, c *Caller, page, perPage int) (models.Page[T], error) {
	return col.list(ctx, c, pageQuery(page, perPage))
}

func (col collection[T]) create(ctx context.Context, c *Caller, payload any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPost, col.path, nil, payload, &out)
	return out, err
}

func (col collection[T]) update(ctx context.Context, c *Caller, id uint, payload any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPut, col.itemPath(id), nil, payload, &out)
	return out, err
}

func (col collection[T]) delete(ctx context.Context, c *Caller, id uint) error {
	return c.Do(ctx, http.MethodDelete, col.itemPath(id), nil, nil, nil)
}

func (col collection[T]) itemPath(id uint) string {
	return col.path + "/" + strconv.FormatUint(uint64(id), 10)
}

func pageQuery(page, perPage int) url.Values {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	return q
}

var (
	adminUsers          = collection[models.User]{path: "/admin/users", key: "users"}
	adminAdvertisements = collection[models.Advertisement]{path: "/admin/advertisements", key: "advertisements"}
	adminCategories     = collection[models.ProductCategory]{path: "/admin/shop/categories"}
	adminProducts       = collection[models.Product]{path: "/admin/shop/products", key: "products"}
	shopCategories      = collection[models.ProductCategory]{path: "/shop/categories"}
	shopProducts        = collection[models.Product]{path: "/shop/products", key: "products"}
)

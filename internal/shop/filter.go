// Package shop holds the catalogue filter state shared by the shop page and
// its pagination links.
package shop

import (
	"net/url"
	"strconv"
	"strings"

	"fitnessweb/internal/models"
)

// Path is the shop listing route.
const Path = "/shop"

// Filter is the shop's query state. Every filter change returns a copy with
// Page reset to 1; only WithPage moves between pages.
type Filter struct {
	Category string
	Search   string
	Featured bool
	Page     int
}

// Parse reads a filter from query or form values. Bad or missing pages
// become 1.
func Parse(get func(key string) string) Filter {
	f := Filter{
		Category: strings.TrimSpace(get("category")),
		Search:   strings.TrimSpace(get("search")),
		Featured: parseBool(get("featured")),
		Page:     1,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(get("page"))); err == nil && n > 1 {
		f.Page = n
	}
	return f
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

// WithCategory selects a category slug; empty means all categories.
func (f Filter) WithCategory(slug string) Filter {
	f.Category = strings.TrimSpace(slug)
	f.Page = 1
	return f
}

// WithSearch sets the search text.
func (f Filter) WithSearch(q string) Filter {
	f.Search = strings.TrimSpace(q)
	f.Page = 1
	return f
}

// ToggleFeatured flips the featured-only switch.
func (f Filter) ToggleFeatured() Filter {
	f.Featured = !f.Featured
	f.Page = 1
	return f
}

// WithPage moves to page n, keeping the other filters.
func (f Filter) WithPage(n int) Filter {
	if n < 1 {
		n = 1
	}
	f.Page = n
	return f
}

// Query is the API query for the product list.
func (f Filter) Query(perPage int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(f.Page, 1)))
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Featured {
		q.Set("featured", "true")
	}
	return q
}

// URL is the browser address of this filter. Defaults are omitted.
func (f Filter) URL() string {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Featured {
		q.Set("featured", "true")
	}
	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if len(q) == 0 {
		return Path
	}
	return Path + "?" + q.Encode()
}

// Pager drives the shop pagination controls.
type Pager struct {
	Current int
	Total   int
	HasPrev bool
	HasNext bool
	PrevURL string
	NextURL string
}

// NewPager builds the controls from the page echoed by the API.
func NewPager[T any](f Filter, page models.Page[T]) Pager {
	p := Pager{
		Current: page.CurrentPage,
		Total:   page.TotalPages,
		HasPrev: page.HasPrev(),
		HasNext: page.HasNext(),
	}
	if p.HasPrev {
		p.PrevURL = f.WithPage(page.PrevPage()).URL()
	}
	if p.HasNext {
		p.NextURL = f.WithPage(page.NextPage()).URL()
	}
	return p
}

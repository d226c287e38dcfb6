package models

// Page is one server-paginated slice of a list. Page numbers are echoed by
// the API and never computed locally.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	Total       int `json:"total"`
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool {
	return p.CurrentPage > 1
}

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// PrevPage is the page before the current one.
func (p Page[T]) PrevPage() int {
	return p.CurrentPage - 1
}

// NextPage is the page after the current one.
func (p Page[T]) NextPage() int {
	return p.CurrentPage + 1
}

// Empty reports whether the page holds no items.
func (p Page[T]) Empty() bool {
	return len(p.Items) == 0
}

// Envelope is the pagination metadata the API attaches to list responses.
type Envelope struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

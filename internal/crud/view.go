package crud

import (
	"fmt"
	"net/url"
	"strconv"
)

// Dialog modes.
const (
	ModeCreate = "create"
	ModeEdit   = "edit"
	ModeDelete = "delete"
)

// ListView is everything the generic admin list template renders.
type ListView struct {
	Title     string
	Singular  string
	BasePath  string
	Paginated bool
	Creatable bool
	Editable  bool
	Deletable bool

	Columns []string
	Rows    []RowView
	Page    PageView

	// LoadError is the banner text of a failed fetch. With Stale set the
	// rows are the last good page; without it there are no rows.
	LoadError string
	Stale     bool

	Dialog *DialogView
}

// RowView is one table row.
type RowView struct {
	ID      uint
	Cells   []string
	Actions []ActionView
}

// ActionView is a rendered RowAction.
type ActionView struct {
	Label  string
	Action string
}

// PageView drives the pagination controls.
type PageView struct {
	Current int
	Total   int
	Count   int
	HasPrev bool
	HasNext bool
	PrevURL string
	NextURL string
}

// DialogView is the open create/edit/delete dialog.
type DialogView struct {
	Mode      string
	Title     string
	Action    string
	CancelURL string
	Page      int
	Fields    []FieldView
	// Error is the server or local message shown inside the dialog.
	Error     string
	ItemLabel string
	// Blocked hides the confirm button of a delete dialog.
	Blocked bool
}

// FieldView is one rendered input with its current value and error.
type FieldView struct {
	Field
	Value   string
	Error   string
	Checked bool
	Choices []Option
}

func listURL(base string, page int) string {
	if page <= 1 {
		return base
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	return base + "?" + q.Encode()
}

func itemURL(base string, id uint, suffix string) string {
	return fmt.Sprintf("%s/%d%s", base, id, suffix)
}

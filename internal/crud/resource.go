// Package crud is the generic admin list+dialog controller. A Resource
// describes one entity (fields, columns, API operations) and Controller
// serves its list, create/edit dialog, delete confirmation and pagination.
package crud

import (
	"context"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/models"
	"fitnessweb/internal/validation"
)

// FieldKind selects the input rendered for a Field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindNumber   FieldKind = "number"
	KindDecimal  FieldKind = "decimal"
	KindCheckbox FieldKind = "checkbox"
	KindDatetime FieldKind = "datetime"
	KindSelect   FieldKind = "select"
	KindEmail    FieldKind = "email"
	KindURL      FieldKind = "url"
)

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field is one input of the create/edit dialog.
type Field struct {
	Name        string
	Label       string
	Kind        FieldKind
	Required    bool
	Placeholder string
	// Options loads the choices of a select field when the dialog opens.
	Options func(ctx context.Context, caller *apiclient.Caller) ([]Option, error)
}

// Column is one table column.
type Column[T any] struct {
	Label string
	Value func(T) string
}

// RowAction is an extra per-row POST button, e.g. toggling a user's role.
type RowAction[T any] struct {
	Label  func(T) string
	Path   func(T) string
	Hidden func(actor uint, item T) bool
}

// Ops are the API operations behind a resource. Create and Update may be
// nil for read-only resources; Delete may be nil when rows cannot be removed.
type Ops[T any] struct {
	List   func(ctx context.Context, caller *apiclient.Caller, page, perPage int) (models.Page[T], error)
	Create func(ctx context.Context, caller *apiclient.Caller, payload map[string]any) error
	Update func(ctx context.Context, caller *apiclient.Caller, id uint, payload map[string]any) error
	Delete func(ctx context.Context, caller *apiclient.Caller, id uint) error
}

// Messages are the Portuguese notifications of a resource.
type Messages struct {
	Created      string
	Updated      string
	Deleted      string
	LoadFailed   string
	SaveFailed   string
	DeleteFailed string
	NotFound     string
}

// Resource configures a Controller for entity type T.
type Resource[T any] struct {
	// Name keys snapshots and must be unique per resource.
	Name      string
	Title     string
	Singular  string
	BasePath  string
	Paginated bool

	Fields     []Field
	Columns    []Column[T]
	RowActions []RowAction[T]
	Ops        Ops[T]
	Messages   Messages

	ID    func(T) uint
	Label func(T) string
	// ToForm seeds the edit dialog from an item.
	ToForm func(T) validation.Values
	// FromForm maps submitted values to the API payload. A
	// validation.FieldErrors result keeps the dialog open without any request.
	FromForm func(validation.Values) (map[string]any, error)
	// CanDelete is a local hint checked before the API is asked; the API
	// still has the final word.
	CanDelete func(actor uint, item T) error
}

// Creatable reports whether the list offers a create dialog.
func (r *Resource[T]) Creatable() bool {
	return r.Ops.Create != nil && len(r.Fields) > 0
}

// Editable reports whether rows offer an edit dialog.
func (r *Resource[T]) Editable() bool {
	return r.Ops.Update != nil && len(r.Fields) > 0
}

// Deletable reports whether rows offer a delete button.
func (r *Resource[T]) Deletable() bool {
	return r.Ops.Delete != nil
}

func (r *Resource[T]) find(items []T, id uint) (T, bool) {
	for _, item := range items {
		if r.ID(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (r *Resource[T]) label(item T) string {
	if r.Label != nil {
		return r.Label(item)
	}
	return r.Singular
}

func (r *Resource[T]) formValues(get func(string) string) validation.Values {
	values := make(validation.Values, len(r.Fields))
	for _, f := range r.Fields {
		values[f.Name] = get(f.Name)
	}
	return values
}

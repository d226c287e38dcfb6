package crud

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/cache"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/models"
	"fitnessweb/internal/observability"
	"fitnessweb/internal/session"
	"fitnessweb/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Template is the page every resource renders through.
const Template = "admin/resource"

// Layout wraps admin pages.
const Layout = "layouts/admin"

// Sessions is the slice of the session manager the controller needs.
type Sessions interface {
	Caller(c *fiber.Ctx) (*apiclient.Caller, error)
	PersistCookies(c *fiber.Ctx, caller *apiclient.Caller) error
	Flash(c *fiber.Ctx, kind, msg string) error
	SessionID(c *fiber.Ctx) string
}

// RenderFunc renders a page with the shared layout data added.
type RenderFunc func(c *fiber.Ctx, name string, data fiber.Map, layout ...string) error

// Deps are the collaborators shared by every Controller.
type Deps struct {
	Sessions  Sessions
	Snapshots cache.JSONStore
	Render    RenderFunc
	PerPage   int
}

// Controller serves one Resource.
type Controller[T any] struct {
	res  *Resource[T]
	deps Deps
}

// NewController binds a resource to the shared dependencies.
func NewController[T any](res *Resource[T], deps Deps) *Controller[T] {
	if deps.PerPage <= 0 {
		deps.PerPage = 10
	}
	return &Controller[T]{res: res, deps: deps}
}

// Register mounts the resource routes on r, which is already guarded.
func (ctl *Controller[T]) Register(r fiber.Router) {
	r.Get("/", ctl.List)
	r.Get("/:id/edit", ctl.Edit)
	r.Get("/:id/delete", ctl.ConfirmDelete)
	r.Post("/:id/delete", ctl.Delete)
	r.Post("/", ctl.Create)
	r.Post("/:id", ctl.Update)
}

// List renders one page. ?mode=create opens the empty create dialog.
func (ctl *Controller[T]) List(c *fiber.Ctx) error {
	if c.Query("mode") == ModeCreate {
		return ctl.New(c)
	}
	view, _, err := ctl.load(c, ctl.pageParam(c.QueryInt("page", 1)))
	if err != nil {
		return err
	}
	return ctl.render(c, view)
}

// New renders the list with the create dialog open.
func (ctl *Controller[T]) New(c *fiber.Ctx) error {
	page := ctl.pageParam(c.QueryInt("page", 1))
	view, _, err := ctl.load(c, page)
	if err != nil {
		return err
	}
	if ctl.res.Creatable() {
		view.Dialog = ctl.formDialog(c, ModeCreate, 0, page, validation.Values{}, nil, "")
	}
	return ctl.render(c, view)
}

// Edit renders the list with the edit dialog seeded from the selected row.
func (ctl *Controller[T]) Edit(c *fiber.Ctx) error {
	id, ok := ctl.idParam(c)
	if !ok || !ctl.res.Editable() {
		return ctl.redirect(c, 1)
	}
	page := ctl.pageParam(c.QueryInt("page", 1))
	view, items, err := ctl.load(c, page)
	if err != nil {
		return err
	}
	if view.LoadError != "" && !view.Stale {
		return ctl.render(c, view)
	}

	item, found := ctl.res.find(items, id)
	if !found {
		ctl.flash(c, session.FlashError, ctl.res.Messages.NotFound)
		return ctl.redirect(c, page)
	}
	view.Dialog = ctl.formDialog(c, ModeEdit, id, page, ctl.res.ToForm(item), nil, "")
	return ctl.render(c, view)
}

// Create validates the dialog and posts it. Failures keep the dialog open.
func (ctl *Controller[T]) Create(c *fiber.Ctx) error {
	if !ctl.res.Creatable() {
		return ctl.redirect(c, 1)
	}
	return ctl.submit(c, ModeCreate, 0)
}

// Update validates the dialog and puts it.
func (ctl *Controller[T]) Update(c *fiber.Ctx) error {
	id, ok := ctl.idParam(c)
	if !ok || !ctl.res.Editable() {
		return ctl.redirect(c, 1)
	}
	return ctl.submit(c, ModeEdit, id)
}

func (ctl *Controller[T]) submit(c *fiber.Ctx, mode string, id uint) error {
	page := ctl.pageParam(formInt(c, "page"))
	values := ctl.res.formValues(func(k string) string { return c.FormValue(k) })

	payload, err := ctl.res.FromForm(values)
	if err != nil {
		var fieldErrs validation.FieldErrors
		msg := ""
		if !errors.As(err, &fieldErrs) {
			msg = err.Error()
		}
		return ctl.reopen(c, fiber.StatusUnprocessableEntity, mode, id, page, values, fieldErrs, msg)
	}

	caller, err := ctl.deps.Sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	success := ctl.res.Messages.Created
	if mode == ModeCreate {
		err = ctl.res.Ops.Create(ctx, caller, payload)
	} else {
		err = ctl.res.Ops.Update(ctx, caller, id, payload)
		success = ctl.res.Messages.Updated
	}
	ctl.persist(c, caller)

	if err != nil {
		middleware.Logger.WarnContext(ctx, "admin save failed",
			slog.String("resource", ctl.res.Name),
			slog.String("mode", mode),
			slog.String("error", err.Error()),
		)
		return ctl.reopen(c, upstreamStatus(err), mode, id, page, values, nil,
			apiclient.MessageOr(err, ctl.res.Messages.SaveFailed))
	}

	ctl.flash(c, session.FlashSuccess, success)
	return ctl.redirect(c, page)
}

func (ctl *Controller[T]) reopen(c *fiber.Ctx, status int, mode string, id uint, page int, values validation.Values, fieldErrs validation.FieldErrors, msg string) error {
	view, _, err := ctl.load(c, page)
	if err != nil {
		return err
	}
	view.Dialog = ctl.formDialog(c, mode, id, page, values, fieldErrs, msg)
	c.Status(status)
	return ctl.render(c, view)
}

// ConfirmDelete renders the delete confirmation for one row.
func (ctl *Controller[T]) ConfirmDelete(c *fiber.Ctx) error {
	id, ok := ctl.idParam(c)
	if !ok || !ctl.res.Deletable() {
		return ctl.redirect(c, 1)
	}
	page := ctl.pageParam(c.QueryInt("page", 1))
	view, items, err := ctl.load(c, page)
	if err != nil {
		return err
	}
	if view.LoadError != "" && !view.Stale {
		return ctl.render(c, view)
	}

	item, found := ctl.res.find(items, id)
	if !found {
		ctl.flash(c, session.FlashError, ctl.res.Messages.NotFound)
		return ctl.redirect(c, page)
	}

	dialog := &DialogView{
		Mode:      ModeDelete,
		Title:     "Eliminar " + ctl.res.Singular,
		Action:    itemURL(ctl.res.BasePath, id, "/delete"),
		CancelURL: listURL(ctl.res.BasePath, page),
		Page:      page,
		ItemLabel: ctl.res.label(item),
	}
	if hint := ctl.canDelete(c, item); hint != nil {
		dialog.Error = hint.Error()
		dialog.Blocked = true
	}
	view.Dialog = dialog
	return ctl.render(c, view)
}

// Delete removes a row after the local hint passes, then returns to the list.
func (ctl *Controller[T]) Delete(c *fiber.Ctx) error {
	id, ok := ctl.idParam(c)
	if !ok || !ctl.res.Deletable() {
		return ctl.redirect(c, 1)
	}
	page := ctl.pageParam(formInt(c, "page"))

	caller, err := ctl.deps.Sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	if ctl.res.CanDelete != nil {
		if current, err := ctl.res.Ops.List(ctx, caller, page, ctl.deps.PerPage); err == nil {
			if item, found := ctl.res.find(current.Items, id); found {
				if hint := ctl.canDelete(c, item); hint != nil {
					ctl.flash(c, session.FlashError, hint.Error())
					return ctl.redirect(c, page)
				}
			}
		}
	}

	err = ctl.res.Ops.Delete(ctx, caller, id)
	ctl.persist(c, caller)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "admin delete failed",
			slog.String("resource", ctl.res.Name),
			slog.Uint64("id", uint64(id)),
			slog.String("error", err.Error()),
		)
		ctl.flash(c, session.FlashError, apiclient.MessageOr(err, ctl.res.Messages.DeleteFailed))
		return ctl.redirect(c, page)
	}

	ctl.flash(c, session.FlashSuccess, ctl.res.Messages.Deleted)
	return ctl.redirect(c, page)
}

// load fetches one page and builds the list view. A failed fetch falls back
// to the session's last good page when there is one. Only infrastructure
// failures are returned as errors.
func (ctl *Controller[T]) load(c *fiber.Ctx, page int) (*ListView, []T, error) {
	caller, err := ctl.deps.Sessions.Caller(c)
	if err != nil {
		return nil, nil, err
	}
	ctx := c.UserContext()
	view := ctl.baseView()

	result, err := ctl.res.Ops.List(ctx, caller, page, ctl.deps.PerPage)
	ctl.persist(c, caller)
	if err == nil {
		ctl.saveSnapshot(c, result)
		ctl.fill(c, view, result)
		return view, result.Items, nil
	}

	if errors.Is(err, context.Canceled) {
		return nil, nil, err
	}

	msg := apiclient.MessageOr(err, ctl.res.Messages.LoadFailed)
	middleware.Logger.WarnContext(ctx, "admin list fetch failed",
		slog.String("resource", ctl.res.Name),
		slog.Int("page", page),
		slog.String("error", err.Error()),
	)
	ctl.flash(c, session.FlashError, msg)
	view.LoadError = msg

	if snap, ok := ctl.snapshot(c); ok {
		observability.StaleListRenders.WithLabelValues(ctl.res.Name).Inc()
		view.Stale = true
		ctl.fill(c, view, snap)
		return view, snap.Items, nil
	}
	return view, nil, nil
}

func (ctl *Controller[T]) baseView() *ListView {
	view := &ListView{
		Title:     ctl.res.Title,
		Singular:  ctl.res.Singular,
		BasePath:  ctl.res.BasePath,
		Paginated: ctl.res.Paginated,
		Creatable: ctl.res.Creatable(),
		Editable:  ctl.res.Editable(),
		Deletable: ctl.res.Deletable(),
	}
	for _, col := range ctl.res.Columns {
		view.Columns = append(view.Columns, col.Label)
	}
	return view
}

func (ctl *Controller[T]) fill(c *fiber.Ctx, view *ListView, page models.Page[T]) {
	actor := actorID(c)
	view.Rows = make([]RowView, 0, len(page.Items))
	for _, item := range page.Items {
		row := RowView{ID: ctl.res.ID(item)}
		for _, col := range ctl.res.Columns {
			row.Cells = append(row.Cells, col.Value(item))
		}
		for _, action := range ctl.res.RowActions {
			if action.Hidden != nil && action.Hidden(actor, item) {
				continue
			}
			row.Actions = append(row.Actions, ActionView{Label: action.Label(item), Action: action.Path(item)})
		}
		view.Rows = append(view.Rows, row)
	}

	view.Page = PageView{
		Current: page.CurrentPage,
		Total:   page.TotalPages,
		Count:   page.Total,
		HasPrev: page.HasPrev(),
		HasNext: page.HasNext(),
	}
	if page.HasPrev() {
		view.Page.PrevURL = listURL(ctl.res.BasePath, page.PrevPage())
	}
	if page.HasNext() {
		view.Page.NextURL = listURL(ctl.res.BasePath, page.NextPage())
	}
}

func (ctl *Controller[T]) formDialog(c *fiber.Ctx, mode string, id uint, page int, values validation.Values, fieldErrs validation.FieldErrors, msg string) *DialogView {
	dialog := &DialogView{
		Mode:      mode,
		Action:    ctl.res.BasePath,
		CancelURL: listURL(ctl.res.BasePath, page),
		Page:      page,
		Error:     msg,
	}
	if mode == ModeEdit {
		dialog.Title = "Editar " + ctl.res.Singular
		dialog.Action = itemURL(ctl.res.BasePath, id, "")
	} else {
		dialog.Title = "Criar " + ctl.res.Singular
	}

	var caller *apiclient.Caller
	for _, f := range ctl.res.Fields {
		fv := FieldView{Field: f, Value: values[f.Name], Error: fieldErrs[f.Name]}
		if f.Kind == KindCheckbox {
			fv.Checked = validation.Checkbox(fv.Value)
		}
		if f.Options != nil {
			if caller == nil {
				caller, _ = ctl.deps.Sessions.Caller(c)
			}
			if caller != nil {
				opts, err := f.Options(c.UserContext(), caller)
				if err != nil {
					middleware.Logger.WarnContext(c.UserContext(), "load field options failed",
						slog.String("resource", ctl.res.Name),
						slog.String("field", f.Name),
						slog.String("error", err.Error()),
					)
				}
				fv.Choices = opts
			}
		}
		dialog.Fields = append(dialog.Fields, fv)
	}
	return dialog
}

func (ctl *Controller[T]) canDelete(c *fiber.Ctx, item T) error {
	if ctl.res.CanDelete == nil {
		return nil
	}
	return ctl.res.CanDelete(actorID(c), item)
}

func (ctl *Controller[T]) snapshotKey(c *fiber.Ctx) string {
	sid := ctl.deps.Sessions.SessionID(c)
	if sid == "" || ctl.deps.Snapshots == nil {
		return ""
	}
	return cache.SnapshotKey(sid, ctl.res.Name)
}

func (ctl *Controller[T]) saveSnapshot(c *fiber.Ctx, page models.Page[T]) {
	key := ctl.snapshotKey(c)
	if key == "" {
		return
	}
	if err := ctl.deps.Snapshots.SetJSON(c.UserContext(), key, page, cache.SnapshotTTL); err != nil {
		middleware.Logger.DebugContext(c.UserContext(), "list snapshot not saved",
			slog.String("resource", ctl.res.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (ctl *Controller[T]) snapshot(c *fiber.Ctx) (models.Page[T], bool) {
	var page models.Page[T]
	key := ctl.snapshotKey(c)
	if key == "" {
		return page, false
	}
	found, err := ctl.deps.Snapshots.GetJSON(c.UserContext(), key, &page)
	if err != nil || !found {
		return page, false
	}
	return page, true
}

func (ctl *Controller[T]) render(c *fiber.Ctx, view *ListView) error {
	return ctl.deps.Render(c, Template, fiber.Map{
		"Title": view.Title,
		"View":  view,
	}, Layout)
}

func (ctl *Controller[T]) redirect(c *fiber.Ctx, page int) error {
	return c.Redirect(listURL(ctl.res.BasePath, page), fiber.StatusSeeOther)
}

func (ctl *Controller[T]) flash(c *fiber.Ctx, kind, msg string) {
	if msg == "" {
		return
	}
	if err := ctl.deps.Sessions.Flash(c, kind, msg); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "flash not stored", slog.String("error", err.Error()))
	}
}

func (ctl *Controller[T]) persist(c *fiber.Ctx, caller *apiclient.Caller) {
	if err := ctl.deps.Sessions.PersistCookies(c, caller); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "api cookies not persisted", slog.String("error", err.Error()))
	}
}

func (ctl *Controller[T]) pageParam(page int) int {
	if !ctl.res.Paginated || page < 1 {
		return 1
	}
	return page
}

func (ctl *Controller[T]) idParam(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func formInt(c *fiber.Ctx, key string) int {
	n, err := strconv.Atoi(c.FormValue(key))
	if err != nil {
		return 1
	}
	return n
}

func actorID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// upstreamStatus maps an API rejection to the status of the re-rendered
// dialog: client errors pass through, anything else is a bad gateway.
func upstreamStatus(err error) int {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	return fiber.StatusBadGateway
}

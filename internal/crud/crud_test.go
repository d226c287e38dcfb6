package crud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/cache"
	"fitnessweb/internal/models"
	"fitnessweb/internal/observability"
	"fitnessweb/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Active   bool   `json:"is_active"`
	Products int    `json:"product_count"`
}

type widgetAPI struct {
	mu        sync.Mutex
	widgets   []widget
	failList  bool
	posted    []map[string]any
	deleted   []uint
	listCalls int
}

func (a *widgetAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/widgets":
		a.listCalls++
		if a.failList {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Base de dados indisponível"})
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, map[string]any{
			"widgets":       a.widgets,
			"total_widgets": 25,
			"current_page":  page,
			"total_pages":   3,
		})
	case r.Method == http.MethodPost && r.URL.Path == "/api/widgets":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["name"] == "dup" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Nome já existe"})
			return
		}
		a.posted = append(a.posted, body)
		writeJSON(w, http.StatusCreated, body)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/widgets/"):
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.posted = append(a.posted, body)
		writeJSON(w, http.StatusOK, body)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/widgets/"):
		id, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/widgets/"))
		a.deleted = append(a.deleted, uint(id))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type stubSessions struct {
	client  *apiclient.Client
	sid     string
	flashes []string
}

func (s *stubSessions) Caller(*fiber.Ctx) (*apiclient.Caller, error) { return s.client.For(nil), nil }

func (s *stubSessions) PersistCookies(*fiber.Ctx, *apiclient.Caller) error { return nil }

func (s *stubSessions) Flash(_ *fiber.Ctx, kind, msg string) error {
	s.flashes = append(s.flashes, kind+":"+msg)
	return nil
}

func (s *stubSessions) SessionID(*fiber.Ctx) string { return s.sid }

func widgetResource() *Resource[widget] {
	return &Resource[widget]{
		Name:      "widgets",
		Title:     "Gerir Widgets",
		Singular:  "widget",
		BasePath:  "/admin/widgets",
		Paginated: true,
		Fields: []Field{
			{Name: "name", Label: "Nome", Kind: KindText, Required: true},
			{Name: "price", Label: "Preço", Kind: KindDecimal, Required: true},
			{Name: "is_active", Label: "Ativo", Kind: KindCheckbox},
		},
		Columns: []Column[widget]{
			{Label: "Nome", Value: func(w widget) string { return w.Name }},
			{Label: "Preço", Value: func(w widget) string { return w.Price }},
		},
		Ops: Ops[widget]{
			List: func(ctx context.Context, caller *apiclient.Caller, page, perPage int) (models.Page[widget], error) {
				var raw json.RawMessage
				q := url.Values{"page": {strconv.Itoa(page)}, "per_page": {strconv.Itoa(perPage)}}
				if err := caller.Do(ctx, http.MethodGet, "/widgets", q, nil, &raw); err != nil {
					return models.Page[widget]{}, err
				}
				return apiclient.DecodeEnvelope[widget](raw, "widgets")
			},
			Create: func(ctx context.Context, caller *apiclient.Caller, payload map[string]any) error {
				return caller.Do(ctx, http.MethodPost, "/widgets", nil, payload, nil)
			},
			Update: func(ctx context.Context, caller *apiclient.Caller, id uint, payload map[string]any) error {
				return caller.Do(ctx, http.MethodPut, "/widgets/"+strconv.Itoa(int(id)), nil, payload, nil)
			},
			Delete: func(ctx context.Context, caller *apiclient.Caller, id uint) error {
				return caller.Do(ctx, http.MethodDelete, "/widgets/"+strconv.Itoa(int(id)), nil, nil, nil)
			},
		},
		Messages: Messages{
			Created:      "Widget criado.",
			Updated:      "Widget atualizado.",
			Deleted:      "Widget eliminado.",
			LoadFailed:   "Falha ao carregar widgets.",
			SaveFailed:   "Falha ao guardar widget.",
			DeleteFailed: "Falha ao eliminar widget.",
			NotFound:     "Widget não encontrado.",
		},
		ID:    func(w widget) uint { return w.ID },
		Label: func(w widget) string { return w.Name },
		ToForm: func(w widget) validation.Values {
			active := ""
			if w.Active {
				active = "on"
			}
			return validation.Values{"name": w.Name, "price": w.Price, "is_active": active}
		},
		FromForm: func(v validation.Values) (map[string]any, error) {
			errs := validation.Required(v, "name", "price")
			price, err := validation.Decimal(v.Get("price"))
			if err != nil && v.Get("price") != "" {
				errs.Add("price", validation.MsgInvalidPrice)
			}
			if err := errs.Err(); err != nil {
				return nil, err
			}
			return map[string]any{
				"name":      v.Get("name"),
				"price":     price,
				"is_active": validation.Checkbox(v.Get("is_active")),
			}, nil
		},
		CanDelete: func(_ uint, w widget) error {
			if w.Products > 0 {
				return errors.New("Não pode eliminar widgets com produtos.")
			}
			return nil
		},
	}
}

type crudEnv struct {
	app      *fiber.App
	api      *widgetAPI
	sessions *stubSessions
	view     *ListView
}

func newCrudEnv(t *testing.T) *crudEnv {
	t.Helper()
	api := &widgetAPI{widgets: []widget{
		{ID: 1, Name: "Halteres", Price: "19.90", Active: true},
		{ID: 2, Name: "Suplementos", Price: "29.90", Products: 4},
	}}
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	client, err := apiclient.New(ts.URL+"/api", 2*time.Second)
	require.NoError(t, err)

	env := &crudEnv{api: api, sessions: &stubSessions{client: client, sid: "sess-1"}}
	ctl := NewController(widgetResource(), Deps{
		Sessions:  env.sessions,
		Snapshots: cache.NewMemoryStore(),
		PerPage:   10,
		Render: func(c *fiber.Ctx, name string, data fiber.Map, layout ...string) error {
			env.view = data["View"].(*ListView)
			return c.SendString(name + "|" + strings.Join(layout, ","))
		},
	})

	app := fiber.New()
	ctl.Register(app.Group("/admin/widgets"))
	env.app = app
	return env
}

func (e *crudEnv) get(t *testing.T, target string) *http.Response {
	t.Helper()
	e.view = nil
	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	return resp
}

func (e *crudEnv) post(t *testing.T, target string, form url.Values) *http.Response {
	t.Helper()
	e.view = nil
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestList_RendersServerPage(t *testing.T) {
	env := newCrudEnv(t)

	resp := env.get(t, "/admin/widgets?page=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.view)

	v := env.view
	assert.Equal(t, []string{"Nome", "Preço"}, v.Columns)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, []string{"Halteres", "19.90"}, v.Rows[0].Cells)
	assert.Equal(t, 2, v.Page.Current)
	assert.Equal(t, 3, v.Page.Total)
	assert.Equal(t, 25, v.Page.Count)
	assert.True(t, v.Page.HasPrev)
	assert.True(t, v.Page.HasNext)
	assert.Equal(t, "/admin/widgets", v.Page.PrevURL)
	assert.Equal(t, "/admin/widgets?page=3", v.Page.NextURL)
	assert.Empty(t, v.LoadError)
	assert.Nil(t, v.Dialog)
}

func TestList_LastPageDisablesNext(t *testing.T) {
	env := newCrudEnv(t)

	env.get(t, "/admin/widgets?page=3")
	require.NotNil(t, env.view)
	assert.False(t, env.view.Page.HasNext)
	assert.Empty(t, env.view.Page.NextURL)
}

func TestList_FirstLoadFailure(t *testing.T) {
	env := newCrudEnv(t)
	env.api.failList = true

	resp := env.get(t, "/admin/widgets")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.view)
	assert.Equal(t, "Base de dados indisponível", env.view.LoadError)
	assert.False(t, env.view.Stale)
	assert.Empty(t, env.view.Rows)
	assert.Equal(t, []string{"error:Base de dados indisponível"}, env.sessions.flashes)
}

func TestList_FailureKeepsLastGoodPage(t *testing.T) {
	env := newCrudEnv(t)
	before := testutil.ToFloat64(observability.StaleListRenders.WithLabelValues("widgets"))

	env.get(t, "/admin/widgets")
	env.api.failList = true
	env.get(t, "/admin/widgets?page=2")

	require.NotNil(t, env.view)
	assert.True(t, env.view.Stale)
	assert.NotEmpty(t, env.view.LoadError)
	assert.Len(t, env.view.Rows, 2)
	assert.Equal(t, 1, env.view.Page.Current)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.StaleListRenders.WithLabelValues("widgets")))
}

func TestNew_OpensCreateDialog(t *testing.T) {
	env := newCrudEnv(t)

	env.get(t, "/admin/widgets?mode=create")
	require.NotNil(t, env.view)
	require.NotNil(t, env.view.Dialog)
	assert.Equal(t, ModeCreate, env.view.Dialog.Mode)
	assert.Equal(t, "/admin/widgets", env.view.Dialog.Action)
	assert.Len(t, env.view.Dialog.Fields, 3)
}

func TestCreate_ValidationSendsNothing(t *testing.T) {
	env := newCrudEnv(t)

	resp := env.post(t, "/admin/widgets", url.Values{"name": {"Corda"}, "price": {"abc"}, "page": {"2"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotNil(t, env.view)
	require.NotNil(t, env.view.Dialog)

	fields := env.view.Dialog.Fields
	assert.Equal(t, "Corda", fields[0].Value)
	assert.Empty(t, fields[0].Error)
	assert.Equal(t, validation.MsgInvalidPrice, fields[1].Error)
	assert.Equal(t, 2, env.view.Dialog.Page)
	assert.Empty(t, env.api.posted)
}

func TestCreate_UpstreamRejectionKeepsDialog(t *testing.T) {
	env := newCrudEnv(t)

	resp := env.post(t, "/admin/widgets", url.Values{"name": {"dup"}, "price": {"5"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.view)
	require.NotNil(t, env.view.Dialog)
	assert.Equal(t, "Nome já existe", env.view.Dialog.Error)
	assert.Equal(t, "dup", env.view.Dialog.Fields[0].Value)
}

func TestCreate_Success(t *testing.T) {
	env := newCrudEnv(t)

	resp := env.post(t, "/admin/widgets", url.Values{"name": {"Corda"}, "price": {"7,5"}, "is_active": {"on"}, "page": {"2"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/widgets?page=2", resp.Header.Get("Location"))

	require.Len(t, env.api.posted, 1)
	assert.Equal(t, "7.50", env.api.posted[0]["price"])
	assert.Equal(t, true, env.api.posted[0]["is_active"])
	assert.Equal(t, []string{"success:Widget criado."}, env.sessions.flashes)
}

func TestEdit_SeedsDialog(t *testing.T) {
	env := newCrudEnv(t)

	env.get(t, "/admin/widgets/1/edit")
	require.NotNil(t, env.view)
	require.NotNil(t, env.view.Dialog)
	d := env.view.Dialog
	assert.Equal(t, ModeEdit, d.Mode)
	assert.Equal(t, "/admin/widgets/1", d.Action)
	assert.Equal(t, "Halteres", d.Fields[0].Value)
	assert.True(t, d.Fields[2].Checked)
}

func TestEdit_UnknownRow(t *testing.T) {
	env := newCrudEnv(t)

	resp := env.get(t, "/admin/widgets/99/edit")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, []string{"error:Widget não encontrado."}, env.sessions.flashes)
}

func TestUpdate_Success(t *testing.T) {
	env := newCrudEnv(t)

	resp := env.post(t, "/admin/widgets/1", url.Values{"name": {"Halteres 5kg"}, "price": {"21"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Len(t, env.api.posted, 1)
	assert.Equal(t, false, env.api.posted[0]["is_active"])
	assert.Equal(t, []string{"success:Widget atualizado."}, env.sessions.flashes)
}

func TestConfirmDelete(t *testing.T) {
	env := newCrudEnv(t)

	env.get(t, "/admin/widgets/1/delete")
	require.NotNil(t, env.view)
	require.NotNil(t, env.view.Dialog)
	assert.Equal(t, ModeDelete, env.view.Dialog.Mode)
	assert.Equal(t, "Halteres", env.view.Dialog.ItemLabel)
	assert.False(t, env.view.Dialog.Blocked)

	env.get(t, "/admin/widgets/2/delete")
	require.NotNil(t, env.view)
	assert.True(t, env.view.Dialog.Blocked)
	assert.Equal(t, "Não pode eliminar widgets com produtos.", env.view.Dialog.Error)
}

func TestDelete(t *testing.T) {
	env := newCrudEnv(t)

	resp := env.post(t, "/admin/widgets/2/delete", url.Values{"page": {"1"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Empty(t, env.api.deleted, "local hint refuses before the api is asked")

	resp = env.post(t, "/admin/widgets/1/delete", url.Values{"page": {"1"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, []uint{1}, env.api.deleted)
	assert.Equal(t, []string{
		"error:Não pode eliminar widgets com produtos.",
		"success:Widget eliminado.",
	}, env.sessions.flashes)
}

func TestPageParam_UnpaginatedAlwaysFirst(t *testing.T) {
	res := widgetResource()
	res.Paginated = false
	ctl := NewController(res, Deps{})

	assert.Equal(t, 1, ctl.pageParam(4))
	res.Paginated = true
	assert.Equal(t, 4, ctl.pageParam(4))
	assert.Equal(t, 1, ctl.pageParam(-2))
}

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/config"
	"fitnessweb/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-process stand-in for the fitness API. Routes are keyed by
// "METHOD /path" and can be replaced per test.
type fakeAPI struct {
	server *httptest.Server

	mu      sync.Mutex
	routes  map[string]http.HandlerFunc
	calls   map[string]int
	bodies  map[string]map[string]any
	queries map[string]url.Values
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		routes:  map[string]http.HandlerFunc{},
		calls:   map[string]int{},
		bodies:  map[string]map[string]any{},
		queries: map[string]url.Values{},
	}
	f.defaults()
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	var body map[string]any
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
	}

	f.mu.Lock()
	f.calls[key]++
	f.bodies[key] = body
	f.queries[key] = r.URL.Query()
	h, ok := f.routes[key]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not found"})
		return
	}
	h(w, r)
}

func (f *fakeAPI) handle(key string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[key] = h
}

func (f *fakeAPI) respond(key string, status int, v any) {
	f.handle(key, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, v)
	})
}

func (f *fakeAPI) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeAPI) lastBody(key string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

func (f *fakeAPI) lastQuery(key string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[key]
}

// authed wraps h so requests without the upstream session cookie get a 401.
func authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Authentication required"})
			return
		}
		h(w, r)
	}
}

func (f *fakeAPI) defaults() {
	f.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		body := f.lastBody("POST /api/auth/login")
		username, _ := body["username"].(string)
		if body["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Credenciais inválidas."})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "up-" + username, Path: "/"})
		res := map[string]any{"message": "Login successful", "username": username}
		switch username {
		case "admin":
			res["user_id"] = 1
			res["is_admin"] = true
		case "carol":
			res["user_id"] = 3
		default:
			res["user_id"] = 2
			res["is_admin"] = false
		}
		writeJSON(w, http.StatusOK, res)
	})
	f.respond("POST /api/auth/logout", http.StatusOK, map[string]any{"message": "Logout successful"})
	f.respond("POST /api/auth/register", http.StatusCreated, map[string]any{"message": "User registered successfully"})
	f.handle("GET /api/auth/status", func(w http.ResponseWriter, r *http.Request) {
		_, err := r.Cookie("session")
		writeJSON(w, http.StatusOK, map[string]any{"logged_in": err == nil})
	})

	f.handle("GET /api/plan/diet/current", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "No active diet plan found"})
	}))
	f.handle("GET /api/plan/workout/current", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id": 4, "start_date": "2026-10-01", "end_date": "2026-10-31",
			"days_per_week": 3, "description": "Força total",
			"plan_days": []map[string]any{{
				"day_of_week": 1, "focus": "Pernas",
				"exercises": []map[string]any{{"exercise_name": "Agachamento", "sets": 4, "reps": "8-10"}},
			}},
		})
	}))
	f.handle("POST /api/plan/generate", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"message": "Plans generated"})
	}))

	f.handle("GET /api/profile/", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Profile not found"})
	}))
	f.handle("POST /api/profile/", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated"})
	}))
	f.handle("GET /api/preferences/", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"liked_foods": "peixe", "workout_frequency_preference": 3})
	}))
	f.handle("POST /api/preferences/", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Preferences updated"})
	}))
	f.respond("GET /api/preferences/suggestions/food", http.StatusOK, map[string]any{"suggestions": []string{"Salmão grelhado"}})
	f.respond("GET /api/preferences/suggestions/workout", http.StatusOK, map[string]any{"suggestions": []string{"Corrida leve"}})

	f.respond("GET /api/shop/categories", http.StatusOK, []map[string]any{
		{"id": 1, "name": "Pesos", "slug": "pesos", "product_count": 2},
	})
	f.handle("GET /api/shop/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"products": []map[string]any{
				{"id": 9, "name": "Halteres 10kg", "slug": "halteres-10kg", "price": "29.90", "stock_quantity": 5, "is_active": true},
			},
			"total_products": 25,
			"current_page":   2,
			"total_pages":    3,
		})
	})

	f.handle("GET /api/admin/users", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"users": []map[string]any{
				{"id": 1, "username": "admin", "email": "admin@example.com", "is_admin": true, "created_at": "2026-01-10T10:00:00Z"},
				{"id": 2, "username": "bob", "email": "bob@example.com", "is_admin": false, "created_at": "2026-02-11T10:00:00Z"},
			},
			"total_users":  2,
			"current_page": 1,
			"total_pages":  1,
		})
	}))
	f.handle("POST /api/admin/users/2/toggle_admin", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "User bob is now an admin"})
	}))
	f.handle("GET /api/admin/shop/categories", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 3, "name": "Suplementos", "slug": "suplementos", "product_count": 4},
			{"id": 4, "name": "Acessórios", "slug": "acessorios", "product_count": 0},
		})
	}))
	f.handle("GET /api/admin/shop/products", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"products": []any{}, "total_products": 0, "current_page": 1, "total_pages": 1})
	}))
	f.handle("POST /api/admin/shop/products", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"id": 10, "name": "Novo"})
	}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testEnv drives the app like a browser: cookies set by one response are
// sent with the next request.
type testEnv struct {
	t       *testing.T
	app     *fiber.App
	api     *fakeAPI
	server  *Server
	cookies map[string]string
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	api := newFakeAPI(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Port:                 "0",
		Env:                  "test",
		APIBaseURL:           api.server.URL + "/api",
		APITimeoutSeconds:    2,
		SessionSecret:        "test-session-secret",
		SessionTTLMinutes:    60,
		SessionVerifySeconds: 300,
		AdminPerPage:         10,
		ShopPerPage:          12,
		Timezone:             "Europe/Lisbon",
		FeatureFlags:         flags,
	}
	client, err := apiclient.New(cfg.APIBaseURL, cfg.APITimeout())
	require.NoError(t, err)

	s, err := NewServerWithDeps(cfg, client, rdb)
	require.NoError(t, err)

	return &testEnv{t: t, app: s.NewApp(), api: api, server: s, cookies: map[string]string{}}
}

func (e *testEnv) do(method, target string, form url.Values) *http.Response {
	e.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Accept", "text/html")
	for name, value := range e.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)

	for _, c := range resp.Cookies() {
		expired := c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now()))
		if expired || c.Value == "" {
			delete(e.cookies, c.Name)
			continue
		}
		e.cookies[c.Name] = c.Value
	}
	return resp
}

func (e *testEnv) get(target string) *http.Response {
	return e.do(http.MethodGet, target, nil)
}

func (e *testEnv) post(target string, form url.Values) *http.Response {
	if form == nil {
		form = url.Values{}
	}
	return e.do(http.MethodPost, target, form)
}

func (e *testEnv) login(username string) {
	e.t.Helper()
	resp := e.post("/login", url.Values{"username": {username}, "password": {"secret"}})
	require.Equal(e.t, http.StatusSeeOther, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.get("/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get("/health/ready")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["api"])
	assert.Equal(t, "healthy", checks["redis"])
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.get("/does/not/exist")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestGuard_AnonymousGoesToLoginWithNext(t *testing.T) {
	env := newTestEnv(t, "")

	for _, path := range []string{"/dashboard", "/profile", "/preferences", "/admin/users"} {
		resp := env.get(path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login?next="+url.QueryEscape(path), resp.Header.Get("Location"), path)
	}
}

func TestLogin_RedirectsToNextWithFlash(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.post("/login", url.Values{
		"username": {"alice"},
		"password": {"secret"},
		"next":     {"/profile"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))
	assert.NotEmpty(t, env.cookies["fitness_session"])

	resp = env.get("/profile")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, msgLoginOK)
	assert.Contains(t, body, "alice")
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.post("/login", url.Values{"username": {"alice"}, "password": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), msgLoginMissing)
	assert.Zero(t, env.api.callCount("POST /api/auth/login"))

	resp = env.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Credenciais inválidas.")
	assert.Contains(t, body, `value="alice"`)
	assert.Empty(t, env.cookies["fitness_session"])
}

func TestLogin_SignedInUserSkipsForm(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")

	resp := env.get("/login?next=/preferences")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/preferences", resp.Header.Get("Location"))
}

func TestLogin_ProbesAdminWhenRoleMissing(t *testing.T) {
	env := newTestEnv(t, "")

	env.login("carol")
	assert.Equal(t, 1, env.api.callCount("GET /api/admin/users"))

	resp := env.get("/admin/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGuard_NonAdminGoesToDashboard(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")

	resp := env.get("/admin/users")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestLogout_ClearsSession(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")

	resp := env.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 1, env.api.callCount("POST /api/auth/logout"))

	resp = env.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/login"))
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.post("/register", url.Values{
		"username":         {"dora"},
		"email":            {"dora@example.com"},
		"password":         {"abc12345"},
		"confirm_password": {"abc99999"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "As palavras-passe não coincidem.")
	assert.Zero(t, env.api.callCount("POST /api/auth/register"))

	resp = env.post("/register", url.Values{
		"username":         {"dora"},
		"email":            {"not-an-email"},
		"password":         {"abc12345"},
		"confirm_password": {"abc12345"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Zero(t, env.api.callCount("POST /api/auth/register"))

	resp = env.post("/register", url.Values{
		"username":         {"dora"},
		"email":            {"dora@example.com"},
		"password":         {"abc12345"},
		"confirm_password": {"abc12345"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, "dora@example.com", env.api.lastBody("POST /api/auth/register")["email"])

	resp = env.get("/login")
	assert.Contains(t, readBody(t, resp), msgRegisterOK)
}

func TestDashboard_MissingDietPlanIsNotAnError(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")

	resp := env.get("/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Nenhum plano de dieta ativo encontrado")
	assert.Contains(t, body, "Foco: Pernas")
	assert.Contains(t, body, "Agachamento: 4 séries x 8-10 reps")
	assert.NotContains(t, body, "error-banner")
}

func TestDashboard_UnauthorizedAsksForLogin(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")
	env.api.respond("GET /api/plan/diet/current", http.StatusUnauthorized, map[string]any{"error": "Session expired"})

	resp := env.get("/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), msgDashboardAuth)
}

func TestDashboard_OtherFailureShowsGenericMessage(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")
	env.api.respond("GET /api/plan/workout/current", http.StatusInternalServerError, map[string]any{"error": "boom"})

	resp := env.get("/dashboard")
	assert.Contains(t, readBody(t, resp), msgDashboardFailed)
}

func TestGeneratePlan(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")

	resp := env.post("/dashboard/generate", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	assert.Equal(t, 1, env.api.callCount("POST /api/plan/generate"))
	assert.Contains(t, readBody(t, env.get("/dashboard")), msgPlanGenerated)

	env.api.respond("POST /api/plan/generate", http.StatusBadRequest, map[string]any{"error": "Perfil incompleto."})
	resp = env.post("/dashboard/generate", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, readBody(t, env.get("/dashboard")), "Perfil incompleto.")
}

func TestProfile_SaveCoercesNumbers(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")

	resp := env.post("/profile", url.Values{
		"full_name": {"Alice Silva"},
		"age":       {"30"},
		"height_cm": {""},
		"weight_kg": {"72,5"},
		"gender":    {"female"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))

	sent := env.api.lastBody("POST /api/profile/")
	assert.Equal(t, float64(30), sent["age"])
	assert.Equal(t, 72.5, sent["weight_kg"])
	assert.NotContains(t, sent, "height_cm")
	assert.Equal(t, "Alice Silva", sent["full_name"])

	assert.Contains(t, readBody(t, env.get("/profile")), msgProfileSaved)
}

func TestProfile_InvalidNumberKeepsForm(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")

	resp := env.post("/profile", url.Values{"full_name": {"Alice"}, "age": {"trinta"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Valor numérico inválido.")
	assert.Contains(t, body, `value="Alice"`)
	assert.Zero(t, env.api.callCount("POST /api/profile/"))
}

func TestPreferences_Suggestions(t *testing.T) {
	env := newTestEnv(t, "ai_suggestions=on")
	env.login("alice")

	resp := env.get("/preferences")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Salmão grelhado")
	assert.Contains(t, body, "Corrida leve")
	assert.Contains(t, body, "peixe")

	env.api.respond("GET /api/preferences/suggestions/food", http.StatusInternalServerError, map[string]any{"error": "AI offline"})
	resp = env.get("/preferences")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), msgSuggestionsFailed)
}

func TestPreferences_SuggestionsHiddenWhenFlagOff(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")

	resp := env.get("/preferences")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, readBody(t, resp), "Salmão grelhado")
	assert.Zero(t, env.api.callCount("GET /api/preferences/suggestions/food"))
}

func TestPreferences_SaveSendsFrequency(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("alice")

	resp := env.post("/preferences", url.Values{"liked_foods": {"arroz"}, "workout_frequency_preference": {""}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	sent := env.api.lastBody("POST /api/preferences/")
	assert.Contains(t, sent, "workout_frequency_preference")
	assert.Nil(t, sent["workout_frequency_preference"])
	assert.Equal(t, "arroz", sent["liked_foods"])

	resp = env.post("/preferences", url.Values{"workout_frequency_preference": {"4"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, float64(4), env.api.lastBody("POST /api/preferences/")["workout_frequency_preference"])
}

func TestShop_ForwardsFilterAndPaginates(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.get("/shop?category=pesos&search=halter&page=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)

	q := env.api.lastQuery("GET /api/shop/products")
	assert.Equal(t, "pesos", q.Get("category"))
	assert.Equal(t, "halter", q.Get("search"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "12", q.Get("per_page"))

	assert.Contains(t, body, "Halteres 10kg")
	assert.Contains(t, body, "29.90€")
	assert.Contains(t, body, "25 produtos encontrados")
	assert.Contains(t, body, "Página 2 de 3")
	assert.Contains(t, body, `href="/shop?category=pesos&amp;search=halter"`)
	assert.Contains(t, body, `href="/shop?category=pesos&amp;page=3&amp;search=halter"`)
}

func TestShop_CategoryFailureIsSilent(t *testing.T) {
	env := newTestEnv(t, "")
	env.api.respond("GET /api/shop/categories", http.StatusInternalServerError, map[string]any{"error": "db down"})

	resp := env.get("/shop")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Halteres 10kg")
	assert.NotContains(t, body, "db down")
}

func TestShopFilter_ResetsPage(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.post("/shop/filter", url.Values{
		"category": {"pesos"},
		"search":   {"barra"},
		"featured": {"true"},
		"page":     {"4"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/shop?category=pesos&featured=true&search=barra", resp.Header.Get("Location"))
}

func TestProductDetail(t *testing.T) {
	env := newTestEnv(t, "")
	env.api.respond("GET /api/shop/products/halteres-10kg", http.StatusOK, map[string]any{
		"id": 9, "name": "Halteres 10kg", "slug": "halteres-10kg", "price": "29.9", "stock_quantity": 0, "sku": "HT-10",
	})

	resp := env.get("/shop/product/halteres-10kg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "29.90€")
	assert.Contains(t, body, "Sem stock disponível")
	assert.Contains(t, body, "SKU: HT-10")

	resp = env.get("/shop/product/nada")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), msgProductNotFound)
}

func TestAdClick_TracksAndRedirects(t *testing.T) {
	env := newTestEnv(t, "ads=on")
	env.api.respond("GET /api/advertisements/shop_top", http.StatusOK, []map[string]any{
		{"id": 7, "title": "Promo Outono", "content": "<strong>-20%</strong>", "target_url": "https://example.com/promo"},
	})
	env.api.respond("POST /api/advertisements/7/click", http.StatusOK, map[string]any{"message": "ok"})

	body := readBody(t, env.get("/shop"))
	assert.Contains(t, body, "<strong>-20%</strong>")

	start := strings.Index(body, `href="/ads/click/`)
	require.GreaterOrEqual(t, start, 0)
	link := body[start+len(`href="`):]
	link = link[:strings.Index(link, `"`)]

	resp := env.get(link)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://example.com/promo", resp.Header.Get("Location"))
	assert.Equal(t, 1, env.api.callCount("POST /api/advertisements/7/click"))

	env.api.respond("POST /api/advertisements/7/click", http.StatusInternalServerError, map[string]any{"error": "down"})
	resp = env.get(link)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://example.com/promo", resp.Header.Get("Location"))
}

func TestAdClick_InvalidTokenGoesHome(t *testing.T) {
	env := newTestEnv(t, "ads=on")

	resp := env.get("/ads/click/not-a-token")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Zero(t, env.api.callCount("POST /api/advertisements/0/click"))
}

func TestAds_FailureRendersNothing(t *testing.T) {
	env := newTestEnv(t, "ads=on")
	env.api.respond("GET /api/advertisements/shop_top", http.StatusInternalServerError, map[string]any{"error": "ads down"})

	resp := env.get("/shop")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.NotContains(t, body, "advertisement-banner")
	assert.NotContains(t, body, "ads down")
}

func TestAdminDashboard_ListsFlags(t *testing.T) {
	env := newTestEnv(t, "ads=on,ai_suggestions=off")
	env.login("admin")

	resp := env.get("/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Bem-vindo ao Painel Admin!")
	assert.Contains(t, body, "ai_suggestions")

	resp = env.get("/admin/shop")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/shop/products", resp.Header.Get("Location"))
}

func TestAdminUsers_HidesSelfActions(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("admin")

	resp := env.get("/admin/users")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "bob@example.com")
	assert.Contains(t, body, "/admin/users/2/toggle-admin")
	assert.NotContains(t, body, "/admin/users/1/toggle-admin")
	assert.Contains(t, body, "Tornar Admin")
}

func TestAdminUsers_ToggleAdmin(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("admin")

	resp := env.post("/admin/users/2/toggle-admin", url.Values{"page": {"2"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/users?page=2", resp.Header.Get("Location"))
	assert.Equal(t, 1, env.api.callCount("POST /api/admin/users/2/toggle_admin"))

	resp = env.post("/admin/users/1/toggle-admin", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, env.api.callCount("POST /api/admin/users/1/toggle_admin"))
	assert.Contains(t, readBody(t, env.get("/admin/users")), msgToggleAdminSelf)
}

func TestAdminUsers_CannotDeleteSelf(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("admin")

	resp := env.post("/admin/users/1/delete", url.Values{"page": {"1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, env.api.callCount("DELETE /api/admin/users/1"))
	assert.Contains(t, readBody(t, env.get("/admin/users")), errDeleteSelf.Error())
}

func TestAdminProducts_Create(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("admin")

	resp := env.post("/admin/shop/products", url.Values{"name": {"Barra"}, "price": {"abc"}, "page": {"1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Preço inválido.")
	assert.Contains(t, body, "Suplementos")
	assert.Zero(t, env.api.callCount("POST /api/admin/shop/products"))

	resp = env.post("/admin/shop/products", url.Values{
		"name":           {"Barra"},
		"price":          {"29,9"},
		"stock_quantity": {"0"},
		"category_id":    {"4"},
		"is_active":      {"on"},
		"page":           {"1"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	sent := env.api.lastBody("POST /api/admin/shop/products")
	assert.Equal(t, "29.90", sent["price"])
	assert.Equal(t, float64(4), sent["category_id"])
	assert.Equal(t, true, sent["is_active"])
	assert.Equal(t, false, sent["is_featured"])
	assert.Equal(t, float64(0), sent["stock_quantity"])
}

func TestAdminProducts_CreateRequiresCategoryAndStock(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("admin")

	tests := []struct {
		name    string
		form    url.Values
		missing string
	}{
		{
			name:    "no category",
			form:    url.Values{"name": {"Barra"}, "price": {"9.90"}, "stock_quantity": {"3"}},
			missing: "category_id",
		},
		{
			name:    "no stock",
			form:    url.Values{"name": {"Barra"}, "price": {"9.90"}, "category_id": {"4"}},
			missing: "stock_quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.form.Set("page", "1")
			resp := env.post("/admin/shop/products", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			body := readBody(t, resp)
			assert.Contains(t, body, validation.MsgRequired)
			assert.Contains(t, body, `<option value="">Selecione uma categoria</option>`)
			assert.Contains(t, body, `name="`+tt.missing+`"`)
			assert.Zero(t, env.api.callCount("POST /api/admin/shop/products"))
		})
	}
}

func TestProductPayload_RequiredFields(t *testing.T) {
	_, err := productPayload(validation.Values{"name": "Barra", "price": "9.90"})
	var fieldErrs validation.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, validation.MsgRequired, fieldErrs["category_id"])
	assert.Equal(t, validation.MsgRequired, fieldErrs["stock_quantity"])

	payload, err := productPayload(validation.Values{
		"name": "Barra", "price": "9.9", "stock_quantity": "12", "category_id": "4",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(4), payload["category_id"])
	assert.Equal(t, 12, payload["stock_quantity"])
}

func TestAdminCategories_DeleteBlockedWithProducts(t *testing.T) {
	env := newTestEnv(t, "")
	env.login("admin")

	resp := env.get("/admin/shop/categories/3/delete")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), errCategoryHasProducts.Error())

	resp = env.post("/admin/shop/categories/3/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, env.api.callCount("DELETE /api/admin/shop/categories/3"))
}

func TestAdvertisementPayload_ConvertsLocalDates(t *testing.T) {
	env := newTestEnv(t, "")

	payload, err := env.server.advertisementPayload(map[string]string{
		"title":          "Promo",
		"placement_area": "shop_top",
		"start_date":     "2026-07-01T10:00",
		"end_date":       "",
		"is_active":      "on",
	})
	require.NoError(t, err)
	start := payload["start_date"].(*string)
	require.NotNil(t, start)
	assert.Equal(t, "2026-07-01T09:00:00Z", *start)
	assert.Nil(t, payload["end_date"].(*string))
	assert.Equal(t, true, payload["is_active"])

	_, err = env.server.advertisementPayload(map[string]string{
		"title":          "Promo",
		"placement_area": "shop_top",
		"start_date":     "2026-07-02T10:00",
		"end_date":       "2026-07-01T10:00",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), msgEndBeforeStart)
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/featureflags"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/models"
	"fitnessweb/internal/observability"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
)

const (
	// CookieName carries the opaque session id.
	CookieName = "fitness_session"
	// DisplayCookieName carries "id:username" for client-side display only.
	DisplayCookieName = "fitness_user"

	stateLocalKey = "session_state"

	keyUserID     = "uid"
	keyUsername   = "username"
	keyEmail      = "email"
	keyAdmin      = "admin"
	keyAPICookies = "api_cookies"
	keyVerifiedAt = "verified_at"
)

// Options configures a Manager.
type Options struct {
	// Storage backs the session store; nil keeps sessions in process memory.
	Storage        fiber.Storage
	TTL            time.Duration
	CookieSecure   bool
	VerifyInterval time.Duration
}

// Manager owns every session transition. It is built once at startup and
// shared by all handlers.
type Manager struct {
	store          *fibersession.Store
	api            *apiclient.Client
	flags          *featureflags.Manager
	ttl            time.Duration
	cookieSecure   bool
	verifyInterval time.Duration
	now            func() time.Time
}

var _ middleware.Resolver = (*Manager)(nil)

// NewManager builds a Manager over a Fiber session store.
func NewManager(api *apiclient.Client, flags *featureflags.Manager, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.VerifyInterval <= 0 {
		opts.VerifyInterval = 5 * time.Minute
	}

	store := fibersession.New(fibersession.Config{
		Expiration:     opts.TTL,
		Storage:        opts.Storage,
		KeyLookup:      "cookie:" + CookieName,
		CookiePath:     "/",
		CookieSecure:   opts.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		KeyGenerator:   uuid.NewString,
	})

	return &Manager{
		store:          store,
		api:            api,
		flags:          flags,
		ttl:            opts.TTL,
		cookieSecure:   opts.CookieSecure,
		verifyInterval: opts.VerifyInterval,
		now:            time.Now,
	}
}

// Login marks the session authenticated for user. The caller has already
// completed the API login; cookies are the upstream cookies it produced.
// The session id is rotated so a pre-login id cannot be reused.
func (m *Manager) Login(c *fiber.Ctx, user models.SessionUser, cookies []*http.Cookie) error {
	sess, err := m.store.Get(c)
	if err != nil {
		observability.RecordSessionOp("login", "error")
		return fmt.Errorf("load session: %w", err)
	}
	if !sess.Fresh() {
		if err := sess.Regenerate(); err != nil {
			observability.RecordSessionOp("login", "error")
			return fmt.Errorf("regenerate session: %w", err)
		}
	}

	sess.Set(keyUserID, user.ID)
	sess.Set(keyUsername, user.Username)
	sess.Set(keyEmail, user.Email)
	sess.Set(keyAdmin, user.IsAdmin)
	sess.Set(keyAPICookies, encodeCookies(cookies))
	sess.Set(keyVerifiedAt, m.now().Unix())

	id := sess.ID()
	if err := sess.Save(); err != nil {
		observability.RecordSessionOp("login", "error")
		return fmt.Errorf("save session: %w", err)
	}
	// Later reads in this request must see the rotated id.
	c.Request().Header.SetCookie(CookieName, id)

	c.Cookie(&fiber.Cookie{
		Name:     DisplayCookieName,
		Value:    url.QueryEscape(strconv.FormatUint(uint64(user.ID), 10) + ":" + user.Username),
		Path:     "/",
		Expires:  m.now().Add(m.ttl),
		Secure:   m.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	u := user
	m.cache(c, &State{Status: Authenticated, User: &u, APICookies: cookies})
	middleware.WithUserID(c, user.ID)
	observability.RecordSessionOp("login", "ok")
	return nil
}

// Logout tells the API the session is over, then clears local state whatever
// the API answered. Calling it on an anonymous session is a no-op beyond
// clearing cookies.
func (m *Manager) Logout(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		observability.RecordSessionOp("logout", "error")
		return fmt.Errorf("load session: %w", err)
	}

	if cookies := decodeCookies(stringValue(sess.Get(keyAPICookies))); len(cookies) > 0 {
		if err := m.api.For(cookies).Logout(c.UserContext()); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "api logout failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if err := sess.Destroy(); err != nil {
		observability.RecordSessionOp("logout", "error")
		return fmt.Errorf("destroy session: %w", err)
	}
	c.Request().Header.DelCookie(CookieName)
	m.clearDisplayCookie(c)

	m.cache(c, Anonymous())
	observability.RecordSessionOp("logout", "ok")
	return nil
}

// ResolveAuth satisfies middleware.Resolver.
func (m *Manager) ResolveAuth(c *fiber.Ctx) (middleware.AuthState, error) {
	return m.Resolve(c)
}

// Resolve loads the state of the current request's session, re-verifying it
// against GET /auth/status when the last check is older than the verify
// interval. The result is cached for the rest of the request.
func (m *Manager) Resolve(c *fiber.Ctx) (*State, error) {
	if st, ok := c.Locals(stateLocalKey).(*State); ok {
		return st, nil
	}

	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	uid, ok := sess.Get(keyUserID).(uint)
	if !ok || uid == 0 {
		return m.cache(c, Anonymous()), nil
	}

	state := &State{
		Status: Authenticated,
		User: &models.SessionUser{
			ID:       uid,
			Username: stringValue(sess.Get(keyUsername)),
			Email:    stringValue(sess.Get(keyEmail)),
			IsAdmin:  boolValue(sess.Get(keyAdmin)),
		},
		APICookies: decodeCookies(stringValue(sess.Get(keyAPICookies))),
	}

	if !m.needsVerify(sess, state) {
		return m.cache(c, state), nil
	}
	return m.rehydrate(c, sess, state)
}

func (m *Manager) needsVerify(sess *fibersession.Session, state *State) bool {
	if len(state.APICookies) == 0 || !m.flags.Enabled(featureflags.SessionRehydrate, state.UserID()) {
		return false
	}
	verified, _ := sess.Get(keyVerifiedAt).(int64)
	if verified == 0 {
		return true
	}
	return m.now().Sub(time.Unix(verified, 0)) >= m.verifyInterval
}

// rehydrate asks the API whether the upstream session is still alive.
// A definite "no" logs the user out locally; no answer at all leaves the
// session Loading so the guards can ask the browser to retry.
func (m *Manager) rehydrate(c *fiber.Ctx, sess *fibersession.Session, state *State) (*State, error) {
	ctx := c.UserContext()
	caller := m.api.For(state.APICookies)

	status, err := caller.Status(ctx)
	switch {
	case err == nil && status.LoggedIn:
	case err == nil, apiclient.IsUnauthorized(err):
		observability.RecordSessionOp("rehydrate", "expired")
		if err := sess.Destroy(); err != nil {
			return nil, fmt.Errorf("destroy expired session: %w", err)
		}
		c.Request().Header.DelCookie(CookieName)
		m.clearDisplayCookie(c)
		return m.cache(c, Anonymous()), nil
	case errors.Is(err, context.Canceled):
		return nil, err
	default:
		observability.RecordSessionOp("rehydrate", "unavailable")
		middleware.Logger.WarnContext(ctx, "session verification unavailable",
			slog.Uint64("user_id", uint64(state.UserID())),
			slog.String("error", err.Error()),
		)
		state.Status = Loading
		return m.cache(c, state), nil
	}

	if status.UserID != 0 {
		state.User.ID = status.UserID
	}
	if status.Username != "" {
		state.User.Username = status.Username
	}
	if status.IsAdmin != nil {
		state.User.IsAdmin = *status.IsAdmin
	}
	state.APICookies = caller.Cookies()

	sess.Set(keyUserID, state.User.ID)
	sess.Set(keyUsername, state.User.Username)
	sess.Set(keyAdmin, state.User.IsAdmin)
	sess.Set(keyAPICookies, encodeCookies(state.APICookies))
	sess.Set(keyVerifiedAt, m.now().Unix())
	if err := sess.Save(); err != nil {
		return nil, fmt.Errorf("save verified session: %w", err)
	}

	observability.RecordSessionOp("rehydrate", "ok")
	return m.cache(c, state), nil
}

// Caller returns an API caller carrying the session's upstream cookies.
func (m *Manager) Caller(c *fiber.Ctx) (*apiclient.Caller, error) {
	state, err := m.Resolve(c)
	if err != nil {
		return nil, err
	}
	return m.api.For(state.APICookies), nil
}

// PersistCookies stores cookies the API rotated during this request.
func (m *Manager) PersistCookies(c *fiber.Ctx, caller *apiclient.Caller) error {
	state, err := m.Resolve(c)
	if err != nil || !state.IsAuthenticated() {
		return err
	}

	fresh := encodeCookies(caller.Cookies())
	if fresh == encodeCookies(state.APICookies) {
		return nil
	}

	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sess.Set(keyAPICookies, fresh)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session cookies: %w", err)
	}
	state.APICookies = decodeCookies(fresh)
	return nil
}

// SessionID returns the id of the current session, or "" for visitors
// without one.
func (m *Manager) SessionID(c *fiber.Ctx) string {
	sess, err := m.store.Get(c)
	if err != nil || sess.Fresh() {
		return ""
	}
	return sess.ID()
}

func (m *Manager) clearDisplayCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     DisplayCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   m.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (m *Manager) cache(c *fiber.Ctx, state *State) *State {
	c.Locals(stateLocalKey, state)
	return state
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

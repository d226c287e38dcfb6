package middleware

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// DefaultNext is where a login lands when no usable return path was given.
const DefaultNext = "/dashboard"

// AuthLocalKey is the Fiber locals key holding the resolved AuthState.
const AuthLocalKey = "auth"

// AuthState is the view of a browser session the guards need.
type AuthState interface {
	IsLoading() bool
	IsAuthenticated() bool
	IsAdmin() bool
	UserID() uint
}

// Resolver loads the AuthState of the current request.
type Resolver interface {
	ResolveAuth(c *fiber.Ctx) (AuthState, error)
}

// RequireUser lets authenticated sessions through. Unknown sessions are sent
// to the login page with the original target preserved; sessions still being
// verified get the placeholder page with a short Retry-After.
func RequireUser(resolver Resolver, placeholder fiber.Handler) fiber.Handler {
	return guard(resolver, placeholder, false)
}

// RequireAdmin behaves like RequireUser and additionally sends
// authenticated non-admin users to the dashboard.
func RequireAdmin(resolver Resolver, placeholder fiber.Handler) fiber.Handler {
	return guard(resolver, placeholder, true)
}

func guard(resolver Resolver, placeholder fiber.Handler, admin bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := resolver.ResolveAuth(c)
		if err != nil {
			return err
		}

		if state.IsLoading() {
			c.Set(fiber.HeaderRetryAfter, "1")
			c.Status(fiber.StatusServiceUnavailable)
			return placeholder(c)
		}

		if !state.IsAuthenticated() {
			return c.Redirect(LoginURL(c.OriginalURL()), fiber.StatusSeeOther)
		}

		if admin && !state.IsAdmin() {
			return c.Redirect(DefaultNext, fiber.StatusSeeOther)
		}

		WithUserID(c, state.UserID())
		c.Locals(AuthLocalKey, state)
		return c.Next()
	}
}

// LoginURL builds the login address that returns to target after success.
func LoginURL(target string) string {
	return "/login?next=" + url.QueryEscape(SanitizeNext(target))
}

// SanitizeNext keeps only local absolute paths; anything else becomes DefaultNext.
func SanitizeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") {
		return DefaultNext
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return DefaultNext
	}
	if strings.ContainsAny(next, "\r\n") {
		return DefaultNext
	}
	if next == "/login" || strings.HasPrefix(next, "/login?") {
		return DefaultNext
	}
	return next
}

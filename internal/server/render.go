package server

import (
	"errors"
	"log/slog"
	"strings"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/models"
	"fitnessweb/internal/session"

	"github.com/gofiber/fiber/v2"
)

const (
	csrfFormField  = "_csrf"
	csrfContextKey = "csrf"

	layoutMain = "layouts/main"

	msgCheckingAuth  = "A verificar autenticação..."
	msgCheckingAdmin = "A verificar permissões de administrador..."
)

// render executes a page with the data every layout needs: the session state,
// the pending flash, the CSRF token and the footer year.
func (s *Server) render(c *fiber.Ctx, name string, data fiber.Map, layout ...string) error {
	if data == nil {
		data = fiber.Map{}
	}
	state, err := s.sessions.Resolve(c)
	if err != nil || state == nil {
		state = session.Anonymous()
	}
	data["Auth"] = state
	data["Flash"] = s.sessions.TakeFlash(c)
	data["CSRF"] = csrfToken(c)
	data["Year"] = s.now().Year()
	data["Path"] = c.Path()

	l := layoutMain
	if len(layout) > 0 && layout[0] != "" {
		l = layout[0]
	}
	return c.Render(name, data, l)
}

func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals(csrfContextKey).(string)
	return token
}

// placeholder renders the page shown while a session is being verified.
// The guard has already set the status and Retry-After.
func (s *Server) placeholder(msg string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return s.render(c, "loading", fiber.Map{"Title": "A carregar", "Message": msg})
	}
}

// errorHandler renders failures as the error page, or as JSON for probes and
// clients that ask for it.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := models.StatusOf(err)
	msg := errorMessage(err)

	ctx := c.UserContext()
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(ctx, "request error",
			slog.Int("status", status),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	} else {
		middleware.Logger.WarnContext(ctx, "request rejected",
			slog.Int("status", status),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}

	if wantsJSON(c) {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return models.RespondWithError(c, status, err)
		}
		return models.RespondWithError(c, status, errors.New(msg))
	}

	c.Status(status)
	if rerr := s.render(c, "error", fiber.Map{"Title": "Erro", "Status": status, "Message": msg}); rerr != nil {
		middleware.Logger.ErrorContext(ctx, "error page failed", slog.String("error", rerr.Error()))
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(status).SendString(msg)
	}
	return nil
}

func errorMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code == fiber.StatusNotFound {
			return "Página não encontrada."
		}
		if fiberErr.Code < fiber.StatusInternalServerError {
			return fiberErr.Message
		}
	}
	return "Ocorreu um erro inesperado."
}

func wantsJSON(c *fiber.Ctx) bool {
	if strings.HasPrefix(c.Path(), "/health") {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// flash stores a one-shot message; failures are logged and never block.
func (s *Server) flash(c *fiber.Ctx, kind, msg string) {
	if err := s.sessions.Flash(c, kind, msg); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "flash not stored", slog.String("error", err.Error()))
	}
}

// persist saves API cookies rotated during the request.
func (s *Server) persist(c *fiber.Ctx, caller *apiclient.Caller) {
	if err := s.sessions.PersistCookies(c, caller); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "api cookies not persisted", slog.String("error", err.Error()))
	}
}

// upstreamStatus maps an API rejection to the status of a re-rendered form:
// client errors pass through, anything else is a bad gateway.
func upstreamStatus(err error) int {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	return fiber.StatusBadGateway
}

func (s *Server) authState(c *fiber.Ctx) *session.State {
	if st, ok := c.Locals(middleware.AuthLocalKey).(*session.State); ok {
		return st
	}
	st, err := s.sessions.Resolve(c)
	if err != nil || st == nil {
		return session.Anonymous()
	}
	return st
}

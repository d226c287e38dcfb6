package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/crud"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/session"

	"github.com/gofiber/fiber/v2"
)

const (
	msgToggleAdminFailed = "Não foi possível alterar o estado de administrador."
	msgToggleAdminOK     = "Estado de administrador atualizado."
	msgToggleAdminSelf   = "Não pode alterar o seu próprio estado de administrador."
)

// AdminDashboard is the back-office landing page. It also lists the feature
// flags as they apply to the current admin.
func (s *Server) AdminDashboard(c *fiber.Ctx) error {
	flags := s.featureFlags.Flags(s.authState(c).UserID())
	return s.render(c, "admin/dashboard", fiber.Map{"Title": "Painel", "Flags": flags}, crud.Layout)
}

// ToggleUserAdmin flips another user's admin role and returns to the same
// page of the user list.
func (s *Server) ToggleUserAdmin(c *fiber.Ctx) error {
	page := c.FormValue("page")
	back := usersPath
	if n, err := strconv.Atoi(page); err == nil && n > 1 {
		back += "?page=" + strconv.Itoa(n)
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(back, fiber.StatusSeeOther)
	}
	if uint(id) == s.authState(c).UserID() {
		s.flash(c, session.FlashError, msgToggleAdminSelf)
		return c.Redirect(back, fiber.StatusSeeOther)
	}

	caller, err := s.sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	msg, err := caller.ToggleAdmin(ctx, uint(id))
	s.persist(c, caller)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		middleware.Logger.WarnContext(ctx, "toggle admin failed",
			slog.Uint64("target_id", id),
			slog.String("error", err.Error()),
		)
		s.flash(c, session.FlashError, apiclient.MessageOr(err, msgToggleAdminFailed))
		return c.Redirect(back, fiber.StatusSeeOther)
	}

	text := msgToggleAdminOK
	if msg != nil && msg.Message != "" {
		text = msg.Message
	}
	s.flash(c, session.FlashSuccess, text)
	return c.Redirect(back, fiber.StatusSeeOther)
}

package server

import (
	"context"
	"errors"
	"log/slog"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/models"
	"fitnessweb/internal/session"
	"fitnessweb/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	msgLoginMissing   = "Por favor, preencha o nome de utilizador e a palavra-passe."
	msgLoginFailed    = "Ocorreu um erro durante o login."
	msgLoginRejected  = "Falha no login. Verifique as suas credenciais."
	msgLoginOK        = "Login bem-sucedido!"
	msgRegisterFailed = "Ocorreu um erro durante o registo."
	msgRegisterOK     = "Registo bem-sucedido! Pode agora fazer login com as suas credenciais."
)

// Home renders the landing page.
func (s *Server) Home(c *fiber.Ctx) error {
	return s.render(c, "home", fiber.Map{"Title": "Início"})
}

// LoginPage renders the login form. Signed-in users go straight to next.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	next := middleware.SanitizeNext(c.Query("next"))
	if s.authState(c).IsAuthenticated() {
		return c.Redirect(next, fiber.StatusSeeOther)
	}
	return s.renderLogin(c, fiber.StatusOK, validation.Values{}, next, "")
}

// Login authenticates against the API and starts the browser session.
func (s *Server) Login(c *fiber.Ctx) error {
	values := validation.Values{"username": c.FormValue("username")}
	password := c.FormValue("password")
	next := middleware.SanitizeNext(c.FormValue("next"))

	if values.Get("username") == "" || password == "" {
		return s.renderLogin(c, fiber.StatusUnprocessableEntity, values, next, msgLoginMissing)
	}

	ctx := c.UserContext()
	caller := s.api.For(nil)
	res, err := caller.Login(ctx, apiclient.Credentials{
		Username: values.Get("username"),
		Password: password,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		middleware.Logger.WarnContext(ctx, "login rejected",
			slog.String("username", values.Get("username")),
			slog.String("error", err.Error()),
		)
		return s.renderLogin(c, upstreamStatus(err), values, next, apiclient.MessageOr(err, msgLoginFailed))
	}
	if res.UserID == 0 {
		return s.renderLogin(c, fiber.StatusUnauthorized, values, next, msgLoginRejected)
	}

	user := models.SessionUser{
		ID:       res.UserID,
		Username: res.Username,
		Email:    res.Email,
	}
	if user.Username == "" {
		user.Username = values.Get("username")
	}
	if res.IsAdmin != nil {
		user.IsAdmin = *res.IsAdmin
	} else {
		admin, err := caller.ProbeAdmin(ctx)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "admin probe failed", slog.String("error", err.Error()))
		}
		user.IsAdmin = admin
	}

	if err := s.sessions.Login(c, user, caller.Cookies()); err != nil {
		return models.NewInternalError(err)
	}
	s.flash(c, session.FlashSuccess, msgLoginOK)
	return c.Redirect(next, fiber.StatusSeeOther)
}

func (s *Server) renderLogin(c *fiber.Ctx, status int, values validation.Values, next, msg string) error {
	c.Status(status)
	return s.render(c, "auth/login", fiber.Map{
		"Title": "Login",
		"Form":  values,
		"Next":  next,
		"Error": msg,
	})
}

// RegisterPage renders the registration form.
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	if s.authState(c).IsAuthenticated() {
		return c.Redirect(middleware.DefaultNext, fiber.StatusSeeOther)
	}
	return s.renderRegister(c, fiber.StatusOK, validation.Values{}, nil, "")
}

// Register checks the form locally, then creates the account upstream.
// A mismatched confirmation never reaches the API.
func (s *Server) Register(c *fiber.Ctx) error {
	values := validation.Values{
		"username": c.FormValue("username"),
		"email":    c.FormValue("email"),
	}
	password := c.FormValue("password")
	confirm := c.FormValue("confirm_password")

	errs := validation.Required(values, "username", "email")
	if password == "" {
		errs.Add("password", validation.MsgRequired)
	}
	if values.Get("email") != "" && !validation.Email(values.Get("email")) {
		errs.Add("email", validation.MsgInvalidEmail)
	}
	if len(errs) > 0 {
		return s.renderRegister(c, fiber.StatusUnprocessableEntity, values, errs, "")
	}
	if err := validation.PasswordsMatch(password, confirm); err != nil {
		return s.renderRegister(c, fiber.StatusUnprocessableEntity, values, nil, err.Error())
	}

	ctx := c.UserContext()
	_, err := s.api.For(nil).Register(ctx, apiclient.Registration{
		Username: values.Get("username"),
		Email:    values.Get("email"),
		Password: password,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		middleware.Logger.WarnContext(ctx, "registration rejected", slog.String("error", err.Error()))
		return s.renderRegister(c, upstreamStatus(err), values, nil, apiclient.MessageOr(err, msgRegisterFailed))
	}

	s.flash(c, session.FlashSuccess, msgRegisterOK)
	return c.Redirect("/login", fiber.StatusSeeOther)
}

func (s *Server) renderRegister(c *fiber.Ctx, status int, values validation.Values, errs validation.FieldErrors, msg string) error {
	if errs == nil {
		errs = validation.FieldErrors{}
	}
	c.Status(status)
	return s.render(c, "auth/register", fiber.Map{
		"Title":  "Registar",
		"Form":   values,
		"Errors": errs,
		"Error":  msg,
	})
}

// Logout ends the upstream and browser sessions. It never fails the request.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.Logout(c); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "logout incomplete", slog.String("error", err.Error()))
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

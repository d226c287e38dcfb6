package server

import (
	"context"
	"errors"
	"log/slog"

	"fitnessweb/internal/ads"
	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/models"
	"fitnessweb/internal/session"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const (
	msgDashboardAuth     = "Autenticação necessária. Por favor, faça login novamente."
	msgDashboardFailed   = "Falha ao carregar os dados do dashboard."
	msgPlanGenerated     = "Novo plano gerado com sucesso!"
	msgPlanGenerateError = "Ocorreu um erro ao gerar o novo plano."
)

// Dashboard shows the current diet and workout plans. A 404 from either
// endpoint means the user has no such plan yet.
func (s *Server) Dashboard(c *fiber.Ctx) error {
	caller, err := s.sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	userID := s.authState(c).UserID()

	var (
		diet    *models.DietPlan
		workout *models.WorkoutPlan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plan, err := caller.CurrentDietPlan(gctx)
		if apiclient.IsNotFound(err) {
			return nil
		}
		diet = plan
		return err
	})
	g.Go(func() error {
		plan, err := caller.CurrentWorkoutPlan(gctx)
		if apiclient.IsNotFound(err) {
			return nil
		}
		workout = plan
		return err
	})
	err = g.Wait()

	data := fiber.Map{"Title": "Dashboard"}
	switch {
	case err == nil:
		data["Diet"] = diet
		data["Workout"] = workout
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return err
	case apiclient.IsUnauthorized(err):
		data["Error"] = msgDashboardAuth
	default:
		middleware.Logger.WarnContext(ctx, "dashboard plans failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		data["Error"] = msgDashboardFailed
	}

	data["AdTop"] = s.ads.Banner(ctx, caller, ads.DashboardTop, userID)
	data["AdBottom"] = s.ads.Banner(ctx, caller, ads.DashboardBottom, userID)
	s.persist(c, caller)

	return s.render(c, "dashboard", data)
}

// GeneratePlan asks the API for a new monthly plan and returns to the
// dashboard, which then shows the fresh plans.
func (s *Server) GeneratePlan(c *fiber.Ctx) error {
	caller, err := s.sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	_, err = caller.GeneratePlan(ctx)
	s.persist(c, caller)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		middleware.Logger.WarnContext(ctx, "plan generation failed", slog.String("error", err.Error()))
		s.flash(c, session.FlashError, apiclient.MessageOr(err, msgPlanGenerateError))
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}

	s.flash(c, session.FlashSuccess, msgPlanGenerated)
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

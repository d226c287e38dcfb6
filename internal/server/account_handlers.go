package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/featureflags"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/models"
	"fitnessweb/internal/session"
	"fitnessweb/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const (
	msgProfileLoadFailed = "Falha ao carregar o perfil."
	msgProfileSaveFailed = "Ocorreu um erro ao guardar o perfil."
	msgProfileSaved      = "Perfil Atualizado!"
	msgPrefsLoadFailed   = "Falha ao carregar as preferências."
	msgPrefsSaveFailed   = "Ocorreu um erro ao guardar as preferências."
	msgPrefsSaved        = "Preferências Atualizadas!"
	msgSuggestionsFailed = "Não foi possível carregar as sugestões da IA."
	msgSuggestionsBanner = "Erro ao Carregar Sugestões"
)

var profileTextFields = []string{"full_name", "gender", "activity_level", "goal"}

var preferenceTextFields = []string{
	"liked_foods", "disliked_foods", "dietary_restrictions", "allergies",
	"preferred_workout_types", "workout_time_preference",
	"fitness_level_self_assessed", "specific_goals_text",
}

// ProfilePage fills the profile form. A missing profile is an empty form.
func (s *Server) ProfilePage(c *fiber.Ctx) error {
	caller, err := s.sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	profile, err := caller.GetProfile(ctx)
	s.persist(c, caller)

	switch {
	case err == nil:
		return s.renderProfile(c, fiber.StatusOK, profileValues(profile), nil, "")
	case apiclient.IsNotFound(err):
		return s.renderProfile(c, fiber.StatusOK, validation.Values{}, nil, "")
	case errors.Is(err, context.Canceled):
		return err
	default:
		middleware.Logger.WarnContext(ctx, "profile fetch failed", slog.String("error", err.Error()))
		return s.renderProfile(c, upstreamStatus(err), validation.Values{}, nil, apiclient.MessageOr(err, msgProfileLoadFailed))
	}
}

// SaveProfile coerces the numeric fields and upserts the profile. Blank
// numbers are left out of the payload.
func (s *Server) SaveProfile(c *fiber.Ctx) error {
	values := formValues(c, append([]string{"age", "height_cm", "weight_kg"}, profileTextFields...)...)

	payload := map[string]any{}
	for _, f := range profileTextFields {
		payload[f] = values.Get(f)
	}
	errs := validation.FieldErrors{}
	if age, err := validation.Int(values.Get("age")); err != nil {
		errs.Add("age", validation.MsgInvalidNumber)
	} else if age != nil {
		payload["age"] = *age
	}
	if height, err := validation.Int(values.Get("height_cm")); err != nil {
		errs.Add("height_cm", validation.MsgInvalidNumber)
	} else if height != nil {
		payload["height_cm"] = *height
	}
	if weight, err := validation.Float(values.Get("weight_kg")); err != nil {
		errs.Add("weight_kg", validation.MsgInvalidNumber)
	} else if weight != nil {
		payload["weight_kg"] = *weight
	}
	if len(errs) > 0 {
		return s.renderProfile(c, fiber.StatusUnprocessableEntity, values, errs, "")
	}

	caller, err := s.sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	_, err = caller.SaveProfile(ctx, payload)
	s.persist(c, caller)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		middleware.Logger.WarnContext(ctx, "profile save failed", slog.String("error", err.Error()))
		return s.renderProfile(c, upstreamStatus(err), values, nil, apiclient.MessageOr(err, msgProfileSaveFailed))
	}

	s.flash(c, session.FlashSuccess, msgProfileSaved)
	return c.Redirect("/profile", fiber.StatusSeeOther)
}

func (s *Server) renderProfile(c *fiber.Ctx, status int, values validation.Values, errs validation.FieldErrors, msg string) error {
	if errs == nil {
		errs = validation.FieldErrors{}
	}
	c.Status(status)
	return s.render(c, "profile", fiber.Map{
		"Title":          "Perfil",
		"Form":           values,
		"Errors":         errs,
		"Error":          msg,
		"Genders":        genderChoices,
		"ActivityLevels": activityLevelChoices,
		"Goals":          goalChoices,
	})
}

func profileValues(p *models.Profile) validation.Values {
	v := validation.Values{
		"full_name":      p.FullName,
		"gender":         p.Gender,
		"activity_level": p.ActivityLevel,
		"goal":           p.Goal,
	}
	if p.Age != nil {
		v["age"] = strconv.Itoa(*p.Age)
	}
	if p.HeightCM != nil {
		v["height_cm"] = strconv.Itoa(*p.HeightCM)
	}
	if p.WeightKG != nil {
		v["weight_kg"] = strconv.FormatFloat(*p.WeightKG, 'f', -1, 64)
	}
	return v
}

// PreferencesPage fills the preferences form and, when enabled, the AI
// suggestions. Suggestion failures are a notification, never a page error.
func (s *Server) PreferencesPage(c *fiber.Ctx) error {
	caller, err := s.sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	values := validation.Values{}
	msg := ""
	prefs, err := caller.GetPreferences(ctx)
	switch {
	case err == nil:
		values = preferenceValues(prefs)
	case apiclient.IsNotFound(err):
	case errors.Is(err, context.Canceled):
		return err
	default:
		middleware.Logger.WarnContext(ctx, "preferences fetch failed", slog.String("error", err.Error()))
		msg = apiclient.MessageOr(err, msgPrefsLoadFailed)
	}

	data := fiber.Map{}
	if s.featureFlags.Enabled(featureflags.AISuggestions, s.authState(c).UserID()) {
		suggestions, serr := s.loadSuggestions(ctx, caller)
		data["ShowSuggestions"] = true
		data["Suggestions"] = suggestions
		if serr != nil {
			s.flash(c, session.FlashError, msgSuggestionsBanner+": "+msgSuggestionsFailed)
			data["SuggestionsError"] = msgSuggestionsFailed
		}
	}
	s.persist(c, caller)

	return s.renderPreferences(c, fiber.StatusOK, values, nil, msg, data)
}

// loadSuggestions fetches food and workout suggestions concurrently.
func (s *Server) loadSuggestions(ctx context.Context, caller *apiclient.Caller) (models.AISuggestions, error) {
	var out models.AISuggestions
	var g errgroup.Group
	g.Go(func() error {
		food, err := caller.FoodSuggestions(ctx)
		out.Food = food
		return err
	})
	g.Go(func() error {
		workout, err := caller.WorkoutSuggestions(ctx)
		out.Workout = workout
		return err
	})
	if err := g.Wait(); err != nil {
		middleware.Logger.WarnContext(ctx, "ai suggestions failed", slog.String("error", err.Error()))
		return out, err
	}
	return out, nil
}

// SavePreferences upserts the preferences and returns to the page, which
// fetches fresh suggestions.
func (s *Server) SavePreferences(c *fiber.Ctx) error {
	values := formValues(c, append([]string{"workout_frequency_preference"}, preferenceTextFields...)...)

	payload := map[string]any{}
	for _, f := range preferenceTextFields {
		payload[f] = values.Get(f)
	}
	freq, err := validation.Int(values.Get("workout_frequency_preference"))
	if err != nil {
		errs := validation.FieldErrors{}
		errs.Add("workout_frequency_preference", validation.MsgInvalidNumber)
		return s.renderPreferences(c, fiber.StatusUnprocessableEntity, values, errs, "", nil)
	}
	if freq != nil {
		payload["workout_frequency_preference"] = *freq
	} else {
		payload["workout_frequency_preference"] = nil
	}

	caller, err := s.sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	_, err = caller.SavePreferences(ctx, payload)
	s.persist(c, caller)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		middleware.Logger.WarnContext(ctx, "preferences save failed", slog.String("error", err.Error()))
		return s.renderPreferences(c, upstreamStatus(err), values, nil, apiclient.MessageOr(err, msgPrefsSaveFailed), nil)
	}

	s.flash(c, session.FlashSuccess, msgPrefsSaved)
	return c.Redirect("/preferences", fiber.StatusSeeOther)
}

func (s *Server) renderPreferences(c *fiber.Ctx, status int, values validation.Values, errs validation.FieldErrors, msg string, extra fiber.Map) error {
	if errs == nil {
		errs = validation.FieldErrors{}
	}
	data := fiber.Map{
		"Title":         "Preferências",
		"Form":          values,
		"Errors":        errs,
		"Error":         msg,
		"WorkoutTimes":  workoutTimeChoices,
		"FitnessLevels": fitnessLevelChoices,
	}
	for k, v := range extra {
		data[k] = v
	}
	c.Status(status)
	return s.render(c, "preferences", data)
}

func preferenceValues(p *models.Preferences) validation.Values {
	v := validation.Values{
		"liked_foods":                 p.LikedFoods,
		"disliked_foods":              p.DislikedFoods,
		"dietary_restrictions":        p.DietaryRestrictions,
		"allergies":                   p.Allergies,
		"preferred_workout_types":     p.PreferredWorkoutTypes,
		"workout_time_preference":     p.WorkoutTimePreference,
		"fitness_level_self_assessed": p.FitnessLevelSelfAssessed,
		"specific_goals_text":         p.SpecificGoalsText,
	}
	if p.WorkoutFrequencyPreference != nil {
		v["workout_frequency_preference"] = strconv.Itoa(*p.WorkoutFrequencyPreference)
	}
	return v
}

func formValues(c *fiber.Ctx, fields ...string) validation.Values {
	v := make(validation.Values, len(fields))
	for _, f := range fields {
		v[f] = c.FormValue(f)
	}
	return v
}

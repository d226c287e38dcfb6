package apiclient

import (
	"context"
	"net/http"

	"fitnessweb/internal/models"
)

// CurrentDietPlan returns the active diet plan; 404 means there is none.
func (c *Caller) CurrentDietPlan(ctx context.Context) (*models.DietPlan, error) {
	var out models.DietPlan
	if err := c.Do(ctx, http.MethodGet, "/plan/diet/current", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentWorkoutPlan returns the active workout plan; 404 means there is none.
func (c *Caller) CurrentWorkoutPlan(ctx context.Context) (*models.WorkoutPlan, error) {
	var out models.WorkoutPlan
	if err := c.Do(ctx, http.MethodGet, "/plan/workout/current", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GeneratePlan asks the API to replace both current plans.
func (c *Caller) GeneratePlan(ctx context.Context) (*models.Message, error) {
	var out models.Message
	if err := c.Do(ctx, http.MethodPost, "/plan/generate", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

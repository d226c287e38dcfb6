package apiclient

import (
	"context"
	"net/http"

	"fitnessweb/internal/models"
)

// GetProfile returns the user's profile; a 404 means none was saved yet.
func (c *Caller) GetProfile(ctx context.Context) (*models.Profile, error) {
	var out models.Profile
	if err := c.Do(ctx, http.MethodGet, "/profile/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveProfile upserts the profile.
func (c *Caller) SaveProfile(ctx context.Context, payload map[string]any) (*models.Message, error) {
	var out models.Message
	if err := c.Do(ctx, http.MethodPost, "/profile/", nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPreferences returns the user's preferences; a 404 means none were saved yet.
func (c *Caller) GetPreferences(ctx context.Context) (*models.Preferences, error) {
	var out models.Preferences
	if err := c.Do(ctx, http.MethodGet, "/preferences/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SavePreferences upserts the preferences.
func (c *Caller) SavePreferences(ctx context.Context, payload map[string]any) (*models.Message, error) {
	var out models.Message
	if err := c.Do(ctx, http.MethodPost, "/preferences/", nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FoodSuggestions returns the AI food suggestions derived from the preferences.
func (c *Caller) FoodSuggestions(ctx context.Context) ([]string, error) {
	return c.suggestions(ctx, "/preferences/suggestions/food")
}

// WorkoutSuggestions returns the AI workout suggestions derived from the preferences.
func (c *Caller) WorkoutSuggestions(ctx context.Context) ([]string, error) {
	return c.suggestions(ctx, "/preferences/suggestions/workout")
}

func (c *Caller) suggestions(ctx context.Context, path string) ([]string, error) {
	var out models.Suggestions
	if err := c.Do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

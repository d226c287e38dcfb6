package apiclient

import (
	"context"
	"net/http"

	"fitnessweb/internal/models"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against POST /auth/login. The API answers with a session
// cookie that lands in the Caller's jar.
func (c *Caller) Login(ctx context.Context, creds Credentials) (*models.LoginResult, error) {
	var out models.LoginResult
	if err := c.Do(ctx, http.MethodPost, "/auth/login", nil, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account with POST /auth/register.
func (c *Caller) Register(ctx context.Context, reg Registration) (*models.Message, error) {
	var out models.Message
	if err := c.Do(ctx, http.MethodPost, "/auth/register", nil, reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the upstream session with POST /auth/logout.
func (c *Caller) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Status reports whether the upstream session is still logged in.
func (c *Caller) Status(ctx context.Context) (*models.AuthStatus, error) {
	var out models.AuthStatus
	if err := c.Do(ctx, http.MethodGet, "/auth/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProbeAdmin asks an admin-only endpoint for the smallest page it serves.
// A 200 means the session belongs to an administrator, 401/403 that it does not.
func (c *Caller) ProbeAdmin(ctx context.Context) (bool, error) {
	_, err := adminUsers.page(ctx, c, 1, 1)
	switch {
	case err == nil:
		return true, nil
	case IsForbidden(err), IsUnauthorized(err):
		return false, nil
	default:
		return false, err
	}
}

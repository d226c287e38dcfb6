// Package models defines the records exchanged with the fitness API.
package models

import "time"

// User is an account as listed by the admin API.
type User struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionUser is the identity held by a browser session.
type SessionUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

// LoginResult is the body of a successful POST /auth/login. IsAdmin is nil
// when the API does not report the role.
type LoginResult struct {
	Message  string `json:"message"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsAdmin  *bool  `json:"is_admin,omitempty"`
}

// AuthStatus is the body of GET /auth/status.
type AuthStatus struct {
	LoggedIn bool   `json:"logged_in"`
	UserID   uint   `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	IsAdmin  *bool  `json:"is_admin,omitempty"`
}

// Message is the generic {"message": "..."} acknowledgement.
type Message struct {
	Message string `json:"message"`
}

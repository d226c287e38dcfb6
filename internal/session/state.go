// Package session holds the browser-side authentication context: who is
// logged in, the upstream API cookies that prove it, and one-shot flash
// messages. State lives in a Fiber session store keyed by an opaque cookie.
package session

import (
	"encoding/json"
	"net/http"

	"fitnessweb/internal/middleware"
	"fitnessweb/internal/models"
)

// Status is the authentication gate of a session.
type Status int

const (
	Loading Status = iota
	Authenticated
	Unauthenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// State is one browser session's view of the user.
type State struct {
	Status     Status
	User       *models.SessionUser
	APICookies []*http.Cookie
}

var _ middleware.AuthState = (*State)(nil)

// Anonymous is the state of a visitor without a session.
func Anonymous() *State {
	return &State{Status: Unauthenticated}
}

func (s *State) IsLoading() bool {
	return s != nil && s.Status == Loading
}

func (s *State) IsAuthenticated() bool {
	return s != nil && s.Status == Authenticated && s.User != nil
}

func (s *State) IsAdmin() bool {
	return s.IsAuthenticated() && s.User.IsAdmin
}

func (s *State) UserID() uint {
	if s == nil || s.User == nil {
		return 0
	}
	return s.User.ID
}

// Username is empty for anonymous visitors.
func (s *State) Username() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.Username
}

// storedCookie is the persisted form of an upstream cookie. The jar only
// needs name and value to replay it against the API base URL.
type storedCookie struct {
	Name  string `json:"n"`
	Value string `json:"v"`
}

func encodeCookies(cookies []*http.Cookie) string {
	if len(cookies) == 0 {
		return ""
	}
	out := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		out = append(out, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(raw)
}

func decodeCookies(raw string) []*http.Cookie {
	if raw == "" {
		return nil
	}
	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil
	}
	out := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		out = append(out, &http.Cookie{Name: sc.Name, Value: sc.Value})
	}
	return out
}

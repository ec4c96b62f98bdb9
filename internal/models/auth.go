package models

import "time"

// LoginRequest holds credentials for authenticating against the upstream API.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminUser describes the authenticated administrator as returned by the
// upstream login endpoint. Token is the bearer token used for every
// subsequent upstream call.
type AdminUser struct {
	ID     string `json:"_id,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
	Token  string `json:"token,omitempty"`
}

// SessionInfo is the local view of the active login.
type SessionInfo struct {
	User      AdminUser `json:"user"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	LoggedIn  bool      `json:"loggedIn"`
}

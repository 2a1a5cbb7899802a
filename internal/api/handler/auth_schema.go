package handler

import (
	"time"

	"github.com/99minutos/auth-service/internal/core/ports"
)

type registerRequest struct {
	Username  string `json:"username"   validate:"required"`
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"  validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// assignRoleRequest is echoed back unchanged on success.
type assignRoleRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role"    validate:"required"`
}

type authResponse struct {
	IsAuthenticated bool       `json:"is_authenticated"`
	Message         string     `json:"message"`
	Username        string     `json:"username,omitempty"`
	Email           string     `json:"email,omitempty"`
	Token           string     `json:"token,omitempty"`
	Roles           []string   `json:"roles"`
	ExpiresOn       *time.Time `json:"expires_on,omitempty"`
}

type meResponse struct {
	UserID    string              `json:"user_id"`
	Username  string              `json:"username"`
	Email     string              `json:"email"`
	Roles     []string            `json:"roles"`
	Claims    map[string][]string `json:"claims,omitempty"`
	ExpiresAt time.Time           `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toAuthResponse(r *ports.AuthResult) authResponse {
	resp := authResponse{
		IsAuthenticated: r.IsAuthenticated,
		Message:         r.Message,
		Username:        r.Username,
		Email:           r.Email,
		Token:           r.Token,
		Roles:           r.Roles,
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	if !r.ExpiresOn.IsZero() {
		expires := r.ExpiresOn.UTC()
		resp.ExpiresOn = &expires
	}
	return resp
}

func toMeResponse(c *ports.TokenClaims) meResponse {
	return meResponse{
		UserID:    c.UserID,
		Username:  c.Subject,
		Email:     c.Email,
		Roles:     c.Roles,
		Claims:    c.Extra,
		ExpiresAt: c.ExpiresAt.UTC(),
	}
}

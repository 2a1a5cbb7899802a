package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// DefaultRoles are the roles every deployment starts with.
var DefaultRoles = []string{RoleUser, RoleAdmin}

// User models a registered identity.
type User struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	NormalizedUsername string    `json:"-"`
	Email              string    `json:"email"`
	NormalizedEmail    string    `json:"-"`
	PasswordHash       string    `json:"-"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Role is a named authorization group.
type Role struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"-"`
}

// Claim is an extra key/value fact attached to a user and copied into tokens.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Normalize returns the lookup key used for case-insensitive uniqueness of
// usernames, emails and role names.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

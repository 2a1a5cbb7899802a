package ports

import (
	"context"
	"time"
)

// RegisterInput carries the data needed to create an account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginInput carries the credentials presented at login.
type LoginInput struct {
	Email    string
	Password string
}

// AssignRoleInput names the user and the role to grant.
type AssignRoleInput struct {
	UserID string
	Role   string
}

// AuthResult is returned by Register and Login. When IsAuthenticated is false
// Token is empty and ExpiresOn is zero; Message is always set.
type AuthResult struct {
	IsAuthenticated bool
	Message         string
	Username        string
	Email           string
	Token           string
	Roles           []string
	ExpiresOn       time.Time
}

// AuthService is the registration / login / role-assignment workflow.
//
// Business failures are reported through the result values. The error return
// is reserved for infrastructure failures (store unreachable and the like).
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	// AssignRole returns an empty message on success.
	AssignRole(ctx context.Context, in AssignRoleInput) (string, error)
}

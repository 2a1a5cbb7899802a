package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// CredentialStore is the identity-management collaborator the auth workflow
// depends on. It owns password hashing and verification and answers lookups
// case-insensitively.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create validates the password and user policies, hashes the password and
	// persists the user. Policy failures are returned as *domain.IdentityError.
	Create(ctx context.Context, user *domain.User, password string) error
	VerifyPassword(ctx context.Context, user *domain.User, password string) bool
	Roles(ctx context.Context, user *domain.User) ([]string, error)
	Claims(ctx context.Context, user *domain.User) ([]domain.Claim, error)
	HasRole(ctx context.Context, user *domain.User, role string) (bool, error)
	AddRole(ctx context.Context, user *domain.User, role string) error
	RoleExists(ctx context.Context, role string) (bool, error)
}

package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// UserRepository persists user records and their extra claims.
// Lookups by email and username take the normalized form (see domain.Normalize).
type UserRepository interface {
	// CreateUser inserts the user. A uniqueness violation on the normalized
	// email or username is reported as domain.ErrUserExists.
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByNormalizedEmail(ctx context.Context, normalizedEmail string) (*domain.User, error)
	FindUserByNormalizedUsername(ctx context.Context, normalizedUsername string) (*domain.User, error)
	UserClaims(ctx context.Context, userID string) ([]domain.Claim, error)
	AddUserClaim(ctx context.Context, userID string, claim domain.Claim) error
}

// RoleRepository persists roles and user-role memberships.
type RoleRepository interface {
	// CreateRole inserts the role, returning domain.ErrRoleExists when the
	// normalized name is taken.
	CreateRole(ctx context.Context, role *domain.Role) error
	FindRoleByNormalizedName(ctx context.Context, normalizedName string) (*domain.Role, error)
	// UserRoles returns the canonical names of the roles held by the user, sorted.
	UserRoles(ctx context.Context, userID string) ([]string, error)
	IsUserInRole(ctx context.Context, userID, roleID string) (bool, error)
	// AddUserToRole returns domain.ErrRoleAlreadyAssigned when the membership exists.
	AddUserToRole(ctx context.Context, userID, roleID string) error
}

// IdentityRepository is the full persistence port implemented by every store backend.
type IdentityRepository interface {
	UserRepository
	RoleRepository
	Ping(ctx context.Context) error
}

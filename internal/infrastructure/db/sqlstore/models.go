package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                 string    `bun:"id,pk"`
	Username           string    `bun:"username,notnull"`
	NormalizedUsername string    `bun:"normalized_username,notnull,unique"`
	Email              string    `bun:"email,notnull"`
	NormalizedEmail    string    `bun:"normalized_email,notnull,unique"`
	PasswordHash       string    `bun:"password_hash,notnull"`
	FirstName          string    `bun:"first_name,notnull"`
	LastName           string    `bun:"last_name,notnull"`
	CreatedAt          time.Time `bun:"created_at,notnull"`
	UpdatedAt          time.Time `bun:"updated_at,notnull"`
}

type roleModel struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID             string `bun:"id,pk"`
	Name           string `bun:"name,notnull"`
	NormalizedName string `bun:"normalized_name,notnull,unique"`
}

// userRoleModel is one membership. The composite key rejects duplicates.
type userRoleModel struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID string `bun:"user_id,pk"`
	RoleID string `bun:"role_id,pk"`
}

type userClaimModel struct {
	bun.BaseModel `bun:"table:user_claims,alias:uc"`

	ID     int64  `bun:"id,pk,autoincrement"`
	UserID string `bun:"user_id,notnull"`
	Type   string `bun:"claim_type,notnull"`
	Value  string `bun:"claim_value,notnull"`
}

func toUserModel(u *domain.User) *userModel {
	return &userModel{
		ID:                 u.ID,
		Username:           u.Username,
		NormalizedUsername: u.NormalizedUsername,
		Email:              u.Email,
		NormalizedEmail:    u.NormalizedEmail,
		PasswordHash:       u.PasswordHash,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		CreatedAt:          u.CreatedAt.UTC(),
		UpdatedAt:          u.UpdatedAt.UTC(),
	}
}

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:                 m.ID,
		Username:           m.Username,
		NormalizedUsername: m.NormalizedUsername,
		Email:              m.Email,
		NormalizedEmail:    m.NormalizedEmail,
		PasswordHash:       m.PasswordHash,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

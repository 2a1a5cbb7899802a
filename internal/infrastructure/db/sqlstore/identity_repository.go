package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/uptrace/bun"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

// IdentityRepository implements ports.IdentityRepository on a bun database.
type IdentityRepository struct {
	db     *bun.DB
	driver string
}

// NewIdentityRepository wraps db. driver only labels metrics.
func NewIdentityRepository(db *bun.DB, driver string) *IdentityRepository {
	return &IdentityRepository{db: db, driver: driver}
}

func (r *IdentityRepository) CreateUser(ctx context.Context, user *domain.User) error {
	defer metrics.ObserveStore(r.driver, "create_user")()

	if _, err := r.db.NewInsert().Model(toUserModel(user)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *IdentityRepository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	defer metrics.ObserveStore(r.driver, "find_user_by_id")()
	return r.findUser(ctx, "u.id = ?", id)
}

func (r *IdentityRepository) FindUserByNormalizedEmail(ctx context.Context, normalizedEmail string) (*domain.User, error) {
	defer metrics.ObserveStore(r.driver, "find_user_by_email")()
	return r.findUser(ctx, "u.normalized_email = ?", normalizedEmail)
}

func (r *IdentityRepository) FindUserByNormalizedUsername(ctx context.Context, normalizedUsername string) (*domain.User, error) {
	defer metrics.ObserveStore(r.driver, "find_user_by_username")()
	return r.findUser(ctx, "u.normalized_username = ?", normalizedUsername)
}

func (r *IdentityRepository) findUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var m userModel
	err := r.db.NewSelect().Model(&m).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return m.toDomain(), nil
}

func (r *IdentityRepository) UserClaims(ctx context.Context, userID string) ([]domain.Claim, error) {
	defer metrics.ObserveStore(r.driver, "user_claims")()

	var rows []userClaimModel
	err := r.db.NewSelect().Model(&rows).Where("uc.user_id = ?", userID).Order("uc.id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	claims := make([]domain.Claim, 0, len(rows))
	for _, row := range rows {
		claims = append(claims, domain.Claim{Type: row.Type, Value: row.Value})
	}
	return claims, nil
}

func (r *IdentityRepository) AddUserClaim(ctx context.Context, userID string, claim domain.Claim) error {
	defer metrics.ObserveStore(r.driver, "add_user_claim")()

	if err := r.requireUser(ctx, userID); err != nil {
		return err
	}
	row := &userClaimModel{UserID: userID, Type: claim.Type, Value: claim.Value}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (r *IdentityRepository) CreateRole(ctx context.Context, role *domain.Role) error {
	defer metrics.ObserveStore(r.driver, "create_role")()

	m := &roleModel{ID: role.ID, Name: role.Name, NormalizedName: role.NormalizedName}
	if _, err := r.db.NewInsert().Model(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoleExists
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (r *IdentityRepository) FindRoleByNormalizedName(ctx context.Context, normalizedName string) (*domain.Role, error) {
	defer metrics.ObserveStore(r.driver, "find_role_by_name")()

	var m roleModel
	err := r.db.NewSelect().Model(&m).Where("r.normalized_name = ?", normalizedName).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: m.ID, Name: m.Name, NormalizedName: m.NormalizedName}, nil
}

func (r *IdentityRepository) UserRoles(ctx context.Context, userID string) ([]string, error) {
	defer metrics.ObserveStore(r.driver, "user_roles")()

	var names []string
	err := r.db.NewSelect().
		Model((*roleModel)(nil)).
		ColumnExpr("r.name").
		Join("JOIN user_roles AS ur ON ur.role_id = r.id").
		Where("ur.user_id = ?", userID).
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	sort.Strings(names)
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (r *IdentityRepository) IsUserInRole(ctx context.Context, userID, roleID string) (bool, error) {
	defer metrics.ObserveStore(r.driver, "is_user_in_role")()

	held, err := r.db.NewSelect().
		Model((*userRoleModel)(nil)).
		Where("ur.user_id = ? AND ur.role_id = ?", userID, roleID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return held, nil
}

func (r *IdentityRepository) AddUserToRole(ctx context.Context, userID, roleID string) error {
	defer metrics.ObserveStore(r.driver, "add_user_to_role")()

	if err := r.requireUser(ctx, userID); err != nil {
		return err
	}
	exists, err := r.db.NewSelect().Model((*roleModel)(nil)).Where("r.id = ?", roleID).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check role: %w", err)
	}
	if !exists {
		return domain.ErrRoleNotFound
	}

	if _, err := r.db.NewInsert().Model(&userRoleModel{UserID: userID, RoleID: roleID}).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoleAlreadyAssigned
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (r *IdentityRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *IdentityRepository) requireUser(ctx context.Context, userID string) error {
	exists, err := r.db.NewSelect().Model((*userModel)(nil)).Where("u.id = ?", userID).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return domain.ErrUserNotFound
	}
	return nil
}

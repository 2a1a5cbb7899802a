package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// CredentialStore implements ports.CredentialStore on top of any identity
// repository. It normalizes lookups, enforces the password and user policies
// and hashes passwords with bcrypt.
type CredentialStore struct {
	repo      ports.IdentityRepository
	policy    PasswordPolicy
	cost      int
	dummyHash []byte
	now       func() time.Time
}

// NewCredentialStore returns a CredentialStore. cost falls back to
// bcrypt.DefaultCost when outside bcrypt's accepted range.
func NewCredentialStore(repo ports.IdentityRepository, policy PasswordPolicy, cost int) (*CredentialStore, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, fmt.Errorf("credential store: %w", err)
	}
	return &CredentialStore{
		repo:      repo,
		policy:    policy,
		cost:      cost,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.FindUserByNormalizedEmail(ctx, domain.Normalize(email))
}

func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.FindUserByNormalizedUsername(ctx, domain.Normalize(username))
}

func (s *CredentialStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}
	return s.repo.FindUserByID(ctx, id)
}

// Create validates, hashes and persists user. On success user.ID,
// PasswordHash, the normalized fields and the timestamps are populated.
func (s *CredentialStore) Create(ctx context.Context, user *domain.User, password string) error {
	problems := checkUsername(user.Username)
	problems = append(problems, s.policy.Check(password)...)
	if len(problems) > 0 {
		return &domain.IdentityError{Descriptions: problems}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return &domain.IdentityError{Descriptions: []string{"Passwords must be at most 72 bytes."}}
		}
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.NormalizedUsername = domain.Normalize(user.Username)
	user.NormalizedEmail = domain.Normalize(user.Email)
	user.PasswordHash = string(hash)
	user.CreatedAt = now
	user.UpdatedAt = now

	return s.repo.CreateUser(ctx, user)
}

// VerifyPassword reports whether password matches the user's hash. A nil user
// still costs one bcrypt comparison so response time does not reveal whether
// the account exists.
func (s *CredentialStore) VerifyPassword(_ context.Context, user *domain.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *CredentialStore) Roles(ctx context.Context, user *domain.User) ([]string, error) {
	return s.repo.UserRoles(ctx, user.ID)
}

func (s *CredentialStore) Claims(ctx context.Context, user *domain.User) ([]domain.Claim, error) {
	return s.repo.UserClaims(ctx, user.ID)
}

func (s *CredentialStore) HasRole(ctx context.Context, user *domain.User, role string) (bool, error) {
	r, err := s.repo.FindRoleByNormalizedName(ctx, domain.Normalize(role))
	if errors.Is(err, domain.ErrRoleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.repo.IsUserInRole(ctx, user.ID, r.ID)
}

// AddRole grants role to user. It returns domain.ErrRoleNotFound for unknown
// roles and domain.ErrRoleAlreadyAssigned when the membership exists.
func (s *CredentialStore) AddRole(ctx context.Context, user *domain.User, role string) error {
	r, err := s.repo.FindRoleByNormalizedName(ctx, domain.Normalize(role))
	if err != nil {
		return err
	}
	return s.repo.AddUserToRole(ctx, user.ID, r.ID)
}

func (s *CredentialStore) RoleExists(ctx context.Context, role string) (bool, error) {
	_, err := s.repo.FindRoleByNormalizedName(ctx, domain.Normalize(role))
	switch {
	case errors.Is(err, domain.ErrRoleNotFound):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

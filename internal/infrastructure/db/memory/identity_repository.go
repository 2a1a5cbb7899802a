// Package memory provides an in-process identity repository. It backs tests
// and the "memory" store driver; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// IdentityRepository implements ports.IdentityRepository with maps guarded by
// a RWMutex. Returned users are copies.
type IdentityRepository struct {
	mu sync.RWMutex

	users      map[string]*domain.User // id -> user
	byEmail    map[string]string       // normalized email -> id
	byUsername map[string]string       // normalized username -> id
	claims     map[string][]domain.Claim

	roles       map[string]*domain.Role        // id -> role
	rolesByName map[string]string              // normalized name -> id
	memberships map[string]map[string]struct{} // user id -> role ids
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		users:       make(map[string]*domain.User),
		byEmail:     make(map[string]string),
		byUsername:  make(map[string]string),
		claims:      make(map[string][]domain.Claim),
		roles:       make(map[string]*domain.Role),
		rolesByName: make(map[string]string),
		memberships: make(map[string]map[string]struct{}),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *IdentityRepository) CreateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return domain.ErrUserExists
	}
	if _, ok := r.byEmail[user.NormalizedEmail]; ok {
		return domain.ErrUserExists
	}
	if _, ok := r.byUsername[user.NormalizedUsername]; ok {
		return domain.ErrUserExists
	}
	r.users[user.ID] = cloneUser(user)
	r.byEmail[user.NormalizedEmail] = user.ID
	r.byUsername[user.NormalizedUsername] = user.ID
	return nil
}

func (r *IdentityRepository) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *IdentityRepository) FindUserByNormalizedEmail(_ context.Context, normalizedEmail string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byEmail, normalizedEmail)
}

func (r *IdentityRepository) FindUserByNormalizedUsername(_ context.Context, normalizedUsername string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byUsername, normalizedUsername)
}

// lookup must be called with r.mu held.
func (r *IdentityRepository) lookup(index map[string]string, key string) (*domain.User, error) {
	id, ok := index[key]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(r.users[id]), nil
}

func (r *IdentityRepository) UserClaims(_ context.Context, userID string) ([]domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Claim, len(r.claims[userID]))
	copy(out, r.claims[userID])
	return out, nil
}

func (r *IdentityRepository) AddUserClaim(_ context.Context, userID string, claim domain.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	r.claims[userID] = append(r.claims[userID], claim)
	return nil
}

func (r *IdentityRepository) CreateRole(_ context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rolesByName[role.NormalizedName]; ok {
		return domain.ErrRoleExists
	}
	clone := *role
	r.roles[role.ID] = &clone
	r.rolesByName[role.NormalizedName] = role.ID
	return nil
}

func (r *IdentityRepository) FindRoleByNormalizedName(_ context.Context, normalizedName string) (*domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.rolesByName[normalizedName]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	clone := *r.roles[id]
	return &clone, nil
}

func (r *IdentityRepository) UserRoles(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.memberships[userID]))
	for roleID := range r.memberships[userID] {
		names = append(names, r.roles[roleID].Name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *IdentityRepository) IsUserInRole(_ context.Context, userID, roleID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.memberships[userID][roleID]
	return ok, nil
}

func (r *IdentityRepository) AddUserToRole(_ context.Context, userID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := r.roles[roleID]; !ok {
		return domain.ErrRoleNotFound
	}
	set, ok := r.memberships[userID]
	if !ok {
		set = make(map[string]struct{})
		r.memberships[userID] = set
	}
	if _, held := set[roleID]; held {
		return domain.ErrRoleAlreadyAssigned
	}
	set[roleID] = struct{}{}
	return nil
}

func (r *IdentityRepository) Ping(context.Context) error {
	return nil
}

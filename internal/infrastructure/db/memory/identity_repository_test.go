package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func newUser(id, username, email string) *domain.User {
	return &domain.User{
		ID:                 id,
		Username:           username,
		NormalizedUsername: domain.Normalize(username),
		Email:              email,
		NormalizedEmail:    domain.Normalize(email),
	}
}

func TestIdentityRepository_CreateAndFind(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	if err := repo.CreateUser(ctx, newUser("1", "alice", "alice@example.com")); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	byEmail, err := repo.FindUserByNormalizedEmail(ctx, "ALICE@EXAMPLE.COM")
	if err != nil || byEmail.ID != "1" {
		t.Fatalf("unexpected lookup by email: %+v %v", byEmail, err)
	}
	byName, err := repo.FindUserByNormalizedUsername(ctx, "ALICE")
	if err != nil || byName.ID != "1" {
		t.Fatalf("unexpected lookup by username: %+v %v", byName, err)
	}

	byName.Username = "mutated"
	again, _ := repo.FindUserByID(ctx, "1")
	if again.Username != "alice" {
		t.Fatalf("repository leaked internal state")
	}

	if _, err := repo.FindUserByID(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIdentityRepository_UniqueConstraints(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()
	_ = repo.CreateUser(ctx, newUser("1", "alice", "alice@example.com"))

	if err := repo.CreateUser(ctx, newUser("2", "other", "Alice@Example.com")); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists for email, got %v", err)
	}
	if err := repo.CreateUser(ctx, newUser("3", "ALICE", "new@example.com")); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists for username, got %v", err)
	}
}

func TestIdentityRepository_ConcurrentCreateSameEmail(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.CreateUser(ctx, newUser(string(rune('a'+i)), "user"+string(rune('a'+i)), "same@example.com"))
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, domain.ErrUserExists) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one winner, got %d", ok)
	}
}

func TestIdentityRepository_Roles(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()
	_ = repo.CreateUser(ctx, newUser("1", "alice", "alice@example.com"))

	for _, name := range []string{"User", "Admin"} {
		if err := repo.CreateRole(ctx, &domain.Role{ID: "r-" + name, Name: name, NormalizedName: domain.Normalize(name)}); err != nil {
			t.Fatalf("CreateRole returned error: %v", err)
		}
	}
	if err := repo.CreateRole(ctx, &domain.Role{ID: "dup", Name: "user", NormalizedName: "USER"}); !errors.Is(err, domain.ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists, got %v", err)
	}

	if err := repo.AddUserToRole(ctx, "1", "r-User"); err != nil {
		t.Fatalf("AddUserToRole returned error: %v", err)
	}
	if err := repo.AddUserToRole(ctx, "1", "r-User"); !errors.Is(err, domain.ErrRoleAlreadyAssigned) {
		t.Fatalf("expected ErrRoleAlreadyAssigned, got %v", err)
	}
	_ = repo.AddUserToRole(ctx, "1", "r-Admin")

	roles, err := repo.UserRoles(ctx, "1")
	if err != nil || len(roles) != 2 || roles[0] != "Admin" || roles[1] != "User" {
		t.Fatalf("unexpected roles: %v %v", roles, err)
	}
	if in, _ := repo.IsUserInRole(ctx, "1", "r-Admin"); !in {
		t.Fatalf("expected membership")
	}
	if in, _ := repo.IsUserInRole(ctx, "2", "r-Admin"); in {
		t.Fatalf("unexpected membership for unknown user")
	}
}

func TestIdentityRepository_Claims(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()
	_ = repo.CreateUser(ctx, newUser("1", "alice", "alice@example.com"))

	if err := repo.AddUserClaim(ctx, "1", domain.Claim{Type: "tenant", Value: "acme"}); err != nil {
		t.Fatalf("AddUserClaim returned error: %v", err)
	}
	if err := repo.AddUserClaim(ctx, "nope", domain.Claim{Type: "x", Value: "y"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	claims, _ := repo.UserClaims(ctx, "1")
	if len(claims) != 1 || claims[0].Value != "acme" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

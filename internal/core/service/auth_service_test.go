package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fixture struct {
	svc    *AuthService
	store  *CredentialStore
	repo   *memory.IdentityRepository
	tokens *TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewIdentityRepository()
	if err := SeedRoles(context.Background(), repo, zerolog.Nop(), domain.DefaultRoles...); err != nil {
		t.Fatalf("SeedRoles returned error: %v", err)
	}
	store, err := NewCredentialStore(repo, DefaultPasswordPolicy(), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewCredentialStore returned error: %v", err)
	}
	tokens := newTestIssuer(t)
	return &fixture{
		svc:    NewAuthService(store, tokens, zerolog.Nop()),
		store:  store,
		repo:   repo,
		tokens: tokens,
	}
}

func registerInput(username, email string) ports.RegisterInput {
	return ports.RegisterInput{
		Username:  username,
		Email:     email,
		Password:  "Passw0rd!",
		FirstName: "Test",
		LastName:  "User",
	}
}

func mustRegister(t *testing.T, f *fixture, username, email string) *ports.AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), registerInput(username, email))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !res.IsAuthenticated {
		t.Fatalf("Register failed: %s", res.Message)
	}
	return res
}

func userID(t *testing.T, f *fixture, email string) string {
	t.Helper()
	u, err := f.store.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	return u.ID
}

// faultyStore wraps a real store and injects failures.
type faultyStore struct {
	ports.CredentialStore
	findErr    error
	createErr  error
	addRoleErr error
}

func (s *faultyStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.CredentialStore.FindByEmail(ctx, email)
}

func (s *faultyStore) Create(ctx context.Context, user *domain.User, password string) error {
	if s.createErr != nil {
		return s.createErr
	}
	return s.CredentialStore.Create(ctx, user, password)
}

func (s *faultyStore) AddRole(ctx context.Context, user *domain.User, role string) error {
	if s.addRoleErr != nil {
		return s.addRoleErr
	}
	return s.CredentialStore.AddRole(ctx, user, role)
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestAuthService_Register_Success(t *testing.T) {
	f := newFixture(t)
	before := time.Now().UTC().Truncate(time.Second)

	res := mustRegister(t, f, "alice", "alice@example.com")

	if res.Message != domain.MsgRegistered {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if res.Username != "alice" || res.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", res)
	}
	if len(res.Roles) != 1 || res.Roles[0] != domain.RoleUser {
		t.Fatalf("unexpected roles: %v", res.Roles)
	}

	claims, err := f.tokens.ParseToken(res.Token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != domain.RoleUser {
		t.Fatalf("unexpected role claims: %v", claims.Roles)
	}
	if claims.Subject != "alice" || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}

	lifetime := 48 * time.Hour
	if res.ExpiresOn.Before(before.Add(lifetime)) || res.ExpiresOn.After(time.Now().Add(lifetime+time.Second)) {
		t.Fatalf("expiry %v not within issuance + lifetime", res.ExpiresOn)
	}
	if !claims.ExpiresAt.Equal(res.ExpiresOn) {
		t.Fatalf("token exp %v differs from result %v", claims.ExpiresAt, res.ExpiresOn)
	}

	persisted, err := f.store.Roles(context.Background(), &domain.User{ID: userID(t, f, "alice@example.com")})
	if err != nil || len(persisted) != 1 || persisted[0] != domain.RoleUser {
		t.Fatalf("unexpected persisted roles: %v %v", persisted, err)
	}
}

func TestAuthService_Register_PasswordIsHashed(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, "alice", "alice@example.com")

	u, _ := f.store.FindByEmail(context.Background(), "alice@example.com")
	if u.PasswordHash == "Passw0rd!" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Passw0rd!")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_DuplicateEmailCaseInsensitive(t *testing.T) {
	orders := [][2]string{
		{"bob@example.com", "BOB@Example.COM"},
		{"BOB@Example.COM", "bob@example.com"},
	}
	for _, order := range orders {
		f := newFixture(t)
		first, _ := f.svc.Register(context.Background(), registerInput("bob", order[0]))
		second, _ := f.svc.Register(context.Background(), registerInput("bobby", order[1]))

		if !first.IsAuthenticated {
			t.Fatalf("first registration failed: %s", first.Message)
		}
		if second.IsAuthenticated || second.Message != domain.MsgEmailRegistered {
			t.Fatalf("expected %q, got %+v", domain.MsgEmailRegistered, second)
		}
		if second.Token != "" || !second.ExpiresOn.IsZero() {
			t.Fatalf("failure result must not carry a token: %+v", second)
		}
	}
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, "carol", "carol@example.com")

	res, err := f.svc.Register(context.Background(), registerInput("Carol", "carol2@example.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.IsAuthenticated || res.Message != domain.MsgNameRegistered {
		t.Fatalf("expected %q, got %+v", domain.MsgNameRegistered, res)
	}
}

func TestAuthService_Register_PolicyViolation(t *testing.T) {
	f := newFixture(t)
	in := registerInput("dave", "dave@example.com")
	in.Password = "weak"

	res, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.IsAuthenticated {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(res.Message, "Passwords must be at least 6 characters.") ||
		!strings.Contains(res.Message, "Passwords must have at least one digit ('0'-'9').") {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if _, err := f.store.FindByEmail(context.Background(), "dave@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("user must not be persisted, got %v", err)
	}
}

func TestAuthService_Register_LostUniquenessRace(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(&faultyStore{CredentialStore: f.store, createErr: domain.ErrUserExists}, f.tokens, zerolog.Nop())

	res, err := svc.Register(context.Background(), registerInput("erin", "erin@example.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.IsAuthenticated || res.Message != domain.MsgSomethingWentWrong {
		t.Fatalf("expected generic failure, got %+v", res)
	}
}

func TestAuthService_Register_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	down := errors.New("connection refused")
	svc := NewAuthService(&faultyStore{CredentialStore: f.store, findErr: down}, f.tokens, zerolog.Nop())

	if _, err := svc.Register(context.Background(), registerInput("frank", "frank@example.com")); !errors.Is(err, down) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestAuthService_Register_ExtraClaimsInToken(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, "gina", "gina@example.com")
	id := userID(t, f, "gina@example.com")
	if err := f.repo.AddUserClaim(context.Background(), id, domain.Claim{Type: "tenant", Value: "acme"}); err != nil {
		t.Fatalf("AddUserClaim returned error: %v", err)
	}

	res, _ := f.svc.Login(context.Background(), ports.LoginInput{Email: "gina@example.com", Password: "Passw0rd!"})
	claims, err := f.tokens.ParseToken(res.Token)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if got := claims.Extra["tenant"]; len(got) != 1 || got[0] != "acme" {
		t.Fatalf("expected tenant claim, got %v", claims.Extra)
	}
	if claims.UserID != id {
		t.Fatalf("expected uid %s, got %s", id, claims.UserID)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestAuthService_Login_FailureMessagesIdentical(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, "henry", "henry@example.com")

	wrongPassword, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "henry@example.com", Password: "Wr0ng!pass"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	unknownEmail, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "ghost@example.com", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if wrongPassword.IsAuthenticated || unknownEmail.IsAuthenticated {
		t.Fatalf("expected both logins to fail")
	}
	if wrongPassword.Message != domain.MsgInvalidLogin || wrongPassword.Message != unknownEmail.Message {
		t.Fatalf("messages differ: %q vs %q", wrongPassword.Message, unknownEmail.Message)
	}
	if wrongPassword.Token != "" || unknownEmail.Token != "" {
		t.Fatalf("failure results must not carry tokens")
	}
}

func TestAuthService_Login_TokenCarriesPersistedRoles(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, "iris", "iris@example.com")
	id := userID(t, f, "iris@example.com")

	if msg, err := f.svc.AssignRole(context.Background(), ports.AssignRoleInput{UserID: id, Role: domain.RoleAdmin}); err != nil || msg != "" {
		t.Fatalf("AssignRole failed: %q %v", msg, err)
	}

	res, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "IRIS@example.com", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !res.IsAuthenticated || res.Message != domain.MsgLoggedIn {
		t.Fatalf("unexpected result: %+v", res)
	}

	claims, err := f.tokens.ParseToken(res.Token)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	got := append([]string(nil), claims.Roles...)
	sort.Strings(got)
	if strings.Join(got, ",") != "Admin,User" {
		t.Fatalf("unexpected role claims: %v", claims.Roles)
	}
	if strings.Join(res.Roles, ",") != "Admin,User" {
		t.Fatalf("unexpected result roles: %v", res.Roles)
	}
}

func TestAuthService_Login_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	down := errors.New("connection refused")
	svc := NewAuthService(&faultyStore{CredentialStore: f.store, findErr: down}, f.tokens, zerolog.Nop())

	if _, err := svc.Login(context.Background(), ports.LoginInput{Email: "a@example.com", Password: "x"}); !errors.Is(err, down) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// AssignRole
// ---------------------------------------------------------------------------

func TestAuthService_AssignRole_Twice(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, "jack", "jack@example.com")
	id := userID(t, f, "jack@example.com")
	user := &domain.User{ID: id}

	before, _ := f.store.Roles(context.Background(), user)

	first, err := f.svc.AssignRole(context.Background(), ports.AssignRoleInput{UserID: id, Role: "Admin"})
	if err != nil || first != "" {
		t.Fatalf("first assignment failed: %q %v", first, err)
	}
	second, err := f.svc.AssignRole(context.Background(), ports.AssignRoleInput{UserID: id, Role: "admin"})
	if err != nil {
		t.Fatalf("AssignRole returned error: %v", err)
	}
	if second != domain.MsgRoleAlreadyAssigned {
		t.Fatalf("expected %q, got %q", domain.MsgRoleAlreadyAssigned, second)
	}

	after, _ := f.store.Roles(context.Background(), user)
	if len(after) != len(before)+1 {
		t.Fatalf("expected role count to grow by one: before=%v after=%v", before, after)
	}
}

func TestAuthService_AssignRole_UnknownUserOrRole(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, "kate", "kate@example.com")
	id := userID(t, f, "kate@example.com")

	cases := []ports.AssignRoleInput{
		{UserID: id, Role: "Superuser"},
		{UserID: "6f1c7a52-0000-4000-8000-000000000000", Role: "Admin"},
		{UserID: "not-a-uuid", Role: "Admin"},
	}
	for _, in := range cases {
		msg, err := f.svc.AssignRole(context.Background(), in)
		if err != nil {
			t.Fatalf("AssignRole returned error: %v", err)
		}
		if msg != domain.MsgInvalidUserOrRole {
			t.Fatalf("expected %q for %+v, got %q", domain.MsgInvalidUserOrRole, in, msg)
		}
	}
}

func TestAuthService_AssignRole_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, "liam", "liam@example.com")
	id := userID(t, f, "liam@example.com")
	svc := NewAuthService(&faultyStore{CredentialStore: f.store, addRoleErr: errors.New("disk full")}, f.tokens, zerolog.Nop())

	msg, err := svc.AssignRole(context.Background(), ports.AssignRoleInput{UserID: id, Role: "Admin"})
	if err != nil {
		t.Fatalf("AssignRole returned error: %v", err)
	}
	if msg != domain.MsgSomethingWentWrong {
		t.Fatalf("expected %q, got %q", domain.MsgSomethingWentWrong, msg)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

// AuthService implements registration, login and role assignment.
type AuthService struct {
	store  ports.CredentialStore
	tokens ports.TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(store ports.CredentialStore, tokens ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, log: log}
}

// Register creates the account, grants the default role and returns a token.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	taken, err := found(s.store.FindByEmail(ctx, in.Email))
	if err != nil {
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}
	if taken {
		metrics.RegistrationsTotal.WithLabelValues("email_taken").Inc()
		return failure(domain.MsgEmailRegistered), nil
	}

	taken, err = found(s.store.FindByUsername(ctx, in.Username))
	if err != nil {
		return nil, fmt.Errorf("register: lookup username: %w", err)
	}
	if taken {
		metrics.RegistrationsTotal.WithLabelValues("name_taken").Inc()
		return failure(domain.MsgNameRegistered), nil
	}

	user := &domain.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := s.store.Create(ctx, user, in.Password); err != nil {
		var idErr *domain.IdentityError
		if errors.As(err, &idErr) {
			metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
			return failure(strings.Join(idErr.Descriptions, " ")), nil
		}
		// A concurrent registration won the unique constraint, or the write failed.
		s.log.Warn().Err(err).Str("username", in.Username).Msg("user creation failed")
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return failure(domain.MsgSomethingWentWrong), nil
	}

	if err := s.store.AddRole(ctx, user, domain.RoleUser); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("default role assignment failed")
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return failure(domain.MsgSomethingWentWrong), nil
	}

	roles := []string{domain.RoleUser}
	result, err := s.authenticated(ctx, user, roles, domain.MsgRegistered)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return result, nil
}

// Login verifies the credentials and returns a token covering the user's
// current roles. Unknown email and wrong password yield the same result.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	user, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("login: lookup email: %w", err)
	}
	if !s.store.VerifyPassword(ctx, user, in.Password) {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return failure(domain.MsgInvalidLogin), nil
	}

	roles, err := s.store.Roles(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("login: roles: %w", err)
	}

	result, err := s.authenticated(ctx, user, roles, domain.MsgLoggedIn)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return result, nil
}

// AssignRole grants a role to a user. The returned message is empty on
// success. Unknown user and unknown role share one message.
func (s *AuthService) AssignRole(ctx context.Context, in ports.AssignRoleInput) (string, error) {
	user, err := s.store.FindByID(ctx, in.UserID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return "", fmt.Errorf("assign role: lookup user: %w", err)
	}
	exists, err := s.store.RoleExists(ctx, in.Role)
	if err != nil {
		return "", fmt.Errorf("assign role: lookup role: %w", err)
	}
	if user == nil || !exists {
		metrics.RoleAssignmentsTotal.WithLabelValues("invalid").Inc()
		return domain.MsgInvalidUserOrRole, nil
	}

	held, err := s.store.HasRole(ctx, user, in.Role)
	if err != nil {
		return "", fmt.Errorf("assign role: membership: %w", err)
	}
	if held {
		metrics.RoleAssignmentsTotal.WithLabelValues("already_assigned").Inc()
		return domain.MsgRoleAlreadyAssigned, nil
	}

	if err := s.store.AddRole(ctx, user, in.Role); err != nil {
		if errors.Is(err, domain.ErrRoleAlreadyAssigned) {
			metrics.RoleAssignmentsTotal.WithLabelValues("already_assigned").Inc()
			return domain.MsgRoleAlreadyAssigned, nil
		}
		s.log.Error().Err(err).Str("user_id", user.ID).Str("role", in.Role).Msg("role assignment failed")
		metrics.RoleAssignmentsTotal.WithLabelValues("error").Inc()
		return domain.MsgSomethingWentWrong, nil
	}

	metrics.RoleAssignmentsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("role", in.Role).Msg("role assigned")
	return "", nil
}

// authenticated issues a token for user and builds the success result.
func (s *AuthService) authenticated(ctx context.Context, user *domain.User, roles []string, msg string) (*ports.AuthResult, error) {
	extra, err := s.store.Claims(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("claims: %w", err)
	}
	token, err := s.tokens.IssueToken(user, roles, extra)
	if err != nil {
		return nil, err
	}
	metrics.TokensIssuedTotal.Inc()

	return &ports.AuthResult{
		IsAuthenticated: true,
		Message:         msg,
		Username:        user.Username,
		Email:           user.Email,
		Token:           token.Value,
		Roles:           roles,
		ExpiresOn:       token.ExpiresOn,
	}, nil
}

// found turns a lookup into a presence flag, passing through real failures.
func found(user *domain.User, err error) (bool, error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return false, nil
	case err != nil:
		return false, err
	default:
		return user != nil, nil
	}
}

func failure(msg string) *ports.AuthResult {
	return &ports.AuthResult{Message: msg, Roles: []string{}}
}

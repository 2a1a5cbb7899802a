package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// SeedRoles makes sure every named role exists. It is safe to run on every
// start and from several instances at once.
func SeedRoles(ctx context.Context, repo ports.RoleRepository, log zerolog.Logger, names ...string) error {
	for _, name := range names {
		normalized := domain.Normalize(name)
		_, err := repo.FindRoleByNormalizedName(ctx, normalized)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrRoleNotFound) {
			return fmt.Errorf("seed role %s: %w", name, err)
		}

		role := &domain.Role{ID: uuid.NewString(), Name: name, NormalizedName: normalized}
		if err := repo.CreateRole(ctx, role); err != nil {
			if errors.Is(err, domain.ErrRoleExists) {
				continue
			}
			return fmt.Errorf("seed role %s: %w", name, err)
		}
		log.Info().Str("role", name).Msg("role seeded")
	}
	return nil
}

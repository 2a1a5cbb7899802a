// Command api serves the auth HTTP API.
//
// @title        Auth Service API
// @version      1.0
// @description  User registration, login and role assignment with signed bearer tokens.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "auth-service",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg, logger.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open identity store")
	}
	defer closeStore()

	if err := service.SeedRoles(ctx, repo, logger.Component("seeder"), domain.DefaultRoles...); err != nil {
		log.Fatal().Err(err).Msg("failed to seed roles")
	}

	store, err := service.NewCredentialStore(repo, service.PasswordPolicy{
		RequiredLength:         cfg.Password.RequiredLength,
		RequiredUniqueChars:    cfg.Password.RequiredUniqueChars,
		RequireDigit:           cfg.Password.RequireDigit,
		RequireLowercase:       cfg.Password.RequireLowercase,
		RequireUppercase:       cfg.Password.RequireUppercase,
		RequireNonAlphanumeric: cfg.Password.RequireNonAlphanumeric,
	}, cfg.Password.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build credential store")
	}

	tokens, err := service.NewTokenIssuer(service.SigningConfig{
		Key:            cfg.JWT.Key,
		Issuer:         cfg.JWT.Issuer,
		Audience:       cfg.JWT.Audience,
		DurationInDays: cfg.JWT.DurationInDays,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token issuer")
	}

	e := api.NewRouter(api.Dependencies{
		Auth:                  service.NewAuthService(store, tokens, logger.Component("auth")),
		Tokens:                tokens,
		Store:                 repo,
		StoreName:             cfg.Store.Driver,
		Log:                   logger.Component("http"),
		ProtectRoleAssignment: cfg.ProtectRoleAssignment,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.Store.Driver).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}

package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_KEY": testKey,
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %s", cfg.Port)
	}
	if cfg.JWT.DurationInDays != 30 {
		t.Fatalf("unexpected duration: %v", cfg.JWT.DurationInDays)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Fatalf("unexpected driver: %s", cfg.Store.Driver)
	}
	if cfg.Password.RequiredLength != 6 || !cfg.Password.RequireNonAlphanumeric {
		t.Fatalf("unexpected password defaults: %+v", cfg.Password)
	}
	if cfg.HTTP.ShutdownTimeout != 15*time.Second {
		t.Fatalf("unexpected shutdown timeout: %v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.ProtectRoleAssignment {
		t.Fatalf("role assignment should be open by default")
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_KEY":                      testKey,
		"JWT_ISSUER":                   "issuer",
		"JWT_AUDIENCE":                 "audience",
		"JWT_DURATION_IN_DAYS":         "1.5",
		"STORE_DRIVER":                 "memory",
		"AUTH_PROTECT_ROLE_ASSIGNMENT": "true",
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}
	if cfg.JWT.Issuer != "issuer" || cfg.JWT.Audience != "audience" {
		t.Fatalf("unexpected jwt config: %+v", cfg.JWT)
	}
	if cfg.JWT.DurationInDays != 1.5 {
		t.Fatalf("unexpected duration: %v", cfg.JWT.DurationInDays)
	}
	if !cfg.ProtectRoleAssignment {
		t.Fatalf("expected protected role assignment")
	}
}

func TestLoadWith_RejectsShortKey(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_KEY": "short",
	}))
	if err == nil || !strings.Contains(err.Error(), "JWT_KEY") {
		t.Fatalf("expected JWT_KEY error, got %v", err)
	}
}

func TestLoadWith_RejectsUnknownDriver(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_KEY":      testKey,
		"STORE_DRIVER": "oracle",
	}))
	if err == nil || !strings.Contains(err.Error(), "STORE_DRIVER") {
		t.Fatalf("expected STORE_DRIVER error, got %v", err)
	}
}

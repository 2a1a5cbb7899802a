package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Supported values of STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// minSigningKeyBytes is the HS256 key floor (256 bits).
const minSigningKeyBytes = 32

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// ProtectRoleAssignment requires an Admin bearer token on /api/auth/Addrole.
	ProtectRoleAssignment bool `env:"AUTH_PROTECT_ROLE_ASSIGNMENT, default=false"`

	JWT      JWTConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Password PasswordConfig
	HTTP     HTTPConfig
}

type JWTConfig struct {
	Key            string  `env:"JWT_KEY"`
	Issuer         string  `env:"JWT_ISSUER,           default=auth-service"`
	Audience       string  `env:"JWT_AUDIENCE,         default=auth-service-clients"`
	DurationInDays float64 `env:"JWT_DURATION_IN_DAYS, default=30"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=sqlite"`
	DSN    string `env:"STORE_DSN,    default=file:auth.db?cache=shared"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type PasswordConfig struct {
	BcryptCost             int  `env:"BCRYPT_COST,                       default=10"`
	RequiredLength         int  `env:"PASSWORD_REQUIRED_LENGTH,          default=6"`
	RequiredUniqueChars    int  `env:"PASSWORD_REQUIRED_UNIQUE_CHARS,    default=1"`
	RequireDigit           bool `env:"PASSWORD_REQUIRE_DIGIT,            default=true"`
	RequireLowercase       bool `env:"PASSWORD_REQUIRE_LOWERCASE,        default=true"`
	RequireUppercase       bool `env:"PASSWORD_REQUIRE_UPPERCASE,        default=true"`
	RequireNonAlphanumeric bool `env:"PASSWORD_REQUIRE_NON_ALPHANUMERIC, default=true"`
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,     default=10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,    default=10s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT, default=15s"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from the given lookuper and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWT.Key) < minSigningKeyBytes {
		errs = append(errs, fmt.Errorf("JWT_KEY must be at least %d bytes", minSigningKeyBytes))
	}
	if c.JWT.Issuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required"))
	}
	if c.JWT.Audience == "" {
		errs = append(errs, errors.New("JWT_AUDIENCE is required"))
	}
	if c.JWT.DurationInDays <= 0 {
		errs = append(errs, errors.New("JWT_DURATION_IN_DAYS must be positive"))
	}
	switch c.Store.Driver {
	case DriverMemory, DriverMongo:
	case DriverSQLite, DriverMySQL, DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("STORE_DSN is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Password.RequiredLength < 1 {
		errs = append(errs, errors.New("PASSWORD_REQUIRED_LENGTH must be at least 1"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs with developer defaults
// (pretty logs, swagger UI).
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

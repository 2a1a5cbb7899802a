package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	"github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/auth-service/internal/infrastructure/db/sqlstore"
	"github.com/99minutos/auth-service/internal/pkg/config"
)

// openStore builds the identity repository selected by STORE_DRIVER and
// prepares its schema or indexes. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.IdentityRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; identities are lost on restart")
		return memory.NewIdentityRepository(), func() {}, nil

	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "auth-service",
		})
		if err != nil {
			return nil, nil, err
		}
		repo := mongo.NewIdentityRepository(client, db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = mongo.Disconnect(context.Background(), client)
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return repo, func() {
			if err := mongo.Disconnect(context.Background(), client); err != nil {
				log.Error().Err(err).Msg("mongo disconnect failed")
			}
		}, nil

	case config.DriverSQLite, config.DriverMySQL, config.DriverPostgres:
		db, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, log)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlstore.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("sql schema: %w", err)
		}
		return sqlstore.NewIdentityRepository(db, cfg.Store.Driver), func() {
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("database close failed")
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

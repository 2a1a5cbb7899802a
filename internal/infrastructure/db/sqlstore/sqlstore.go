// Package sqlstore persists identities in a relational database through bun.
// SQLite, MySQL and PostgreSQL are supported; the schema is created on start.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Open connects to dsn with the driver and bun dialect matching driver.
// MySQL DSNs need parseTime=true.
func Open(ctx context.Context, driver, dsn string, log zerolog.Logger) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch driver {
	case DriverSQLite:
		sqldb, err = sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// A single connection serializes writers and keeps ":memory:" databases alive.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverMySQL:
		sqldb, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db = bun.NewDB(sqldb, mysqldialect.New())
	case DriverPostgres:
		sqldb, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	sqldb.SetConnMaxLifetime(30 * time.Minute)
	db.AddQueryHook(&queryLogger{log: log})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite foreign keys: %w", err)
		}
	}
	return db, nil
}

// EnsureSchema creates the identity tables and their unique indexes when
// missing. It is idempotent.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	tables := []struct {
		model       any
		foreignKeys []string
	}{
		{model: (*userModel)(nil)},
		{model: (*roleModel)(nil)},
		{
			model: (*userRoleModel)(nil),
			foreignKeys: []string{
				"(user_id) REFERENCES users (id) ON DELETE CASCADE",
				"(role_id) REFERENCES roles (id) ON DELETE CASCADE",
			},
		},
		{
			model:       (*userClaimModel)(nil),
			foreignKeys: []string{"(user_id) REFERENCES users (id) ON DELETE CASCADE"},
		},
	}

	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", t.model, err)
		}
	}

	// InnoDB indexes foreign key columns on its own and has no IF NOT EXISTS for indexes.
	if db.Dialect().Name() == dialect.MySQL {
		return nil
	}
	_, err := db.NewCreateIndex().
		Model((*userClaimModel)(nil)).
		Index("idx_user_claims_user_id").
		Column("user_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// queryLogger writes every statement to the debug log.
type queryLogger struct {
	log zerolog.Logger
}

func (h *queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	e := h.log.Debug()
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		e = h.log.Warn().Err(event.Err)
	}
	e.Str("operation", event.Operation()).
		Dur("duration", time.Since(event.StartTime)).
		Str("query", event.Query).
		Msg("sql query")
}

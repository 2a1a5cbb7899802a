package sqlstore

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	mysqlDuplicateEntry = 1062
	pgUniqueViolation   = "23505"
)

// isUniqueViolation reports whether err is a unique or primary key conflict
// on any of the supported databases.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// Both SQLite drivers behind sqliteshim report conflicts with this text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

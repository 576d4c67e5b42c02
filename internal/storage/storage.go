// internal/storage/storage.go

// Package storage keeps loan policy documents, fixed due date schedules and
// circulation rules in postgres or sqlite.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite3"
)

// DB is a database handle paired with the SQL dialect of its driver.
type DB struct {
	*sqlx.DB
	Dialect goqu.DialectWrapper
}

// Open connects, checks the connection and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// every connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	out := &DB{DB: db, Dialect: dialect}
	if err := out.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return out, nil
}

// DialectFor maps a driver name to its goqu dialect.
func DialectFor(driver string) (goqu.DialectWrapper, error) {
	switch driver {
	case DriverPostgres, DriverPgx:
		return goqu.Dialect("postgres"), nil
	case DriverSQLite:
		return goqu.Dialect("sqlite3"), nil
	default:
		return goqu.DialectWrapper{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// IsPostgres reports whether the handle talks to postgres.
func (db *DB) IsPostgres() bool {
	return db.DriverName() != DriverSQLite
}

// Migrate creates the tables used by the service.
func (db *DB) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if db.IsPostgres() {
		schema = postgresSchema
	}
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique or primary key violation
// from any of the supported drivers.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS loan_policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		document JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fixed_due_date_schedules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		document JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS circulation_rules (
		id TEXT PRIMARY KEY,
		patron_group_id TEXT NOT NULL DEFAULT '',
		material_type_id TEXT NOT NULL DEFAULT '',
		loan_type_id TEXT NOT NULL DEFAULT '',
		location_id TEXT NOT NULL DEFAULT '',
		loan_policy_id TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		aggregate_id UUID NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_data JSONB NOT NULL,
		metadata JSONB,
		version INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (aggregate_id, version)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS loan_policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		document TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fixed_due_date_schedules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		document TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS circulation_rules (
		id TEXT PRIMARY KEY,
		patron_group_id TEXT NOT NULL DEFAULT '',
		material_type_id TEXT NOT NULL DEFAULT '',
		loan_type_id TEXT NOT NULL DEFAULT '',
		location_id TEXT NOT NULL DEFAULT '',
		loan_policy_id TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		aggregate_id TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_data TEXT NOT NULL,
		metadata TEXT,
		version INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (aggregate_id, version)
	)`,
}

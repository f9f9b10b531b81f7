package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"

	defaultDSN = "servicecheck.db"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrOpenDatabase      = errors.New("failed to open database")
	ErrInitSchema        = errors.New("failed to initialize database schema")
)

// DB couples a connection pool with the dialect its queries must be written in.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Connect opens the database described by opts and, when asked, creates the schema.
func Connect(opts ...Option) (*DB, error) {
	o := &dbOptions{
		driver:       DriverSQLite,
		dsn:          defaultDSN,
		ensureSchema: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.inMemory {
		o.driver = DriverSQLite
		o.dsn = ":memory:"
	}

	if o.driver != DriverSQLite && o.driver != DriverPgx {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, o.driver)
	}

	sqlDB, err := sql.Open(o.driver, sqliteDSN(o))
	if err != nil {
		return nil, errors.Join(ErrOpenDatabase, err)
	}

	maxOpen, lifetime := o.poolLimits()
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(lifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Join(ErrOpenDatabase, err)
	}

	conn := &DB{DB: sqlDB, Dialect: DialectFor(o.driver)}

	if o.ensureSchema {
		if err := initDB(conn); err != nil {
			_ = sqlDB.Close()
			return nil, errors.Join(ErrInitSchema, err)
		}
	}

	return conn, nil
}

func sqliteDSN(o *dbOptions) string {
	if o.driver != DriverSQLite || o.inMemory {
		return o.dsn
	}
	return "file:" + o.dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// initDB creates the tables (and indexes) if they do not exist.
func initDB(conn *DB) error {
	for _, stmt := range schemaFor(conn.Dialect) {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func schemaFor(d Dialect) []string {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	timeColumn := "DATETIME"
	if d == DialectPostgres {
		idColumn = "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
		timeColumn = "TIMESTAMPTZ"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS providers (
			id ` + idColumn + `,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			api_key TEXT NOT NULL,
			status INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS services (
			id ` + idColumn + `,
			name TEXT NOT NULL,
			api_provider_id BIGINT NULL,
			api_service_id TEXT NULL,
			min BIGINT NOT NULL DEFAULT 0,
			max BIGINT NOT NULL DEFAULT 0,
			status INTEGER NOT NULL DEFAULT 1,
			UNIQUE (api_provider_id, api_service_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_services_provider ON services (api_provider_id)`,
		`CREATE TABLE IF NOT EXISTS check_runs (
			id TEXT PRIMARY KEY,
			trigger_source TEXT NOT NULL,
			status TEXT NOT NULL,
			dry_run BOOLEAN NOT NULL DEFAULT FALSE,
			start_time ` + timeColumn + ` NOT NULL,
			end_time ` + timeColumn + ` NULL,
			providers_checked INTEGER NOT NULL DEFAULT 0,
			providers_failed TEXT NOT NULL DEFAULT '[]',
			services_deactivated TEXT NOT NULL DEFAULT '[]',
			error TEXT NOT NULL DEFAULT ''
		)`,
	}
}

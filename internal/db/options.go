package db

import "time"

type dbOptions struct {
	driver       string
	dsn          string
	inMemory     bool
	ensureSchema bool
	maxOpenConns int
	connLifetime time.Duration
}

// poolLimits returns the pool settings for the driver. SQLite serializes
// writers, so it always gets a single connection, which also keeps an
// in-memory database alive for the life of the pool.
func (o *dbOptions) poolLimits() (maxOpen int, lifetime time.Duration) {
	if o.driver == DriverSQLite {
		return 1, 0
	}
	return o.maxOpenConns, o.connLifetime
}

type Option func(*dbOptions)

func WithDriver(driver string) Option {
	return func(opts *dbOptions) {
		opts.driver = driver
	}
}

func WithDSN(dsn string) Option {
	return func(opts *dbOptions) {
		opts.dsn = dsn
	}
}

// WithInMemory opens a private in-memory SQLite database, used by tests.
func WithInMemory(state bool) Option {
	return func(opts *dbOptions) {
		opts.inMemory = state
	}
}

func WithEnsureSchema(state bool) Option {
	return func(opts *dbOptions) {
		opts.ensureSchema = state
	}
}

// WithPool bounds the Postgres pool. Zero values keep the database/sql defaults.
func WithPool(maxOpenConns int, connLifetime time.Duration) Option {
	return func(opts *dbOptions) {
		opts.maxOpenConns = maxOpenConns
		opts.connLifetime = connLifetime
	}
}

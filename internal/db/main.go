package db

import (
	"fmt"
	"servicecheck/internal/config"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	db    *DB
	once  sync.Once
	dbErr error
)

// GetDB returns the process-wide connection built from the database config.
func GetDB() (*DB, error) {
	once.Do(func() {
		cfg := config.GetConfig()
		if cfg == nil {
			dbErr = fmt.Errorf("failed to initialize database connection: config not loaded")
			return
		}

		db, dbErr = Connect(
			WithDriver(cfg.Database.Driver),
			WithDSN(cfg.Database.DSN),
			WithEnsureSchema(cfg.Database.EnsureSchema),
			WithPool(cfg.Database.MaxOpenConns, cfg.Database.ConnMaxLifetime),
		)
		if dbErr != nil {
			dbErr = fmt.Errorf("failed to initialize database connection: %w", dbErr)
			return
		}
		log.Info().
			Str("driver", cfg.Database.Driver).
			Str("dialect", db.Dialect.String()).
			Bool("ensure_schema", cfg.Database.EnsureSchema).
			Msg("Database connection initialized")
	})
	return db, dbErr
}

// DeferClose closes the process-wide connection if one was opened.
func DeferClose() {
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database connection")
		}
	}
}

package config

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	_ "github.com/lib/pq"
)

// LoadDatabase opens the cache index database and brings the schema up
// to date. Callers treat a failure here as a degraded-mode signal, not
// a fatal one.
func LoadDatabase(cfg DatabaseConfig) (*sql.DB, error) {

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the DB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach the DB: %w", err)
	}

	migrationsDir := "./sql/schema"
	if err := goose.Up(db, migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

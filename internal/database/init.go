package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fop-engine/internal/config"
)

// schema holds the tables the athlete repository reads and writes. Every
// statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id             UUID PRIMARY KEY,
		code           TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL DEFAULT '',
		gender         TEXT NOT NULL CHECK (gender IN ('M', 'F')),
		age_division   TEXT NOT NULL DEFAULT 'DEFAULT',
		minimum_weight DOUBLE PRECISION NOT NULL,
		maximum_weight DOUBLE PRECISION NOT NULL,
		world_record   INTEGER NOT NULL DEFAULT 0,
		active         BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id               UUID PRIMARY KEY,
		name             TEXT NOT NULL UNIQUE,
		description      TEXT NOT NULL DEFAULT '',
		platform         TEXT NOT NULL DEFAULT '',
		competition_time TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS athletes (
		id                         UUID PRIMARY KEY,
		lot_number                 INTEGER NOT NULL DEFAULT 0,
		start_number               INTEGER NOT NULL DEFAULT 0,
		first_name                 TEXT NOT NULL DEFAULT '',
		last_name                  TEXT NOT NULL,
		gender                     TEXT NOT NULL DEFAULT '',
		body_weight                DOUBLE PRECISION NOT NULL DEFAULT 0,
		year_of_birth              INTEGER NOT NULL DEFAULT 0,
		team                       TEXT NOT NULL DEFAULT '',
		exclude_from_team          BOOLEAN NOT NULL DEFAULT FALSE,
		entry_total                INTEGER NOT NULL DEFAULT 0,
		custom_score               DOUBLE PRECISION NOT NULL DEFAULT 0,
		category_code              TEXT REFERENCES categories (code),
		registration_category_code TEXT REFERENCES categories (code),
		group_name                 TEXT REFERENCES groups (name),
		attempts                   JSONB NOT NULL DEFAULT '[]',
		updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_athletes_group ON athletes (group_name)`,
}

// Initialize creates a database connection pool and, when configured,
// bootstraps the schema.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// EnsureSchema creates missing tables and indexes in one transaction.
func (db *DB) EnsureSchema(ctx context.Context) error {
	return db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

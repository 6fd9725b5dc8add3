package database

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		price BIGINT NOT NULL,
		stock INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS pending_orders (
		correlation_token TEXT PRIMARY KEY,
		content JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		order_number BIGINT NOT NULL UNIQUE,
		payment_id TEXT NOT NULL UNIQUE,
		content JSONB NOT NULL,
		total BIGINT NOT NULL,
		status TEXT NOT NULL,
		admitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// Single-row counter, bumped only inside the admission transaction.
	`CREATE TABLE IF NOT EXISTS order_sequence (
		id SMALLINT PRIMARY KEY CHECK (id = 1),
		last_assigned BIGINT NOT NULL
	)`,
}

// Migrate applies the schema. Statements are idempotent so this is safe to
// run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

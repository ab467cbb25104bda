package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      VARCHAR(30)  NOT NULL,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT         NOT NULL,
		role          VARCHAR(20)  NOT NULL DEFAULT 'viewer',
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_idx ON users (LOWER(username))`,
	`CREATE TABLE IF NOT EXISTS products (
		id         BIGSERIAL PRIMARY KEY,
		name       VARCHAR(255)   NOT NULL,
		category   VARCHAR(255)   NOT NULL,
		price      NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
		created_at TIMESTAMPTZ    NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ    NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		product_id BIGINT PRIMARY KEY REFERENCES products (id) ON DELETE CASCADE,
		quantity   INTEGER     NOT NULL CHECK (quantity >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id           BIGSERIAL PRIMARY KEY,
		user_id      UUID           NOT NULL,
		total_amount NUMERIC(12, 2) NOT NULL,
		created_at   TIMESTAMPTZ    NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		id             BIGSERIAL PRIMARY KEY,
		sale_id        BIGINT         NOT NULL REFERENCES sales (id) ON DELETE CASCADE,
		product_id     BIGINT         NOT NULL REFERENCES products (id),
		quantity_sold  INTEGER        NOT NULL CHECK (quantity_sold > 0),
		price_per_item NUMERIC(12, 2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sale_items_product_idx ON sale_items (product_id)`,
	`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category)`,
}

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

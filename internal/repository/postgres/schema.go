package postgres

import (
	"context"
	"fmt"
)

// uniqueViolation is the PostgreSQL error code for a duplicate key.
const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		credential   TEXT NOT NULL,
		debt_cents   BIGINT NOT NULL DEFAULT 0 CHECK (debt_cents >= 0),
		locked_cents BIGINT NOT NULL DEFAULT 0 CHECK (locked_cents >= 0),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS open_trips (
		id              TEXT PRIMARY KEY,
		account_id      TEXT NOT NULL UNIQUE REFERENCES accounts(id),
		start_time      TIMESTAMPTZ NOT NULL,
		passenger_count INT NOT NULL CHECK (passenger_count >= 1),
		rate            DOUBLE PRECISION NOT NULL,
		route_name      TEXT NOT NULL,
		locked_cents    BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS settlement_history (
		id                TEXT PRIMARY KEY,
		kind              TEXT NOT NULL,
		account_id        TEXT NOT NULL,
		trip_id           TEXT NOT NULL DEFAULT '',
		route_name        TEXT NOT NULL DEFAULT '',
		start_time        TIMESTAMPTZ,
		end_time          TIMESTAMPTZ,
		duration_seconds  BIGINT NOT NULL DEFAULT 0,
		passengers        INT NOT NULL DEFAULT 0,
		rate              DOUBLE PRECISION NOT NULL DEFAULT 0,
		raw_amount        DOUBLE PRECISION NOT NULL DEFAULT 0,
		charged_cents     BIGINT NOT NULL,
		total_due_cents   BIGINT NOT NULL,
		collected_cents   BIGINT NOT NULL,
		debt_before_cents BIGINT NOT NULL,
		debt_after_cents  BIGINT NOT NULL,
		transaction_ref   TEXT,
		status            TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS settlement_history_account_idx
		ON settlement_history (account_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS routes (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		rate_per_second DOUBLE PRECISION NOT NULL CHECK (rate_per_second > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS fare_settings (
		id               INT PRIMARY KEY CHECK (id = 1),
		rate_per_second  DOUBLE PRECISION NOT NULL,
		current_route_id TEXT
	)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

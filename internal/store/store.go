/**
 * @description
 * This package contains the persistence layer: repository interfaces over
 * PostgreSQL and their pgx-backed implementations. Handlers and services
 * depend only on the interfaces so tests can substitute in-memory fakes.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and connection pooling.
 */

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	account_number TEXT NOT NULL UNIQUE,
	phone TEXT NOT NULL DEFAULT '',
	national_id TEXT NOT NULL DEFAULT '',
	birthdate TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'client',
	status TEXT NOT NULL DEFAULT 'active',
	avatar_url TEXT NOT NULL DEFAULT '',
	balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	archived BOOLEAN NOT NULL DEFAULT FALSE,
	archived_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_accounts_archived ON accounts (archived);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	type TEXT NOT NULL,
	reference TEXT NOT NULL UNIQUE,
	account_number TEXT NOT NULL,
	target_account_id UUID,
	amount BIGINT NOT NULL CHECK (amount > 0),
	status TEXT NOT NULL DEFAULT 'success',
	cancel_reason TEXT NOT NULL DEFAULT '',
	cancelled_at TIMESTAMPTZ,
	cancelled_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transactions_account_number ON transactions (account_number);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions (created_at DESC);
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}

// uniqueViolation extracts a PostgreSQL unique-constraint violation from
// err, or returns nil when err is something else.
func uniqueViolation(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr
	}
	return nil
}

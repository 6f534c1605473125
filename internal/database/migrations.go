package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration is one versioned schema step. Steps are applied in order and
// recorded in schema_migrations so Migrate can run on every boot.
type Migration struct {
	Version string
	Name    string
	Up      string
}

// Migrations is the ordered schema of the credit ledger.
var Migrations = []Migration{
	{
		Version: "20251201000001",
		Name:    "create_users",
		Up: `
CREATE TABLE IF NOT EXISTS users (
    id         UUID PRIMARY KEY,
    email      VARCHAR(320) NOT NULL,
    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users (LOWER(email));
`,
	},
	{
		Version: "20251201000002",
		Name:    "create_user_credits",
		Up: `
CREATE TABLE IF NOT EXISTS user_credits (
    user_id    UUID PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
    balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	},
	{
		Version: "20251201000003",
		Name:    "create_billing_records",
		Up: `
CREATE TABLE IF NOT EXISTS billing_records (
    id             UUID PRIMARY KEY,
    user_id        UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    credits_added  BIGINT NOT NULL CHECK (credits_added > 0),
    amount_paid    NUMERIC(12, 2) NOT NULL DEFAULT 0,
    payment_method VARCHAR(64),
    transaction_id VARCHAR(255) UNIQUE,
    timestamp      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_billing_records_user_time ON billing_records (user_id, timestamp);
`,
	},
	{
		Version: "20251201000004",
		Name:    "create_action_logs",
		Up: `
CREATE TABLE IF NOT EXISTS action_logs (
    id              UUID PRIMARY KEY,
    user_id         UUID REFERENCES users (id) ON DELETE SET NULL,
    action_type     VARCHAR(128) NOT NULL,
    credits_charged BIGINT NOT NULL DEFAULT 0,
    status_code     INTEGER,
    timestamp       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_action_logs_user_time ON action_logs (user_id, timestamp);
`,
	},
}

// Migrate applies every migration that has not been recorded yet. Each step
// runs in its own transaction together with its bookkeeping row.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    VARCHAR(32) PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range Migrations {
		if err := applyMigration(ctx, db, m, logger); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration, logger *zap.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: %w", m.Version, err)
	}
	defer tx.Rollback()

	var applied bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version).Scan(&applied)
	if err != nil {
		return fmt.Errorf("migration %s: check applied: %w", m.Version, err)
	}
	if applied {
		return nil
	}

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("migration %s (%s): %w", m.Version, m.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return fmt.Errorf("migration %s: record: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %s: commit: %w", m.Version, err)
	}

	logger.Info("applied migration", zap.String("version", m.Version), zap.String("name", m.Name))
	return nil
}

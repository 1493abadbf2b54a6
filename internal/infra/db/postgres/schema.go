package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// EnsureSchema creates tables and indexes if they do not exist yet.
// Run once at startup, before any repository is used.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id  BIGINT PRIMARY KEY,
			username     VARCHAR(255),
			first_name   VARCHAR(255),
			last_name    VARCHAR(255),
			gift_received BOOLEAN DEFAULT FALSE,
			created_at   TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id           SERIAL PRIMARY KEY,
			telegram_id  BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			product_id   VARCHAR(50) NOT NULL,
			is_active    BOOLEAN DEFAULT FALSE,
			method       VARCHAR(50) NOT NULL,
			start_at     TIMESTAMPTZ NOT NULL,
			end_at       TIMESTAMPTZ NOT NULL,
			created_at   TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(telegram_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id           UUID PRIMARY KEY,
			invoice_id   VARCHAR(255) UNIQUE NOT NULL,
			telegram_id  BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			product_id   VARCHAR(50) NOT NULL,
			amount_rub   BIGINT NOT NULL,
			status       VARCHAR(50) DEFAULT 'pending',
			created_at   TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at   TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			paid_at      TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id           SERIAL PRIMARY KEY,
			telegram_id  BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			product_id   VARCHAR(50) NOT NULL,
			reminder_sent BOOLEAN DEFAULT FALSE,
			due_at       TIMESTAMPTZ NOT NULL,
			UNIQUE(telegram_id, product_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_active
			ON subscriptions(telegram_id, product_id, is_active) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_end_at
			ON subscriptions(end_at) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_telegram_id ON payments(telegram_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_pending
			ON reminders(due_at, reminder_sent) WHERE reminder_sent = FALSE`,
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

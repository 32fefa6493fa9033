package database

import (
	"context"
	"fmt"
)

// migrations are applied in order at startup. Each statement is idempotent so
// restarting the service against an already-migrated database is safe.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		provider_id TEXT UNIQUE,
		name TEXT,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`ALTER TABLE users ADD COLUMN IF NOT EXISTS telegram_chat_id BIGINT`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT,
		course TEXT,
		due_date TIMESTAMPTZ,
		priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_user_due ON tasks (user_id, due_date) WHERE NOT completed`,

	`CREATE TABLE IF NOT EXISTS exams (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		course TEXT NOT NULL,
		title TEXT NOT NULL,
		exam_date TIMESTAMPTZ NOT NULL,
		location TEXT,
		weight INTEGER CHECK (weight >= 0 AND weight <= 100),
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_exams_user_date ON exams (user_id, exam_date)`,

	`CREATE TABLE IF NOT EXISTS notes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT,
		content TEXT NOT NULL,
		tags TEXT[] NOT NULL DEFAULT '{}',
		pinned BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS pomodoro_sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		duration INTEGER NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		task_id UUID REFERENCES tasks(id) ON DELETE SET NULL,
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_user_started ON pomodoro_sessions (user_id, started_at)`,

	`CREATE TABLE IF NOT EXISTS notification_dismissals (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_key TEXT NOT NULL,
		dismissed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, item_key)
	)`,

	`CREATE TABLE IF NOT EXISTS oidc_config (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		provider TEXT NOT NULL UNIQUE,
		issuer TEXT NOT NULL,
		domain TEXT,
		client_id TEXT NOT NULL,
		client_secret TEXT,
		redirect_uri TEXT NOT NULL,
		jwks_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS cors_config (
		config_key TEXT PRIMARY KEY,
		allowed_origins TEXT NOT NULL,
		allow_credentials BOOLEAN NOT NULL DEFAULT TRUE,
		max_age INTEGER NOT NULL DEFAULT 86400,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS ratelimit_config (
		config_key TEXT PRIMARY KEY,
		rate TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// Timestamp maintenance: updated_at is refreshed server-side so clients
	// cannot skew it.
	`CREATE OR REPLACE FUNCTION set_updated_at() RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = now();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS tasks_set_updated_at ON tasks`,
	`CREATE TRIGGER tasks_set_updated_at BEFORE UPDATE ON tasks
		FOR EACH ROW EXECUTE FUNCTION set_updated_at()`,

	`DROP TRIGGER IF EXISTS exams_set_updated_at ON exams`,
	`CREATE TRIGGER exams_set_updated_at BEFORE UPDATE ON exams
		FOR EACH ROW EXECUTE FUNCTION set_updated_at()`,

	`DROP TRIGGER IF EXISTS notes_set_updated_at ON notes`,
	`CREATE TRIGGER notes_set_updated_at BEFORE UPDATE ON notes
		FOR EACH ROW EXECUTE FUNCTION set_updated_at()`,

	// New tasks append to the end of the user's list unless an explicit
	// position was supplied.
	`CREATE OR REPLACE FUNCTION set_task_position() RETURNS TRIGGER AS $$
	BEGIN
		IF NEW.position = 0 THEN
			SELECT COALESCE(MAX(position), 0) + 1 INTO NEW.position
			FROM tasks WHERE user_id = NEW.user_id;
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS tasks_set_position ON tasks`,
	`CREATE TRIGGER tasks_set_position BEFORE INSERT ON tasks
		FOR EACH ROW EXECUTE FUNCTION set_task_position()`,
}

// Migrate applies all schema migrations in order
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}

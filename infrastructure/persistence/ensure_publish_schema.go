package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsurePublishSchema creates the publishing tables on PostgreSQL if they are
// missing. Safe to call at every startup.
func EnsurePublishSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS connections (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NULL,
			scopes TEXT NOT NULL DEFAULT '',
			oauth1_token TEXT NULL,
			oauth1_token_secret TEXT NULL,
			external_id TEXT NOT NULL DEFAULT '',
			handle TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_connections_account_platform ON connections(account_id, platform)`,
		`CREATE TABLE IF NOT EXISTS scheduled_posts (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL,
			content_id TEXT NOT NULL,
			post_index INT NOT NULL,
			platforms TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL DEFAULT '{}',
			due_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT NULL,
			job_handle TEXT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_scheduled_posts_key ON scheduled_posts(account_id, content_id, post_index)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_scheduled_posts_pending ON scheduled_posts(account_id, content_id, post_index) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS ix_scheduled_posts_due ON scheduled_posts(status, due_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring publish schema failed: %w", err)
		}
	}
	return nil
}

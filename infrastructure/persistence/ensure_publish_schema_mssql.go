package persistence

import (
	"database/sql"
	"fmt"
)

// EnsurePublishSchemaMSSQL creates the publishing tables for SQL Server if
// they do not exist.
func EnsurePublishSchemaMSSQL(db *sql.DB) error {
	connectionsDDL := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.connections') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[connections] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        account_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(64) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL DEFAULT '',
        refresh_token NVARCHAR(MAX) NOT NULL DEFAULT '',
        expires_at DATETIME2 NULL,
        scopes NVARCHAR(MAX) NOT NULL DEFAULT '',
        oauth1_token NVARCHAR(MAX) NULL,
        oauth1_token_secret NVARCHAR(MAX) NULL,
        external_id NVARCHAR(128) NOT NULL DEFAULT '',
        handle NVARCHAR(255) NOT NULL DEFAULT '',
        active BIT NOT NULL DEFAULT 1,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_connections_account_platform ON dbo.[connections](account_id, platform);
END`
	if _, err := db.Exec(connectionsDDL); err != nil {
		return fmt.Errorf("create connections (mssql): %w", err)
	}

	scheduledDDL := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.scheduled_posts') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[scheduled_posts] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        account_id NVARCHAR(128) NOT NULL,
        content_id NVARCHAR(128) NOT NULL,
        post_index INT NOT NULL,
        platforms NVARCHAR(255) NOT NULL DEFAULT '',
        payload NVARCHAR(MAX) NOT NULL DEFAULT '{}',
        due_at DATETIME2 NOT NULL,
        status NVARCHAR(16) NOT NULL DEFAULT 'pending',
        error_message NVARCHAR(MAX) NULL,
        job_handle NVARCHAR(255) NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE INDEX IX_scheduled_posts_key ON dbo.[scheduled_posts](account_id, content_id, post_index);
    CREATE UNIQUE INDEX UX_scheduled_posts_pending ON dbo.[scheduled_posts](account_id, content_id, post_index) WHERE status = 'pending';
    CREATE INDEX IX_scheduled_posts_due ON dbo.[scheduled_posts](status, due_at);
END`
	if _, err := db.Exec(scheduledDDL); err != nil {
		return fmt.Errorf("create scheduled_posts (mssql): %w", err)
	}
	return nil
}

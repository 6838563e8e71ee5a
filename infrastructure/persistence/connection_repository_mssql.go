package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

type ConnectionRepositoryMSSQL struct{ db *sql.DB }

func NewConnectionRepositoryMSSQL(db *sql.DB) *ConnectionRepositoryMSSQL {
	return &ConnectionRepositoryMSSQL{db: db}
}

func (r *ConnectionRepositoryMSSQL) GetConnection(ctx context.Context, accountID, platform string) (*model.Connection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM dbo.[connections] WHERE account_id=@p1 AND platform=@p2`,
		accountID, platform)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrConnectionNotFound
	}
	return conn, err
}

func (r *ConnectionRepositoryMSSQL) UpsertOAuth2(ctx context.Context, conn *model.Connection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	var exp sql.NullTime
	if conn.ExpiresAt != nil {
		exp.Valid = true
		exp.Time = *conn.ExpiresAt
	}
	// MERGE upsert by (account_id, platform); OAuth1 columns untouched.
	q := `MERGE dbo.[connections] AS target
USING (VALUES (@p1, @p2)) AS src(account_id, platform)
ON target.account_id = src.account_id AND target.platform = src.platform
WHEN MATCHED THEN UPDATE SET
    access_token=@p3,
    refresh_token=CASE WHEN @p4 <> '' THEN @p4 ELSE target.refresh_token END,
    expires_at=@p5,
    scopes=@p6,
    external_id=@p7,
    handle=@p8,
    active=1,
    updated_at=@p10
WHEN NOT MATCHED THEN
    INSERT (account_id, platform, access_token, refresh_token, expires_at, scopes, external_id, handle, active, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,1,@p9,@p10);`
	_, err := r.db.ExecContext(ctx, q,
		conn.AccountID, conn.Platform, conn.AccessToken, conn.RefreshToken, exp,
		conn.Scopes, conn.ExternalID, conn.Handle, conn.CreatedAt, conn.UpdatedAt)
	return err
}

func (r *ConnectionRepositoryMSSQL) UpdateOAuth1(ctx context.Context, accountID, platform, token, tokenSecret, handle string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[connections] SET oauth1_token=@p1, oauth1_token_secret=@p2,
			handle=CASE WHEN handle='' THEN @p3 ELSE handle END,
			active=1, updated_at=@p4
		 WHERE account_id=@p5 AND platform=@p6`,
		token, tokenSecret, handle, time.Now().UTC(), accountID, platform)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrConnectionNotFound
	}
	return nil
}

func (r *ConnectionRepositoryMSSQL) UpdateOAuth2Tokens(ctx context.Context, accountID, platform, accessToken, refreshToken string, expiresAt *time.Time) error {
	var exp sql.NullTime
	if expiresAt != nil {
		exp.Valid = true
		exp.Time = *expiresAt
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[connections] SET access_token=@p1,
			refresh_token=CASE WHEN @p2 <> '' THEN @p2 ELSE refresh_token END,
			expires_at=@p3, updated_at=@p4
		 WHERE account_id=@p5 AND platform=@p6`,
		accessToken, refreshToken, exp, time.Now().UTC(), accountID, platform)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrConnectionNotFound
	}
	return nil
}

func (r *ConnectionRepositoryMSSQL) Invalidate(ctx context.Context, accountID, platform string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[connections] SET active=0, access_token='', refresh_token='', expires_at=NULL, updated_at=@p1
		 WHERE account_id=@p2 AND platform=@p3`,
		time.Now().UTC(), accountID, platform)
	return err
}

func (r *ConnectionRepositoryMSSQL) ListConnections(ctx context.Context, accountID string) ([]*model.Connection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM dbo.[connections] WHERE account_id=@p1 ORDER BY platform`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, conn)
	}
	return list, rows.Err()
}

var _ repository.IConnection = (*ConnectionRepositoryMSSQL)(nil)

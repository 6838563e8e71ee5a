package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

const connectionColumns = `id, account_id, platform, access_token, refresh_token, expires_at, scopes, oauth1_token, oauth1_token_secret, external_id, handle, active, created_at, updated_at`

type ConnectionRepository struct{ db *sql.DB }

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) GetConnection(ctx context.Context, accountID, platform string) (*model.Connection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE account_id=$1 AND platform=$2`,
		accountID, platform)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrConnectionNotFound
	}
	return conn, err
}

// UpsertOAuth2 writes the OAuth2 leg. The OAuth1 columns are deliberately
// absent from the update set so an existing OAuth1 grant survives reconnects.
func (r *ConnectionRepository) UpsertOAuth2(ctx context.Context, conn *model.Connection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	q := `INSERT INTO connections (account_id, platform, access_token, refresh_token, expires_at, scopes, external_id, handle, active, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE,$9,$10)
		  ON CONFLICT (account_id, platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=CASE WHEN EXCLUDED.refresh_token <> '' THEN EXCLUDED.refresh_token ELSE connections.refresh_token END,
			expires_at=EXCLUDED.expires_at,
			scopes=EXCLUDED.scopes,
			external_id=EXCLUDED.external_id,
			handle=EXCLUDED.handle,
			active=TRUE,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q,
		conn.AccountID, conn.Platform, conn.AccessToken, conn.RefreshToken, conn.ExpiresAt,
		conn.Scopes, conn.ExternalID, conn.Handle, conn.CreatedAt, conn.UpdatedAt)
	return err
}

// UpdateOAuth1 attaches the OAuth1 token pair to an existing row. The handle
// is only overwritten when the row has none yet.
func (r *ConnectionRepository) UpdateOAuth1(ctx context.Context, accountID, platform, token, tokenSecret, handle string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE connections SET oauth1_token=$1, oauth1_token_secret=$2,
			handle=CASE WHEN handle='' THEN $3 ELSE handle END,
			active=TRUE, updated_at=$4
		 WHERE account_id=$5 AND platform=$6`,
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

func (r *ConnectionRepository) UpdateOAuth2Tokens(ctx context.Context, accountID, platform, accessToken, refreshToken string, expiresAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE connections SET access_token=$1,
			refresh_token=CASE WHEN $2 <> '' THEN $2 ELSE refresh_token END,
			expires_at=$3, updated_at=$4
		 WHERE account_id=$5 AND platform=$6`,
		accessToken, refreshToken, expiresAt, time.Now().UTC(), accountID, platform)
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

// Invalidate keeps the row so reconnection history and the OAuth1 leg remain
// inspectable, but clears the dead tokens.
func (r *ConnectionRepository) Invalidate(ctx context.Context, accountID, platform string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE connections SET active=FALSE, access_token='', refresh_token='', expires_at=NULL, updated_at=$1
		 WHERE account_id=$2 AND platform=$3`,
		time.Now().UTC(), accountID, platform)
	return err
}

func (r *ConnectionRepository) ListConnections(ctx context.Context, accountID string) ([]*model.Connection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE account_id=$1 ORDER BY platform`,
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (*model.Connection, error) {
	conn := &model.Connection{}
	var exp sql.NullTime
	var oauth1Token, oauth1Secret sql.NullString
	if err := row.Scan(&conn.ID, &conn.AccountID, &conn.Platform, &conn.AccessToken, &conn.RefreshToken,
		&exp, &conn.Scopes, &oauth1Token, &oauth1Secret, &conn.ExternalID, &conn.Handle,
		&conn.Active, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
		return nil, err
	}
	if exp.Valid {
		conn.ExpiresAt = &exp.Time
	}
	if oauth1Token.Valid && oauth1Token.String != "" {
		v := oauth1Token.String
		conn.OAuth1Token = &v
	}
	if oauth1Secret.Valid && oauth1Secret.String != "" {
		v := oauth1Secret.String
		conn.OAuth1TokenSecret = &v
	}
	return conn, nil
}

var _ repository.IConnection = (*ConnectionRepository)(nil)

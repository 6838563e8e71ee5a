package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IConnection persists platform credentials per (account, platform).
// Every write is a full read-modify-write of the single current row; callers
// re-fetch before use because a concurrent refresh can rotate tokens.
type IConnection interface {
	GetConnection(ctx context.Context, accountID, platform string) (*model.Connection, error)
	// UpsertOAuth2 creates the row on first grant or replaces the OAuth2
	// fields in place, leaving any OAuth1 grant untouched.
	UpsertOAuth2(ctx context.Context, conn *model.Connection) error
	// UpdateOAuth1 writes the OAuth1 token pair onto an existing row. The
	// OAuth1 leg is additive and never account-creating.
	UpdateOAuth1(ctx context.Context, accountID, platform, token, tokenSecret, handle string) error
	// UpdateOAuth2Tokens overwrites access token and expiry after a refresh.
	// The refresh token is overwritten only when non-empty (rotation).
	UpdateOAuth2Tokens(ctx context.Context, accountID, platform, accessToken, refreshToken string, expiresAt *time.Time) error
	// Invalidate marks the connection inactive and clears the access token,
	// forcing re-authorization. The row is kept, not deleted.
	Invalidate(ctx context.Context, accountID, platform string) error
	ListConnections(ctx context.Context, accountID string) ([]*model.Connection, error)
}

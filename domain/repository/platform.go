package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IPlatform is the capability surface a platform client exposes to the
// publish and schedule usecases. Twitter implements all of it; facebook and
// youtube implement the subset their APIs support.
type IPlatform interface {
	Name() string

	// VerifyCredentials is the cheap identity probe run before write
	// actions. A 401 here is authoritative over the stored expiry.
	VerifyCredentials(ctx context.Context, conn *model.Connection) (externalID, handle string, err error)

	// UploadImage turns freshly fetchable image bytes into a platform media
	// handle via the single-shot path.
	UploadImage(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error)

	// UploadVideo drives the chunked INIT/APPEND/FINALIZE/STATUS machine.
	UploadVideo(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error)

	// CreatePost issues one post. mediaID and replyToID are optional and
	// independently composable.
	CreatePost(ctx context.Context, conn *model.Connection, text, mediaID, replyToID string) (string, error)

	// CreateThread chains posts with reply linkage in strict order, halting
	// at the first failure without rolling back earlier posts.
	CreateThread(ctx context.Context, conn *model.Connection, texts []string, mediaID string) *model.ThreadResult
}

// IOAuth2Flow is the PKCE authorization-code + refresh surface of a platform.
type IOAuth2Flow interface {
	// AuthorizeURL builds the platform authorize URL for a generated
	// verifier/state pair.
	AuthorizeURL(state, codeVerifier, redirectURI string, scopes []string) string
	// Exchange swaps code+verifier for tokens and returns the authenticated
	// identity behind them.
	Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*OAuth2Grant, error)
	// Refresh renews the access token. A platform 400/401 surfaces as
	// model.ErrRequiresReauthorization.
	Refresh(ctx context.Context, refreshToken string) (*OAuth2Grant, error)
}

// IOAuth1Flow is the three-legged OAuth1.0a surface of a platform.
type IOAuth1Flow interface {
	// RequestToken performs the signed token-less first leg and returns the
	// temporary token pair plus the user authorization URL.
	RequestToken(ctx context.Context, callbackURL string) (token, tokenSecret, authorizeURL string, err error)
	// AccessToken exchanges the authorized request token for a permanent
	// token pair and the platform handle.
	AccessToken(ctx context.Context, requestToken, requestTokenSecret, verifier string) (token, tokenSecret, handle string, err error)
}

// OAuth2Grant is the outcome of an exchange or refresh.
type OAuth2Grant struct {
	AccessToken  string
	RefreshToken string // empty when the platform did not rotate it
	ExpiresAt    *time.Time
	Scopes       string
	ExternalID   string
	Handle       string
}

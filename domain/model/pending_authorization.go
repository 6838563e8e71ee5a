package model

import "time"

// OAuth flow kinds tracked by a PendingAuthorization.
const (
	FlowOAuth1 = "oauth1"
	FlowOAuth2 = "oauth2"
)

// PendingAuthorizationTTL bounds how long an unconsumed authorization may
// sit between the redirect out and the callback in.
const PendingAuthorizationTTL = 15 * time.Minute

// PendingAuthorization is the ephemeral state of one in-flight authorization,
// keyed by the opaque state token handed to the platform. Single-use: it is
// consumed atomically on the callback and evicted by TTL otherwise.
type PendingAuthorization struct {
	State              string    `json:"state"`
	AccountID          string    `json:"account_id"`
	Platform           string    `json:"platform"`
	Flow               string    `json:"flow"` // oauth1 | oauth2
	CodeVerifier       string    `json:"code_verifier,omitempty"`        // oauth2 PKCE
	RequestToken       string    `json:"request_token,omitempty"`        // oauth1 leg
	RequestTokenSecret string    `json:"request_token_secret,omitempty"` // oauth1 leg
	RedirectURI        string    `json:"redirect_uri"`
	Scopes             string    `json:"scopes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Expired reports whether the authorization is past its window. Redis TTL
// already evicts stale entries; this guards a read that races eviction.
func (p *PendingAuthorization) Expired(now time.Time) bool {
	return now.Sub(p.CreatedAt) > PendingAuthorizationTTL
}

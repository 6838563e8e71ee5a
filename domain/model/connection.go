package model

import (
	"strings"
	"time"
)

// Platform identifiers supported by the publishing pipeline.
const (
	PlatformTwitter  = "twitter"
	PlatformFacebook = "facebook"
	PlatformYouTube  = "youtube"
)

// Capability names gate whether a stored credential set suffices for an action.
type Capability string

const (
	CapabilityRead        Capability = "read"
	CapabilityPostText    Capability = "post_text"
	CapabilityMediaWrite  Capability = "media_write"
	CapabilityVideoUpload Capability = "video_upload"
)

// Validation verdicts returned by the token validator.
type ValidationVerdict string

const (
	VerdictValid            ValidationVerdict = "valid"
	VerdictExpiredRefreshed ValidationVerdict = "expired_refreshed"
	VerdictRequiresReauth   ValidationVerdict = "requires_reauth"
	VerdictMissingScope     ValidationVerdict = "missing_scope"
)

// Connection stores platform credentials for one account on one platform.
// The OAuth2 and OAuth1 legs are granted independently: either side may be
// present without the other, and video upload on twitter needs both at once.
type Connection struct {
	ID                int64      `json:"id"`
	AccountID         string     `json:"account_id"`
	Platform          string     `json:"platform"`
	AccessToken       string     `json:"access_token"`
	RefreshToken      string     `json:"refresh_token"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	Scopes            string     `json:"scopes"` // space-separated granted scopes
	OAuth1Token       *string    `json:"oauth1_token,omitempty"`
	OAuth1TokenSecret *string    `json:"oauth1_token_secret,omitempty"`
	ExternalID        string     `json:"external_id"`
	Handle            string     `json:"handle"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// HasOAuth2 reports whether the OAuth2 leg has been granted.
func (c *Connection) HasOAuth2() bool {
	return c != nil && c.AccessToken != ""
}

// HasOAuth1 reports whether the OAuth1 leg has been granted.
func (c *Connection) HasOAuth1() bool {
	return c != nil && c.OAuth1Token != nil && *c.OAuth1Token != "" &&
		c.OAuth1TokenSecret != nil && *c.OAuth1TokenSecret != ""
}

// OAuth2Expired reports whether the access token is past its stored expiry.
// Connections without an expiry never expire locally; the remote liveness
// probe remains authoritative either way.
func (c *Connection) OAuth2Expired(now time.Time) bool {
	if !c.HasOAuth2() || c.ExpiresAt == nil {
		return false
	}
	return !now.Before(*c.ExpiresAt)
}

// Refreshable reports whether a silent OAuth2 refresh can be attempted.
func (c *Connection) Refreshable() bool {
	return c.HasOAuth2() && c.RefreshToken != ""
}

// HasScope reports whether the granted scope set contains the given scope.
func (c *Connection) HasScope(scope string) bool {
	if c == nil || c.Scopes == "" {
		return false
	}
	for _, s := range strings.Fields(c.Scopes) {
		if s == scope {
			return true
		}
	}
	return false
}

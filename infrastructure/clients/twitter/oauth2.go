package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"golang.org/x/oauth2"
)

// OAuth2Config is the confidential client pair for the PKCE flow.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
}

// DefaultScopes is the scope set requested on connect. offline.access is
// required for a refresh token; media scopes ride on the OAuth1 leg.
var DefaultScopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}

func (c *Client) oauth2Endpoint(redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.oauth2Cfg.ClientID,
		ClientSecret: c.oauth2Cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.authorizeURL,
			TokenURL:  c.apiBaseURL + "/2/oauth2/token",
			AuthStyle: oauth2.AuthStyleInHeader, // HTTP Basic client credentials
		},
	}
}

// oauth2Context routes x/oauth2's internal HTTP through the client's own
// http.Client so timeouts and test servers apply.
func (c *Client) oauth2Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// AuthorizeURL builds the PKCE authorize URL for a generated verifier/state
// pair. The verifier itself lives in the pending-authorization store until
// the callback.
func (c *Client) AuthorizeURL(state, codeVerifier, redirectURI string, scopes []string) string {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	cfg := c.oauth2Endpoint(redirectURI, scopes)
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(codeVerifier))
}

// Exchange swaps code+verifier for tokens, then resolves the identity behind
// them so the connection row carries a stable external id and handle.
func (c *Client) Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*repository.OAuth2Grant, error) {
	cfg := c.oauth2Endpoint(redirectURI, DefaultScopes)
	tok, err := cfg.Exchange(c.oauth2Context(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, exchangeError(err)
	}
	grant := grantFromToken(tok, "")
	externalID, handle, err := c.VerifyCredentials(ctx, &model.Connection{AccessToken: tok.AccessToken})
	if err != nil {
		return nil, fmt.Errorf("fetch identity after exchange: %w", err)
	}
	grant.ExternalID = externalID
	grant.Handle = handle
	return grant, nil
}

// Refresh renews the access token. The refresh token in the grant is empty
// unless the platform rotated it, so callers never null-out an unrotated
// token. A 400/401 from the token endpoint means the grant is dead: surface
// ErrRequiresReauthorization and do not retry.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*repository.OAuth2Grant, error) {
	cfg := c.oauth2Endpoint("", DefaultScopes)
	src := cfg.TokenSource(c.oauth2Context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil &&
			(rErr.Response.StatusCode == http.StatusBadRequest || rErr.Response.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("refresh rejected (%d): %w", rErr.Response.StatusCode, model.ErrRequiresReauthorization)
		}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return grantFromToken(tok, refreshToken), nil
}

func grantFromToken(tok *oauth2.Token, previousRefresh string) *repository.OAuth2Grant {
	grant := &repository.OAuth2Grant{AccessToken: tok.AccessToken}
	if tok.RefreshToken != "" && tok.RefreshToken != previousRefresh {
		grant.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		grant.ExpiresAt = &expiry
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		grant.Scopes = scope
	}
	return grant
}

func exchangeError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		status := 0
		if rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		return &model.TokenExchangeError{Platform: model.PlatformTwitter, StatusCode: status, Body: string(rErr.Body)}
	}
	return fmt.Errorf("token exchange failed: %w", err)
}

package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
)

const graphVersion = "v19.0"

// Scopes requested on connect. Page tokens obtained through these are
// long-lived; facebook has no refresh grant, so an expired page token always
// means re-authorization.
const grantedScopes = "pages_show_list pages_read_engagement pages_manage_posts public_profile"

// Client posts to a facebook page on behalf of a connected account. The
// connection's access token is the page token and ExternalID the page id.
type Client struct {
	cfg        configuration.OAuthClient
	httpClient *http.Client
	graphBase  string
	wwwBase    string
}

func NewFacebookClient(cfg configuration.OAuthClient) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		graphBase:  "https://graph.facebook.com",
		wwwBase:    "https://www.facebook.com",
	}
}

func (c *Client) Name() string { return model.PlatformFacebook }

// --- OAuth2 (no PKCE: facebook uses the plain code flow plus a long-lived
// token exchange; the verifier argument is accepted and ignored) -----------

func (c *Client) AuthorizeURL(state, codeVerifier, redirectURI string, scopes []string) string {
	u := url.URL{Scheme: "https", Host: strings.TrimPrefix(c.wwwBase, "https://"), Path: "/" + graphVersion + "/dialog/oauth"}
	q := u.Query()
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	// Comma-separated raw list; facebook rejects encoded commas.
	q.Set("scope", strings.ReplaceAll(grantedScopes, " ", ","))
	u.RawQuery = q.Encode()
	return u.String()
}

// Exchange swaps the code for a short-lived user token, upgrades it to a
// long-lived one, then selects the first managed page and returns its page
// token as the connection credential.
func (c *Client) Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*repository.OAuth2Grant, error) {
	shortTok, _, err := c.tokenCall(ctx, fmt.Sprintf("%s/%s/oauth/access_token?client_id=%s&redirect_uri=%s&client_secret=%s&code=%s",
		c.graphBase, graphVersion,
		url.QueryEscape(c.cfg.ClientID), url.QueryEscape(redirectURI), url.QueryEscape(c.cfg.ClientSecret), url.QueryEscape(code)))
	if err != nil {
		return nil, err
	}
	longTok, expiresIn, err := c.tokenCall(ctx, fmt.Sprintf("%s/%s/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		c.graphBase, graphVersion,
		url.QueryEscape(c.cfg.ClientID), url.QueryEscape(c.cfg.ClientSecret), url.QueryEscape(shortTok)))
	if err != nil {
		return nil, err
	}

	pageID, pageName, pageToken, err := c.firstPage(ctx, longTok)
	if err != nil {
		return nil, err
	}
	grant := &repository.OAuth2Grant{
		AccessToken: pageToken,
		Scopes:      grantedScopes,
		ExternalID:  pageID,
		Handle:      pageName,
	}
	if expiresIn > 0 {
		expiry := time.Now().Add(time.Duration(expiresIn) * time.Second).UTC()
		grant.ExpiresAt = &expiry
	}
	return grant, nil
}

// Refresh is unsupported: page tokens are long-lived and facebook offers no
// refresh grant, so expiry always demands a reconnect.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*repository.OAuth2Grant, error) {
	return nil, model.ErrRequiresReauthorization
}

func (c *Client) tokenCall(ctx context.Context, endpoint string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("facebook token request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, &model.TokenExchangeError{Platform: model.PlatformFacebook, StatusCode: resp.StatusCode, Body: string(body)}
	}
	var data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", 0, fmt.Errorf("parse facebook token response: %w", err)
	}
	return data.AccessToken, data.ExpiresIn, nil
}

func (c *Client) firstPage(ctx context.Context, userToken string) (id, name, token string, err error) {
	endpoint := fmt.Sprintf("%s/%s/me/accounts?access_token=%s", c.graphBase, graphVersion, url.QueryEscape(userToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", "", fmt.Errorf("facebook pages request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", "", &model.TokenExchangeError{Platform: model.PlatformFacebook, StatusCode: resp.StatusCode, Body: string(body)}
	}
	var pages struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &pages); err != nil {
		return "", "", "", fmt.Errorf("parse facebook pages response: %w", err)
	}
	if len(pages.Data) == 0 {
		return "", "", "", fmt.Errorf("no facebook pages available for this account")
	}
	// Auto-select the first page; page selection UI is the dashboard's job.
	p := pages.Data[0]
	return p.ID, p.Name, p.AccessToken, nil
}

// --- Publishing ------------------------------------------------------------

// VerifyCredentials probes the page token.
func (c *Client) VerifyCredentials(ctx context.Context, conn *model.Connection) (string, string, error) {
	endpoint := fmt.Sprintf("%s/%s/me?fields=id,name&access_token=%s", c.graphBase, graphVersion, url.QueryEscape(conn.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("facebook identity probe failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return "", "", model.ErrRequiresReauthorization
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("facebook identity probe returned %d: %s", resp.StatusCode, string(body))
	}
	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return "", "", err
	}
	return me.ID, me.Name, nil
}

// UploadImage stages an unpublished page photo and returns its id for
// attachment to a feed post.
func (c *Client) UploadImage(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("source", "photo")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	_ = writer.WriteField("published", "false")
	_ = writer.WriteField("access_token", conn.AccessToken)
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/%s/photos", c.graphBase, graphVersion, url.PathEscape(conn.ExternalID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("facebook photo upload failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &model.MediaUploadError{Phase: "INIT", StatusCode: resp.StatusCode, Body: string(body)}
	}
	var photo struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &photo); err != nil {
		return "", err
	}
	return photo.ID, nil
}

// UploadVideo is not part of the page publishing surface this service uses.
func (c *Client) UploadVideo(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error) {
	return "", fmt.Errorf("facebook: video upload not supported")
}

// CreatePost publishes to the page feed. replyToID chains a comment under an
// earlier post, which is how threads map onto facebook.
func (c *Client) CreatePost(ctx context.Context, conn *model.Connection, text, mediaID, replyToID string) (string, error) {
	form := url.Values{}
	form.Set("access_token", conn.AccessToken)

	var endpoint string
	if replyToID != "" {
		endpoint = fmt.Sprintf("%s/%s/%s/comments", c.graphBase, graphVersion, url.PathEscape(replyToID))
		form.Set("message", text)
	} else {
		endpoint = fmt.Sprintf("%s/%s/%s/feed", c.graphBase, graphVersion, url.PathEscape(conn.ExternalID))
		form.Set("message", text)
		if mediaID != "" {
			form.Set("attached_media[0]", fmt.Sprintf(`{"media_fbid":%q}`, mediaID))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("facebook post request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &model.PublishError{Platform: model.PlatformFacebook, StatusCode: resp.StatusCode, Body: string(body)}
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateThread posts the first text to the feed and the rest as chained
// comments, stopping at the first failure.
func (c *Client) CreateThread(ctx context.Context, conn *model.Connection, texts []string, mediaID string) *model.ThreadResult {
	result := &model.ThreadResult{FailedIndex: -1}
	parent := ""
	for i, text := range texts {
		media := ""
		if i == 0 {
			media = mediaID
		}
		id, err := c.CreatePost(ctx, conn, text, media, parent)
		if err != nil {
			result.FailedIndex = i
			result.Err = fmt.Errorf("thread post %d: %w", i, err)
			return result
		}
		result.PostIDs = append(result.PostIDs, id)
		if i == 0 {
			parent = id // comments all hang off the root post
		}
	}
	return result
}

var (
	_ repository.IPlatform   = (*Client)(nil)
	_ repository.IOAuth2Flow = (*Client)(nil)
)

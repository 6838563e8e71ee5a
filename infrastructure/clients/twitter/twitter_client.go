package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
)

// Client drives the twitter API: OAuth1.0a signing for the media upload
// endpoints, OAuth2 bearer tokens for the v2 post endpoints. The platform
// mandates OAuth1 for upload and OAuth2 for post creation, which is why a
// video post needs both credential legs at once.
type Client struct {
	signer       *Signer
	oauth2Cfg    OAuth2Config
	httpClient   *http.Client
	apiBaseURL   string
	uploadBase   string
	authorizeURL string

	pollInterval    time.Duration
	maxPollAttempts int
}

// NewTwitterClient builds a client from the configured credential pairs.
func NewTwitterClient(cfg configuration.TwitterClient) *Client {
	return &Client{
		signer: NewSigner(cfg.ConsumerKey, cfg.ConsumerSecret),
		oauth2Cfg: OAuth2Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		},
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		apiBaseURL:      "https://api.twitter.com",
		uploadBase:      "https://upload.twitter.com",
		authorizeURL:    "https://twitter.com/i/oauth2/authorize",
		pollInterval:    5 * time.Second,
		maxPollAttempts: 60,
	}
}

func (c *Client) Name() string { return model.PlatformTwitter }

// VerifyCredentials is the liveness probe run before write actions. A 401
// here is authoritative over the locally stored expiry, because a remote
// revocation is not otherwise observable.
func (c *Client) VerifyCredentials(ctx context.Context, conn *model.Connection) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/2/users/me", nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("identity probe failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return "", "", model.ErrRequiresReauthorization
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("identity probe returned %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", fmt.Errorf("decode identity response: %w", err)
	}
	return out.Data.ID, out.Data.Username, nil
}

type createTweetRequest struct {
	Text  string `json:"text"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

// CreatePost issues one tweet. mediaID and replyToID are optional and
// independently composable.
func (c *Client) CreatePost(ctx context.Context, conn *model.Connection, text, mediaID, replyToID string) (string, error) {
	payload := createTweetRequest{Text: text}
	if mediaID != "" {
		payload.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{MediaIDs: []string{mediaID}}
	}
	if replyToID != "" {
		payload.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{InReplyToTweetID: replyToID}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/2/tweets", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create post request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", &model.PublishError{Platform: model.PlatformTwitter, StatusCode: resp.StatusCode, Body: string(body)}
	}
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode create post response: %w", err)
	}
	return out.Data.ID, nil
}

// CreateThread posts texts in strict order, each reply chained to the
// previous id. Media (if any) attaches to the first post only. The chain
// stops at the first failure; earlier posts stay up.
func (c *Client) CreateThread(ctx context.Context, conn *model.Connection, texts []string, mediaID string) *model.ThreadResult {
	result := &model.ThreadResult{FailedIndex: -1}
	replyTo := ""
	for i, text := range texts {
		media := ""
		if i == 0 {
			media = mediaID
		}
		id, err := c.CreatePost(ctx, conn, text, media, replyTo)
		if err != nil {
			result.FailedIndex = i
			result.Err = fmt.Errorf("thread post %d: %w", i, err)
			logger.GetLogger().
				WithField("platform", model.PlatformTwitter).
				WithField("failed_index", i).
				WithField("created", len(result.PostIDs)).
				Warn("thread chain halted")
			return result
		}
		result.PostIDs = append(result.PostIDs, id)
		replyTo = id
	}
	return result
}

// --- OAuth1 three-legged flow -------------------------------------------

// RequestToken performs the signed token-less first leg and returns the
// temporary credential pair plus the user authorization URL.
func (c *Client) RequestToken(ctx context.Context, callbackURL string) (string, string, string, error) {
	endpoint := c.apiBaseURL + "/oauth/request_token"
	extra := url.Values{"oauth_callback": {callbackURL}}
	header, err := c.signer.AuthorizationHeader(http.MethodPost, endpoint, extra, "", "")
	if err != nil {
		return "", "", "", err
	}
	vals, err := c.doOAuth1Exchange(ctx, endpoint, header)
	if err != nil {
		return "", "", "", err
	}
	token := vals.Get("oauth_token")
	secret := vals.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return "", "", "", &model.TokenExchangeError{Platform: model.PlatformTwitter, StatusCode: http.StatusOK, Body: vals.Encode()}
	}
	authorize := fmt.Sprintf("%s/oauth/authorize?oauth_token=%s", c.apiBaseURL, url.QueryEscape(token))
	return token, secret, authorize, nil
}

// AccessToken exchanges the authorized request token for the permanent pair.
func (c *Client) AccessToken(ctx context.Context, requestToken, requestTokenSecret, verifier string) (string, string, string, error) {
	endpoint := c.apiBaseURL + "/oauth/access_token"
	extra := url.Values{"oauth_verifier": {verifier}}
	header, err := c.signer.AuthorizationHeader(http.MethodPost, endpoint, extra, requestToken, requestTokenSecret)
	if err != nil {
		return "", "", "", err
	}
	vals, err := c.doOAuth1Exchange(ctx, endpoint, header)
	if err != nil {
		return "", "", "", err
	}
	token := vals.Get("oauth_token")
	secret := vals.Get("oauth_token_secret")
	handle := vals.Get("screen_name")
	if token == "" || secret == "" {
		return "", "", "", &model.TokenExchangeError{Platform: model.PlatformTwitter, StatusCode: http.StatusOK, Body: vals.Encode()}
	}
	return token, secret, handle, nil
}

func (c *Client) doOAuth1Exchange(ctx context.Context, endpoint, authHeader string) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(""))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", authHeader)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth1 exchange request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &model.TokenExchangeError{Platform: model.PlatformTwitter, StatusCode: resp.StatusCode, Body: string(body)}
	}
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse oauth1 exchange response: %w", err)
	}
	return vals, nil
}

var (
	_ repository.IPlatform   = (*Client)(nil)
	_ repository.IOAuth1Flow = (*Client)(nil)
	_ repository.IOAuth2Flow = (*Client)(nil)
)

package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

// Requested on connect. Upload scope is what video_upload needs; the base
// scope covers channel reads and metadata updates.
var defaultScopes = []string{
	youtubeapi.YoutubeScope,
	youtubeapi.YoutubeUploadScope,
	youtubeapi.YoutubeForceSslScope,
}

// Client publishes videos to a connected channel. Unlike the other platforms
// the API surface is the generated google client, so every call builds a
// per-connection service from the stored token instead of sharing one client.
type Client struct {
	cfg configuration.OAuthClient
}

func NewYouTubeClient(cfg configuration.OAuthClient) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Name() string { return model.PlatformYouTube }

func (c *Client) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       defaultScopes,
		Endpoint:     google.Endpoint,
	}
}

// service builds a youtube service authenticated as the connection.
func (c *Client) service(ctx context.Context, conn *model.Connection) (*youtubeapi.Service, error) {
	token := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		TokenType:    "Bearer",
	}
	if conn.ExpiresAt != nil {
		token.Expiry = *conn.ExpiresAt
	}
	httpClient := c.oauthConfig(c.cfg.RedirectURI).Client(ctx, token)
	service, err := youtubeapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return service, nil
}

// --- OAuth2 ------------------------------------------------------------

func (c *Client) AuthorizeURL(state, codeVerifier, redirectURI string, scopes []string) string {
	cfg := c.oauthConfig(redirectURI)
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(codeVerifier),
	)
}

func (c *Client) Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*repository.OAuth2Grant, error) {
	cfg := c.oauthConfig(redirectURI)
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, exchangeError(err)
	}

	grant := grantFromToken(token, "")

	// Resolve channel identity while the fresh token is in hand.
	service, err := youtubeapi.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	resp, err := service.Channels.List([]string{"snippet"}).Mine(true).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve youtube channel: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("no channel found for authenticated user")
	}
	grant.ExternalID = resp.Items[0].Id
	grant.Handle = resp.Items[0].Snippet.Title
	return grant, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*repository.OAuth2Grant, error) {
	cfg := c.oauthConfig(c.cfg.RedirectURI)
	stale := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Minute)}
	token, err := cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) && (retrieve.Response.StatusCode == 400 || retrieve.Response.StatusCode == 401) {
			return nil, fmt.Errorf("youtube refresh rejected: %w", model.ErrRequiresReauthorization)
		}
		return nil, fmt.Errorf("youtube token refresh failed: %w", err)
	}
	return grantFromToken(token, refreshToken), nil
}

func grantFromToken(token *oauth2.Token, previousRefresh string) *repository.OAuth2Grant {
	grant := &repository.OAuth2Grant{
		AccessToken: token.AccessToken,
		Scopes:      strings.Join(defaultScopes, " "),
	}
	if token.RefreshToken != "" && token.RefreshToken != previousRefresh {
		grant.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		grant.ExpiresAt = &expiry
	}
	return grant
}

func exchangeError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		return &model.TokenExchangeError{
			Platform:   model.PlatformYouTube,
			StatusCode: retrieve.Response.StatusCode,
			Body:       string(retrieve.Body),
		}
	}
	return fmt.Errorf("youtube token exchange failed: %w", err)
}

// --- Publishing ----------------------------------------------------------

func (c *Client) VerifyCredentials(ctx context.Context, conn *model.Connection) (string, string, error) {
	service, err := c.service(ctx, conn)
	if err != nil {
		return "", "", err
	}
	resp, err := service.Channels.List([]string{"snippet"}).Mine(true).Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube channel probe failed: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", "", fmt.Errorf("no channel found for authenticated user")
	}
	return resp.Items[0].Id, resp.Items[0].Snippet.Title, nil
}

// UploadImage has no youtube equivalent; thumbnails ride on video ids, not
// standalone media ids.
func (c *Client) UploadImage(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error) {
	return "", fmt.Errorf("youtube: standalone image upload not supported")
}

// UploadVideo inserts the video as unlisted. CreatePost later attaches the
// caption and flips it public, mirroring the upload-then-publish split the
// other platforms have.
func (c *Client) UploadVideo(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error) {
	service, err := c.service(ctx, conn)
	if err != nil {
		return "", err
	}

	video := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{Title: "Upload " + time.Now().UTC().Format(time.RFC3339)},
		Status:  &youtubeapi.VideoStatus{PrivacyStatus: "unlisted"},
	}
	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	call = call.Media(bytes.NewReader(data))

	response, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}
	return response.Id, nil
}

// CreatePost finalizes an uploaded video: sets the caption as title plus
// description and makes it public. Text-only posts have no youtube mapping.
func (c *Client) CreatePost(ctx context.Context, conn *model.Connection, text, mediaID, replyToID string) (string, error) {
	if mediaID == "" {
		return "", fmt.Errorf("youtube: a post requires an uploaded video")
	}
	service, err := c.service(ctx, conn)
	if err != nil {
		return "", err
	}

	existing, err := service.Videos.List([]string{"snippet", "status"}).Id(mediaID).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch uploaded video: %w", err)
	}
	if len(existing.Items) == 0 {
		return "", fmt.Errorf("video not found: %s", mediaID)
	}
	video := existing.Items[0]

	title := text
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		title = text[:idx]
	}
	if len(title) > 100 {
		title = title[:100]
	}
	video.Snippet.Title = title
	video.Snippet.Description = text
	if video.Status == nil {
		video.Status = &youtubeapi.VideoStatus{}
	}
	video.Status.PrivacyStatus = "public"

	updated, err := service.Videos.Update([]string{"snippet", "status"}, video).Do()
	if err != nil {
		return "", fmt.Errorf("failed to publish video: %w", err)
	}
	return updated.Id, nil
}

// CreateThread publishes the first segment as the video caption and the rest
// as top-level comments on it.
func (c *Client) CreateThread(ctx context.Context, conn *model.Connection, texts []string, mediaID string) *model.ThreadResult {
	result := &model.ThreadResult{FailedIndex: -1}
	if len(texts) == 0 {
		return result
	}

	videoID, err := c.CreatePost(ctx, conn, texts[0], mediaID, "")
	if err != nil {
		result.FailedIndex = 0
		result.Err = fmt.Errorf("thread post 0: %w", err)
		return result
	}
	result.PostIDs = append(result.PostIDs, videoID)

	service, err := c.service(ctx, conn)
	if err != nil {
		result.FailedIndex = 1
		result.Err = err
		return result
	}
	for i := 1; i < len(texts); i++ {
		thread := &youtubeapi.CommentThread{
			Snippet: &youtubeapi.CommentThreadSnippet{
				VideoId: videoID,
				TopLevelComment: &youtubeapi.Comment{
					Snippet: &youtubeapi.CommentSnippet{TextOriginal: texts[i]},
				},
			},
		}
		created, err := service.CommentThreads.Insert([]string{"snippet"}, thread).Do()
		if err != nil {
			result.FailedIndex = i
			result.Err = fmt.Errorf("thread post %d: %w", i, err)
			return result
		}
		result.PostIDs = append(result.PostIDs, created.Id)
	}
	return result
}

var (
	_ repository.IPlatform   = (*Client)(nil)
	_ repository.IOAuth2Flow = (*Client)(nil)
)

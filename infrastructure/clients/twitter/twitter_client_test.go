package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/configuration"
)

func testTwitterConfig() configuration.TwitterClient {
	return configuration.TwitterClient{
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		ConsumerKey:    "consumer-key",
		ConsumerSecret: "consumer-secret",
	}
}

func TestCreateThread_ChainsReplies(t *testing.T) {
	type tweetCall struct {
		text    string
		replyTo string
		media   []string
	}
	var calls []tweetCall

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text  string `json:"text"`
			Media *struct {
				MediaIDs []string `json:"media_ids"`
			} `json:"media"`
			Reply *struct {
				InReplyToTweetID string `json:"in_reply_to_tweet_id"`
			} `json:"reply"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		call := tweetCall{text: req.Text}
		if req.Reply != nil {
			call.replyTo = req.Reply.InReplyToTweetID
		}
		if req.Media != nil {
			call.media = req.Media.MediaIDs
		}
		calls = append(calls, call)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": fmt.Sprintf("tweet-%d", len(calls))},
		})
	}))
	defer server.Close()

	client := newTestClient(server)

	result := client.CreateThread(context.Background(), oauth1Connection(),
		[]string{"first", "second", "third"}, "media-9")

	require.True(t, result.Ok())
	assert.Equal(t, []string{"tweet-1", "tweet-2", "tweet-3"}, result.PostIDs)
	assert.Equal(t, -1, result.FailedIndex)

	// Media attaches to the root only; each post replies to the previous id.
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"media-9"}, calls[0].media)
	assert.Empty(t, calls[0].replyTo)
	assert.Nil(t, calls[1].media)
	assert.Equal(t, "tweet-1", calls[1].replyTo)
	assert.Equal(t, "tweet-2", calls[2].replyTo)
}

func TestCreateThread_HaltsAtFirstFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"detail":"duplicate content"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": fmt.Sprintf("tweet-%d", calls)},
		})
	}))
	defer server.Close()

	client := newTestClient(server)

	result := client.CreateThread(context.Background(), oauth1Connection(),
		[]string{"first", "second", "third"}, "")

	assert.False(t, result.Ok())
	assert.Equal(t, []string{"tweet-1"}, result.PostIDs)
	assert.Equal(t, 1, result.FailedIndex)

	var publishErr *model.PublishError
	require.ErrorAs(t, result.Err, &publishErr)
	assert.Equal(t, http.StatusForbidden, publishErr.StatusCode)
	// The third post was never attempted and nothing was rolled back.
	assert.Equal(t, 2, calls)
}

func TestVerifyCredentials_UnauthorizedIsAuthoritative(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server)

	_, _, err := client.VerifyCredentials(context.Background(), oauth1Connection())
	assert.ErrorIs(t, err, model.ErrRequiresReauthorization)
}

func TestRequestToken_SignedFirstLeg(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("oauth_token=req-token&oauth_token_secret=req-secret&oauth_callback_confirmed=true"))
	}))
	defer server.Close()

	client := newTestClient(server)

	token, secret, authorizeURL, err := client.RequestToken(context.Background(),
		"https://app.example/auth/twitter/callback?state=abc")
	require.NoError(t, err)
	assert.Equal(t, "req-token", token)
	assert.Equal(t, "req-secret", secret)
	assert.Contains(t, authorizeURL, "/oauth/authorize?oauth_token=req-token")

	// Token-less leg: the callback is signed into the header, no oauth_token.
	assert.True(t, strings.HasPrefix(authHeader, "OAuth "))
	assert.Contains(t, authHeader, "oauth_callback=")
	assert.Contains(t, authHeader, "oauth_signature=")
	assert.NotContains(t, authHeader, "oauth_token=")
}

func TestAccessToken_ExchangesVerifier(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("oauth_token=perm-token&oauth_token_secret=perm-secret&screen_name=someone"))
	}))
	defer server.Close()

	client := newTestClient(server)

	token, secret, handle, err := client.AccessToken(context.Background(), "req-token", "req-secret", "verifier-1")
	require.NoError(t, err)
	assert.Equal(t, "perm-token", token)
	assert.Equal(t, "perm-secret", secret)
	assert.Equal(t, "someone", handle)
	assert.Contains(t, authHeader, `oauth_token="req-token"`)
	assert.Contains(t, authHeader, `oauth_verifier="verifier-1"`)
}

func TestAccessToken_RejectionIsTokenExchangeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Invalid verifier"))
	}))
	defer server.Close()

	client := newTestClient(server)

	_, _, _, err := client.AccessToken(context.Background(), "req-token", "req-secret", "bad-verifier")

	var exchangeErr *model.TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, http.StatusUnauthorized, exchangeErr.StatusCode)
	assert.Contains(t, exchangeErr.Body, "Invalid verifier")
}

func TestRequestToken_MissingPairIsTokenExchangeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("oauth_callback_confirmed=true"))
	}))
	defer server.Close()

	client := newTestClient(server)

	_, _, _, err := client.RequestToken(context.Background(), "https://app.example/cb")

	var exchangeErr *model.TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)

	vals, parseErr := url.ParseQuery(exchangeErr.Body)
	require.NoError(t, parseErr)
	assert.Equal(t, "true", vals.Get("oauth_callback_confirmed"))
}

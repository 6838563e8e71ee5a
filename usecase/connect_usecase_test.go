package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/usecase"
)

func newConnectUsecase(connRepo *MockConnectionRepository, pendingRepo *MockPendingAuthorization,
	oauth2Flow *MockOAuth2Flow, oauth1Flow *MockOAuth1Flow) usecase.IConnectUsecase {
	return usecase.NewConnectUsecase(
		connRepo,
		pendingRepo,
		map[string]repository.IOAuth2Flow{model.PlatformTwitter: oauth2Flow},
		map[string]repository.IOAuth1Flow{model.PlatformTwitter: oauth1Flow},
		map[string]string{model.PlatformTwitter: "https://app.example/auth/twitter/callback"},
	)
}

func TestConnectUsecase_InitiateOAuth2(t *testing.T) {
	mockPending := new(MockPendingAuthorization)
	var saved *model.PendingAuthorization
	mockPending.On("Save", mock.Anything, mock.AnythingOfType("*model.PendingAuthorization")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.PendingAuthorization) }).
		Return(nil).
		Once()

	mockFlow := new(MockOAuth2Flow)
	mockFlow.On("AuthorizeURL", mock.AnythingOfType("string"), mock.AnythingOfType("string"),
		"https://app.example/auth/twitter/callback", []string(nil)).
		Return("https://twitter.com/i/oauth2/authorize?state=x").
		Once()

	connectUsecase := newConnectUsecase(new(MockConnectionRepository), mockPending, mockFlow, new(MockOAuth1Flow))

	resp, err := connectUsecase.InitiateOAuth2(context.Background(), "acct-1", model.PlatformTwitter)
	assert.NoError(t, err)
	assert.Equal(t, model.FlowOAuth2, resp.Flow)
	assert.NotEmpty(t, resp.State)
	assert.NotNil(t, saved)
	assert.Equal(t, resp.State, saved.State)
	assert.NotEmpty(t, saved.CodeVerifier)
	mockPending.AssertExpectations(t)
	mockFlow.AssertExpectations(t)
}

func TestConnectUsecase_CompleteOAuth2(t *testing.T) {
	pending := &model.PendingAuthorization{
		State:        "state-1",
		AccountID:    "acct-1",
		Platform:     model.PlatformTwitter,
		Flow:         model.FlowOAuth2,
		CodeVerifier: "verifier-1",
		RedirectURI:  "https://app.example/auth/twitter/callback",
	}
	stored := twitterConnection()

	mockPending := new(MockPendingAuthorization)
	mockPending.On("Consume", mock.Anything, "state-1").
		Return(pending, nil).
		Once()

	mockFlow := new(MockOAuth2Flow)
	mockFlow.On("Exchange", mock.Anything, "code-1", "verifier-1", pending.RedirectURI).
		Return(&repository.OAuth2Grant{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			Scopes:       "tweet.read tweet.write users.read",
			ExternalID:   "12345",
			Handle:       "someone",
		}, nil).
		Once()

	mockConnRepo := new(MockConnectionRepository)
	mockConnRepo.On("UpsertOAuth2", mock.Anything, mock.AnythingOfType("*model.Connection")).
		Return(nil).
		Once()
	mockConnRepo.On("GetConnection", mock.Anything, "acct-1", model.PlatformTwitter).
		Return(stored, nil).
		Once()

	connectUsecase := newConnectUsecase(mockConnRepo, mockPending, mockFlow, new(MockOAuth1Flow))

	conn, err := connectUsecase.CompleteOAuth2(context.Background(), "state-1", "code-1")
	assert.NoError(t, err)
	assert.Equal(t, stored, conn)
	mockPending.AssertExpectations(t)
	mockFlow.AssertExpectations(t)
	mockConnRepo.AssertExpectations(t)
}

func TestConnectUsecase_CompleteOAuth2_ReplayedState(t *testing.T) {
	mockPending := new(MockPendingAuthorization)
	mockPending.On("Consume", mock.Anything, "state-1").
		Return(nil, model.ErrInvalidOrExpiredState).
		Once()

	connectUsecase := newConnectUsecase(new(MockConnectionRepository), mockPending, new(MockOAuth2Flow), new(MockOAuth1Flow))

	_, err := connectUsecase.CompleteOAuth2(context.Background(), "state-1", "code-1")
	assert.ErrorIs(t, err, model.ErrInvalidOrExpiredState)
	mockPending.AssertExpectations(t)
}

func TestConnectUsecase_InitiateOAuth1_RequiresExistingConnection(t *testing.T) {
	mockConnRepo := new(MockConnectionRepository)
	mockConnRepo.On("GetConnection", mock.Anything, "acct-1", model.PlatformTwitter).
		Return(nil, model.ErrConnectionNotFound).
		Once()

	connectUsecase := newConnectUsecase(mockConnRepo, new(MockPendingAuthorization), new(MockOAuth2Flow), new(MockOAuth1Flow))

	_, err := connectUsecase.InitiateOAuth1(context.Background(), "acct-1", model.PlatformTwitter)
	assert.ErrorIs(t, err, model.ErrConnectionNotFound)
	mockConnRepo.AssertExpectations(t)
}

func TestConnectUsecase_OAuth1RoundTrip(t *testing.T) {
	mockConnRepo := new(MockConnectionRepository)
	mockConnRepo.On("GetConnection", mock.Anything, "acct-1", model.PlatformTwitter).
		Return(twitterConnection(), nil).
		Once()

	// The state rides on the callback URL; OAuth1 has no state parameter.
	mockOAuth1 := new(MockOAuth1Flow)
	var callbackURL string
	mockOAuth1.On("RequestToken", mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { callbackURL = args.String(1) }).
		Return("req-token", "req-secret", "https://api.twitter.com/oauth/authorize?oauth_token=req-token", nil).
		Once()

	var saved *model.PendingAuthorization
	mockPending := new(MockPendingAuthorization)
	mockPending.On("Save", mock.Anything, mock.AnythingOfType("*model.PendingAuthorization")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.PendingAuthorization) }).
		Return(nil).
		Once()

	connectUsecase := newConnectUsecase(mockConnRepo, mockPending, new(MockOAuth2Flow), mockOAuth1)

	resp, err := connectUsecase.InitiateOAuth1(context.Background(), "acct-1", model.PlatformTwitter)
	assert.NoError(t, err)
	assert.Equal(t, model.FlowOAuth1, resp.Flow)
	assert.Contains(t, callbackURL, "state="+resp.State)
	assert.Equal(t, "req-token", saved.RequestToken)
	assert.Equal(t, "req-secret", saved.RequestTokenSecret)

	// Callback leg: exchange the authorized request token and attach the pair.
	mockPending.On("Consume", mock.Anything, resp.State).
		Return(saved, nil).
		Once()
	mockOAuth1.On("AccessToken", mock.Anything, "req-token", "req-secret", "verifier-1").
		Return("perm-token", "perm-secret", "someone", nil).
		Once()
	mockConnRepo.On("UpdateOAuth1", mock.Anything, "acct-1", model.PlatformTwitter, "perm-token", "perm-secret", "someone").
		Return(nil).
		Once()
	withOAuth1 := twitterConnection()
	withOAuth1.OAuth1Token = strPtr("perm-token")
	withOAuth1.OAuth1TokenSecret = strPtr("perm-secret")
	mockConnRepo.On("GetConnection", mock.Anything, "acct-1", model.PlatformTwitter).
		Return(withOAuth1, nil).
		Once()

	conn, err := connectUsecase.CompleteOAuth1(context.Background(), resp.State, "verifier-1")
	assert.NoError(t, err)
	assert.True(t, conn.HasOAuth1())
	mockConnRepo.AssertExpectations(t)
	mockPending.AssertExpectations(t)
	mockOAuth1.AssertExpectations(t)
}

func TestConnectUsecase_StatusForUnknownPlatformConnection(t *testing.T) {
	mockConnRepo := new(MockConnectionRepository)
	mockConnRepo.On("GetConnection", mock.Anything, "acct-1", model.PlatformTwitter).
		Return(nil, model.ErrConnectionNotFound).
		Once()

	connectUsecase := newConnectUsecase(mockConnRepo, new(MockPendingAuthorization), new(MockOAuth2Flow), new(MockOAuth1Flow))

	resp, err := connectUsecase.Status(context.Background(), "acct-1", model.PlatformTwitter)
	assert.NoError(t, err)
	assert.False(t, resp.Connected)
	mockConnRepo.AssertExpectations(t)
}

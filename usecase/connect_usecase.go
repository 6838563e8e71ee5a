package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// IConnectUsecase drives the credential lifecycle: starting authorization
// flows, completing callbacks, and reporting connection state.
type IConnectUsecase interface {
	InitiateOAuth2(ctx context.Context, accountID, platform string) (*dto.AuthURLResponse, error)
	CompleteOAuth2(ctx context.Context, state, code string) (*model.Connection, error)
	InitiateOAuth1(ctx context.Context, accountID, platform string) (*dto.AuthURLResponse, error)
	CompleteOAuth1(ctx context.Context, state, verifier string) (*model.Connection, error)
	Status(ctx context.Context, accountID, platform string) (*dto.ConnectionStatusResponse, error)
	List(ctx context.Context, accountID string) ([]*dto.ConnectionStatusResponse, error)
	Disconnect(ctx context.Context, accountID, platform string) error
}

type connectUsecase struct {
	connRepo    repository.IConnection
	pendingRepo repository.IPendingAuthorization
	oauth2Flows map[string]repository.IOAuth2Flow
	oauth1Flows map[string]repository.IOAuth1Flow
	redirects   map[string]string // platform -> callback URL
}

func NewConnectUsecase(
	connRepo repository.IConnection,
	pendingRepo repository.IPendingAuthorization,
	oauth2Flows map[string]repository.IOAuth2Flow,
	oauth1Flows map[string]repository.IOAuth1Flow,
	redirects map[string]string,
) IConnectUsecase {
	return &connectUsecase{
		connRepo:    connRepo,
		pendingRepo: pendingRepo,
		oauth2Flows: oauth2Flows,
		oauth1Flows: oauth1Flows,
		redirects:   redirects,
	}
}

func newState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("state generation failed: %v", err))
	}
	return hex.EncodeToString(buf)
}

func (u *connectUsecase) InitiateOAuth2(ctx context.Context, accountID, platform string) (*dto.AuthURLResponse, error) {
	flow, ok := u.oauth2Flows[platform]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
	state := newState()
	verifier := oauth2.GenerateVerifier()
	redirectURI := u.redirects[platform]

	pending := &model.PendingAuthorization{
		State:        state,
		AccountID:    accountID,
		Platform:     platform,
		Flow:         model.FlowOAuth2,
		CodeVerifier: verifier,
		RedirectURI:  redirectURI,
	}
	if err := u.pendingRepo.Save(ctx, pending); err != nil {
		return nil, err
	}

	authURL := flow.AuthorizeURL(state, verifier, redirectURI, nil)
	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id": accountID,
		"platform":   platform,
	}).Info("OAuth2 authorization initiated")
	return &dto.AuthURLResponse{AuthURL: authURL, State: state, Flow: model.FlowOAuth2}, nil
}

// CompleteOAuth2 consumes the callback. The state is single-use: a replay
// fails with ErrInvalidOrExpiredState without touching stored credentials.
func (u *connectUsecase) CompleteOAuth2(ctx context.Context, state, code string) (*model.Connection, error) {
	pending, err := u.pendingRepo.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if pending.Flow != model.FlowOAuth2 {
		return nil, model.ErrInvalidOrExpiredState
	}
	flow, ok := u.oauth2Flows[pending.Platform]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", pending.Platform)
	}

	grant, err := flow.Exchange(ctx, code, pending.CodeVerifier, pending.RedirectURI)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":    err,
			"platform": pending.Platform,
		}).Error("OAuth2 code exchange failed")
		return nil, err
	}

	conn := &model.Connection{
		AccountID:    pending.AccountID,
		Platform:     pending.Platform,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    grant.ExpiresAt,
		Scopes:       grant.Scopes,
		ExternalID:   grant.ExternalID,
		Handle:       grant.Handle,
		Active:       true,
	}
	if err := u.connRepo.UpsertOAuth2(ctx, conn); err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id": pending.AccountID,
		"platform":   pending.Platform,
		"handle":     grant.Handle,
	}).Info("OAuth2 connection established")
	return u.connRepo.GetConnection(ctx, pending.AccountID, pending.Platform)
}

// InitiateOAuth1 starts the three-legged flow. The state rides on the
// callback URL because OAuth1 has no state parameter of its own.
func (u *connectUsecase) InitiateOAuth1(ctx context.Context, accountID, platform string) (*dto.AuthURLResponse, error) {
	flow, ok := u.oauth1Flows[platform]
	if !ok {
		return nil, fmt.Errorf("platform %s does not support OAuth1", platform)
	}
	// The OAuth1 leg is additive: it attaches to an existing connection and
	// never creates one, so require the OAuth2 leg first.
	if _, err := u.connRepo.GetConnection(ctx, accountID, platform); err != nil {
		return nil, err
	}

	state := newState()
	callbackURL := u.redirects[platform]
	if strings.Contains(callbackURL, "?") {
		callbackURL += "&state=" + state
	} else {
		callbackURL += "?state=" + state
	}

	token, tokenSecret, authorizeURL, err := flow.RequestToken(ctx, callbackURL)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":    err,
			"platform": platform,
		}).Error("OAuth1 request token leg failed")
		return nil, err
	}

	pending := &model.PendingAuthorization{
		State:              state,
		AccountID:          accountID,
		Platform:           platform,
		Flow:               model.FlowOAuth1,
		RequestToken:       token,
		RequestTokenSecret: tokenSecret,
		RedirectURI:        callbackURL,
	}
	if err := u.pendingRepo.Save(ctx, pending); err != nil {
		return nil, err
	}
	return &dto.AuthURLResponse{AuthURL: authorizeURL, State: state, Flow: model.FlowOAuth1}, nil
}

func (u *connectUsecase) CompleteOAuth1(ctx context.Context, state, verifier string) (*model.Connection, error) {
	pending, err := u.pendingRepo.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if pending.Flow != model.FlowOAuth1 {
		return nil, model.ErrInvalidOrExpiredState
	}
	flow, ok := u.oauth1Flows[pending.Platform]
	if !ok {
		return nil, fmt.Errorf("platform %s does not support OAuth1", pending.Platform)
	}

	token, tokenSecret, handle, err := flow.AccessToken(ctx, pending.RequestToken, pending.RequestTokenSecret, verifier)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":    err,
			"platform": pending.Platform,
		}).Error("OAuth1 access token leg failed")
		return nil, err
	}

	if err := u.connRepo.UpdateOAuth1(ctx, pending.AccountID, pending.Platform, token, tokenSecret, handle); err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id": pending.AccountID,
		"platform":   pending.Platform,
		"handle":     handle,
	}).Info("OAuth1 credentials attached")
	return u.connRepo.GetConnection(ctx, pending.AccountID, pending.Platform)
}

func (u *connectUsecase) Status(ctx context.Context, accountID, platform string) (*dto.ConnectionStatusResponse, error) {
	conn, err := u.connRepo.GetConnection(ctx, accountID, platform)
	if errors.Is(err, model.ErrConnectionNotFound) {
		return &dto.ConnectionStatusResponse{Connected: false, Platform: platform}, nil
	}
	if err != nil {
		return nil, err
	}
	return connectionStatus(conn), nil
}

func (u *connectUsecase) List(ctx context.Context, accountID string) ([]*dto.ConnectionStatusResponse, error) {
	conns, err := u.connRepo.ListConnections(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ConnectionStatusResponse, 0, len(conns))
	for _, conn := range conns {
		out = append(out, connectionStatus(conn))
	}
	return out, nil
}

func (u *connectUsecase) Disconnect(ctx context.Context, accountID, platform string) error {
	return u.connRepo.Invalidate(ctx, accountID, platform)
}

func connectionStatus(conn *model.Connection) *dto.ConnectionStatusResponse {
	return &dto.ConnectionStatusResponse{
		Connected:    conn.Active && (conn.HasOAuth2() || conn.HasOAuth1()),
		Platform:     conn.Platform,
		Handle:       conn.Handle,
		HasOAuth1:    conn.HasOAuth1(),
		HasOAuth2:    conn.HasOAuth2(),
		Scopes:       conn.Scopes,
		TokenExpires: conn.ExpiresAt,
	}
}

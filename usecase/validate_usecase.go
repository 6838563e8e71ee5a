package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// capabilityRequirement names the credential legs and scopes an action needs.
type capabilityRequirement struct {
	needsOAuth2 bool
	needsOAuth1 bool
	scopes      []string
}

// Per-platform capability table. Twitter splits its API surface: the v2 post
// endpoints take OAuth2 user tokens while the chunked media endpoints only
// accept OAuth1 signatures, so video_upload needs both legs at once.
var capabilityTable = map[string]map[model.Capability]capabilityRequirement{
	model.PlatformTwitter: {
		model.CapabilityRead:        {needsOAuth2: true, scopes: []string{"tweet.read", "users.read"}},
		model.CapabilityPostText:    {needsOAuth2: true, scopes: []string{"tweet.write"}},
		model.CapabilityMediaWrite:  {needsOAuth1: true},
		model.CapabilityVideoUpload: {needsOAuth2: true, needsOAuth1: true, scopes: []string{"tweet.write"}},
	},
	model.PlatformFacebook: {
		model.CapabilityRead:       {needsOAuth2: true, scopes: []string{"pages_read_engagement"}},
		model.CapabilityPostText:   {needsOAuth2: true, scopes: []string{"pages_manage_posts"}},
		model.CapabilityMediaWrite: {needsOAuth2: true, scopes: []string{"pages_manage_posts"}},
	},
	model.PlatformYouTube: {
		model.CapabilityRead:        {needsOAuth2: true, scopes: []string{"https://www.googleapis.com/auth/youtube"}},
		model.CapabilityPostText:    {needsOAuth2: true, scopes: []string{"https://www.googleapis.com/auth/youtube"}},
		model.CapabilityVideoUpload: {needsOAuth2: true, scopes: []string{"https://www.googleapis.com/auth/youtube.upload"}},
	},
}

// IValidateUsecase answers "can this account perform this action right now",
// refreshing expired tokens as a side effect.
type IValidateUsecase interface {
	Validate(ctx context.Context, accountID, platform string, capability model.Capability) (*dto.ValidateResponse, error)
	// EnsureValid is the publish-path variant: it returns the live connection
	// on success and a classified error otherwise.
	EnsureValid(ctx context.Context, accountID, platform string, capability model.Capability) (*model.Connection, error)
}

type validateUsecase struct {
	connRepo    repository.IConnection
	oauth2Flows map[string]repository.IOAuth2Flow
	now         func() time.Time
}

func NewValidateUsecase(connRepo repository.IConnection, oauth2Flows map[string]repository.IOAuth2Flow) IValidateUsecase {
	return &validateUsecase{connRepo: connRepo, oauth2Flows: oauth2Flows, now: time.Now}
}

func (u *validateUsecase) Validate(ctx context.Context, accountID, platform string, capability model.Capability) (*dto.ValidateResponse, error) {
	resp := &dto.ValidateResponse{Platform: platform, Capability: string(capability)}
	_, verdict, err := u.check(ctx, accountID, platform, capability)
	if err != nil && verdict == "" {
		return nil, err
	}
	resp.Verdict = string(verdict)
	if err != nil {
		resp.Detail = err.Error()
	}
	return resp, nil
}

func (u *validateUsecase) EnsureValid(ctx context.Context, accountID, platform string, capability model.Capability) (*model.Connection, error) {
	conn, _, err := u.check(ctx, accountID, platform, capability)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// check classifies the stored credentials against the capability table,
// refreshing eagerly when the access token is past its expiry. Verdict is
// set whenever classification succeeded, even if err is non-nil.
func (u *validateUsecase) check(ctx context.Context, accountID, platform string, capability model.Capability) (*model.Connection, model.ValidationVerdict, error) {
	requirements, ok := capabilityTable[platform]
	if !ok {
		return nil, "", fmt.Errorf("unsupported platform: %s", platform)
	}
	req, ok := requirements[capability]
	if !ok {
		return nil, model.VerdictRequiresReauth, fmt.Errorf("%s does not support %s", platform, capability)
	}

	conn, err := u.connRepo.GetConnection(ctx, accountID, platform)
	if errors.Is(err, model.ErrConnectionNotFound) {
		return nil, model.VerdictRequiresReauth, model.ErrConnectionNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if !conn.Active {
		return nil, model.VerdictRequiresReauth, model.ErrRequiresReauthorization
	}

	if req.needsOAuth1 && !conn.HasOAuth1() {
		return nil, model.VerdictRequiresReauth,
			fmt.Errorf("%s %s needs the OAuth1 leg: %w", platform, capability, model.ErrRequiresReauthorization)
	}

	verdict := model.VerdictValid
	if req.needsOAuth2 {
		if !conn.HasOAuth2() {
			return nil, model.VerdictRequiresReauth,
				fmt.Errorf("%s %s needs the OAuth2 leg: %w", platform, capability, model.ErrRequiresReauthorization)
		}
		for _, scope := range req.scopes {
			if !conn.HasScope(scope) {
				return nil, model.VerdictMissingScope,
					fmt.Errorf("scope %s not granted: %w", scope, model.ErrInsufficientScope)
			}
		}
		if conn.OAuth2Expired(u.now()) {
			refreshed, err := u.refresh(ctx, conn)
			if err != nil {
				return nil, model.VerdictRequiresReauth, err
			}
			return refreshed, model.VerdictExpiredRefreshed, nil
		}
	}
	return conn, verdict, nil
}

// refresh renews the OAuth2 leg synchronously and persists the outcome. A
// platform rejection invalidates the connection so later callers fail fast.
func (u *validateUsecase) refresh(ctx context.Context, conn *model.Connection) (*model.Connection, error) {
	if !conn.Refreshable() {
		return nil, fmt.Errorf("access token expired and no refresh token stored: %w", model.ErrRequiresReauthorization)
	}
	flow, ok := u.oauth2Flows[conn.Platform]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", conn.Platform)
	}

	grant, err := flow.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		if errors.Is(err, model.ErrRequiresReauthorization) {
			logger.GetLogger().WithFields(map[string]interface{}{
				"account_id": conn.AccountID,
				"platform":   conn.Platform,
			}).Warn("Refresh token rejected; invalidating connection")
			if invErr := u.connRepo.Invalidate(ctx, conn.AccountID, conn.Platform); invErr != nil {
				logger.GetLogger().WithField("error", invErr).Error("Failed to invalidate connection")
			}
		}
		return nil, err
	}

	if err := u.connRepo.UpdateOAuth2Tokens(ctx, conn.AccountID, conn.Platform,
		grant.AccessToken, grant.RefreshToken, grant.ExpiresAt); err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id": conn.AccountID,
		"platform":   conn.Platform,
	}).Info("Access token refreshed")
	// Re-fetch so callers see exactly what was persisted.
	return u.connRepo.GetConnection(ctx, conn.AccountID, conn.Platform)
}

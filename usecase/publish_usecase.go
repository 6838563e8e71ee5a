package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/pubsub"
)

// IPublishUsecase publishes content to platforms, either interactively or on
// behalf of the scheduler.
type IPublishUsecase interface {
	PostNow(ctx context.Context, accountID string, req *dto.PostNowRequest) []dto.PlatformPostResult
	// PublishPayload runs the full pipeline for one platform: validate,
	// stage media, post, audit. Never rolls back partial thread output.
	PublishPayload(ctx context.Context, accountID, platform string, payload model.PostPayload, scheduled bool, contentID string, postIndex int) dto.PlatformPostResult
}

type publishUsecase struct {
	validator  IValidateUsecase
	platforms  map[string]repository.IPlatform
	blobStore  repository.IBlobStore
	audit      repository.IPublishAudit
	events     pubsub.IPostEvents
	presignTTL int
}

func NewPublishUsecase(
	validator IValidateUsecase,
	platforms map[string]repository.IPlatform,
	blobStore repository.IBlobStore,
	audit repository.IPublishAudit,
	events pubsub.IPostEvents,
	presignTTL int,
) IPublishUsecase {
	return &publishUsecase{
		validator:  validator,
		platforms:  platforms,
		blobStore:  blobStore,
		audit:      audit,
		events:     events,
		presignTTL: presignTTL,
	}
}

func (u *publishUsecase) PostNow(ctx context.Context, accountID string, req *dto.PostNowRequest) []dto.PlatformPostResult {
	payload := model.PostPayload{
		Caption:   req.Caption,
		Thread:    req.Thread,
		MediaRefs: req.MediaRefs,
		MediaType: req.MediaType,
	}
	results := make([]dto.PlatformPostResult, 0, len(req.Platforms))
	for _, platform := range req.Platforms {
		platform = strings.ToLower(strings.TrimSpace(platform))
		results = append(results, u.PublishPayload(ctx, accountID, platform, payload, false, req.ContentID, req.PostIndex))
	}
	return results
}

func (u *publishUsecase) PublishPayload(ctx context.Context, accountID, platform string, payload model.PostPayload, scheduled bool, contentID string, postIndex int) dto.PlatformPostResult {
	result := dto.PlatformPostResult{Platform: platform, Status: "failed", FailedIndex: -1}

	client, ok := u.platforms[platform]
	if !ok {
		result.Error = fmt.Sprintf("unsupported platform: %s", platform)
		u.record(ctx, accountID, platform, contentID, postIndex, scheduled, result)
		return result
	}

	conn, err := u.validator.EnsureValid(ctx, accountID, platform, requiredCapability(payload))
	if err != nil {
		result.Error = err.Error()
		u.record(ctx, accountID, platform, contentID, postIndex, scheduled, result)
		return result
	}

	// Cheap identity fetch before any write. A remote 401 is authoritative
	// over the stored expiry: a token revoked upstream can look fresh locally.
	if _, _, err := client.VerifyCredentials(ctx, conn); err != nil {
		result.Error = err.Error()
		u.record(ctx, accountID, platform, contentID, postIndex, scheduled, result)
		return result
	}

	mediaID := ""
	if len(payload.MediaRefs) > 0 {
		mediaID, err = u.stageMedia(ctx, client, conn, payload)
		if err != nil {
			result.Error = err.Error()
			u.record(ctx, accountID, platform, contentID, postIndex, scheduled, result)
			return result
		}
	}

	if len(payload.Thread) > 0 {
		texts := append([]string{payload.Caption}, payload.Thread...)
		threadResult := client.CreateThread(ctx, conn, texts, mediaID)
		result.PostIDs = threadResult.PostIDs
		result.FailedIndex = threadResult.FailedIndex
		if threadResult.Ok() {
			result.Status = "posted"
		} else {
			result.Error = threadResult.Err.Error()
		}
	} else {
		postID, err := client.CreatePost(ctx, conn, payload.Caption, mediaID, "")
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Status = "posted"
			result.PostIDs = []string{postID}
		}
	}

	u.record(ctx, accountID, platform, contentID, postIndex, scheduled, result)
	return result
}

// requiredCapability maps the payload shape onto the capability table.
func requiredCapability(payload model.PostPayload) model.Capability {
	if len(payload.MediaRefs) == 0 {
		return model.CapabilityPostText
	}
	if payload.MediaType == model.MediaTypeVideo {
		return model.CapabilityVideoUpload
	}
	return model.CapabilityMediaWrite
}

// stageMedia re-presigns the first media key, downloads it, and pushes it
// through the platform's upload path. Presigned URLs from earlier in the
// flow are never trusted; keys are presigned immediately before fetching.
func (u *publishUsecase) stageMedia(ctx context.Context, client repository.IPlatform, conn *model.Connection, payload model.PostPayload) (string, error) {
	key := payload.MediaRefs[0]
	freshURL, err := u.blobStore.Presign(ctx, key, u.presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign media %s: %w", key, err)
	}
	data, contentType, err := u.blobStore.Fetch(ctx, freshURL)
	if err != nil {
		return "", fmt.Errorf("fetch media %s: %w", key, err)
	}

	mediaType := payload.MediaType
	if mediaType == "" {
		// The caller normally declares the type; sniffing is the fallback.
		mediaType = model.MediaTypeImage
		if strings.HasPrefix(http.DetectContentType(data), "video/") {
			mediaType = model.MediaTypeVideo
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"key":      key,
			"inferred": mediaType,
		}).Warn("Media type not declared; inferred from content")
	}

	if mediaType == model.MediaTypeVideo {
		return client.UploadVideo(ctx, conn, data, contentType)
	}
	return client.UploadImage(ctx, conn, data, contentType)
}

func (u *publishUsecase) record(ctx context.Context, accountID, platform, contentID string, postIndex int, scheduled bool, result dto.PlatformPostResult) {
	if u.audit != nil {
		audit := &repository.PublishAudit{
			AccountID:   accountID,
			Platform:    platform,
			ContentID:   contentID,
			PostIndex:   postIndex,
			Scheduled:   scheduled,
			Status:      result.Status,
			ExternalIDs: result.PostIDs,
			Error:       result.Error,
			CreatedAt:   time.Now().UTC(),
		}
		if err := u.audit.Record(ctx, audit); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed to record publish audit")
		}
	}
	if u.events != nil {
		event := pubsub.PostEvent{
			AccountID: accountID,
			ContentID: contentID,
			PostIndex: postIndex,
			Platform:  platform,
			Status:    result.Status,
			PostIDs:   result.PostIDs,
			Error:     result.Error,
			Scheduled: scheduled,
		}
		if err := u.events.PublishEvent(ctx, event); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed to publish post event")
		}
	}
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// IScheduleUsecase owns delayed publication: storing intents, executing them
// when due, and the reschedule-as-retry path.
type IScheduleUsecase interface {
	Schedule(ctx context.Context, accountID string, req *dto.ScheduleRequest) (*dto.ScheduleResponse, error)
	// Execute runs one due post. Calling it twice for the same id is safe:
	// only a pending row publishes.
	Execute(ctx context.Context, scheduledPostID int64) error
	Cancel(ctx context.Context, accountID string, scheduledPostID int64) error
	List(ctx context.Context, accountID string, limit int) ([]*model.ScheduledPost, error)
	// ProcessOverdue is the sweep backstop for jobs the queue lost.
	ProcessOverdue(ctx context.Context, batchSize int) error
}

type scheduleUsecase struct {
	scheduleRepo repository.IScheduledPost
	jobQueue     repository.IJobQueue
	publisher    IPublishUsecase
	broadcast    func(*model.ScheduledPost)
	now          func() time.Time
}

func NewScheduleUsecase(scheduleRepo repository.IScheduledPost, jobQueue repository.IJobQueue, publisher IPublishUsecase) *scheduleUsecase {
	return &scheduleUsecase{
		scheduleRepo: scheduleRepo,
		jobQueue:     jobQueue,
		publisher:    publisher,
		now:          time.Now,
	}
}

// WithBroadcaster attaches a terminal-status listener (the SSE hub).
func (u *scheduleUsecase) WithBroadcaster(fn func(*model.ScheduledPost)) *scheduleUsecase {
	u.broadcast = fn
	return u
}

// Schedule stores the intent. Re-scheduling an existing (account, content,
// index) cancels the old timed job and resets the row, so at most one pending
// intent exists per key and a failed post is retried by scheduling it again.
func (u *scheduleUsecase) Schedule(ctx context.Context, accountID string, req *dto.ScheduleRequest) (*dto.ScheduleResponse, error) {
	if !req.DueAt.After(u.now()) {
		return nil, fmt.Errorf("due time must be in the future: %w", model.ErrScheduleConflict)
	}
	if len(req.Platforms) == 0 {
		return nil, fmt.Errorf("platforms required: %w", model.ErrScheduleConflict)
	}
	if req.Caption == "" && len(req.MediaRefs) == 0 {
		return nil, fmt.Errorf("empty payload: %w", model.ErrScheduleConflict)
	}

	platforms := normalizePlatforms(req.Platforms)
	payload := model.PostPayload{
		Caption:   req.Caption,
		Thread:    req.Thread,
		MediaRefs: req.MediaRefs,
		MediaType: req.MediaType,
	}

	existing, err := u.scheduleRepo.FindReusable(ctx, accountID, req.ContentID, req.PostIndex)
	if err != nil {
		return nil, err
	}
	// A cleanly posted row is history, not a retry target. Only pending,
	// failed, and posted-with-error rows are reset in place.
	if existing != nil && existing.Status == model.ScheduledPostStatusPosted && existing.ErrorMessage == nil {
		existing = nil
	}

	rescheduled := false
	var id int64
	if existing != nil {
		// Cancel before mutate: the old job must be dead before the row it
		// references changes.
		if existing.JobHandle != nil && u.jobQueue != nil {
			if err := u.jobQueue.Cancel(ctx, *existing.JobHandle); err != nil {
				return nil, fmt.Errorf("cancel stale job: %w", err)
			}
		}
		if err := u.scheduleRepo.ResetForReschedule(ctx, existing.ID, req.DueAt.UTC(), strings.Join(platforms, ","), payload); err != nil {
			return nil, err
		}
		id = existing.ID
		rescheduled = true
	} else {
		post := &model.ScheduledPost{
			AccountID: accountID,
			ContentID: req.ContentID,
			PostIndex: req.PostIndex,
			Platforms: strings.Join(platforms, ","),
			Payload:   payload,
			DueAt:     req.DueAt.UTC(),
			Status:    model.ScheduledPostStatusPending,
		}
		id, err = u.scheduleRepo.Create(ctx, post)
		if err != nil {
			return nil, err
		}
	}

	jobQueued := false
	if u.jobQueue != nil {
		handle, err := u.jobQueue.Enqueue(ctx, id, req.DueAt.UTC())
		if err != nil {
			// The row stays pending; the overdue sweep picks it up.
			logger.GetLogger().WithFields(map[string]interface{}{
				"error":             err,
				"scheduled_post_id": id,
			}).Warn("Timed job enqueue failed; relying on sweep")
		} else {
			if err := u.scheduleRepo.SetJobHandle(ctx, id, &handle); err != nil {
				return nil, err
			}
			jobQueued = true
		}
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"scheduled_post_id": id,
		"account_id":        accountID,
		"due_at":            req.DueAt.UTC(),
		"rescheduled":       rescheduled,
	}).Info("Post scheduled")

	return &dto.ScheduleResponse{
		ID:          id,
		Status:      model.ScheduledPostStatusPending,
		DueAt:       req.DueAt.UTC(),
		Rescheduled: rescheduled,
		JobQueued:   jobQueued,
	}, nil
}

// Execute publishes a due post. Publish errors are captured onto the row,
// never returned: the returned error means the row itself could not be
// processed and the delivery should be retried.
func (u *scheduleUsecase) Execute(ctx context.Context, scheduledPostID int64) error {
	post, err := u.scheduleRepo.GetByID(ctx, scheduledPostID)
	if err != nil {
		return err
	}
	if post == nil {
		logger.GetLogger().WithField("scheduled_post_id", scheduledPostID).Warn("Scheduled post vanished; skipping")
		return nil
	}
	if post.Status != model.ScheduledPostStatusPending {
		// Already executed or cancelled; duplicate deliveries land here.
		return nil
	}

	platforms := post.PlatformList()
	succeeded := 0
	var failures []string
	for _, platform := range platforms {
		result := u.publisher.PublishPayload(ctx, post.AccountID, platform, post.Payload, true, post.ContentID, post.PostIndex)
		if result.Status == "posted" {
			succeeded++
		} else {
			failures = append(failures, fmt.Sprintf("%s: %s", platform, result.Error))
		}
	}

	status := model.ScheduledPostStatusPosted
	if succeeded == 0 {
		status = model.ScheduledPostStatusFailed
	}
	var errMsg *string
	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		errMsg = &msg
	}
	if err := u.scheduleRepo.MarkTerminal(ctx, post.ID, status, errMsg); err != nil {
		return err
	}

	post.Status = status
	post.ErrorMessage = errMsg
	if u.broadcast != nil {
		u.broadcast(post)
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"scheduled_post_id": post.ID,
		"status":            status,
		"succeeded":         succeeded,
		"failed":            len(failures),
	}).Info("Scheduled post executed")
	return nil
}

func (u *scheduleUsecase) Cancel(ctx context.Context, accountID string, scheduledPostID int64) error {
	post, err := u.scheduleRepo.GetByID(ctx, scheduledPostID)
	if err != nil {
		return err
	}
	if post == nil || post.AccountID != accountID {
		return fmt.Errorf("scheduled post %d not found", scheduledPostID)
	}
	if post.Status != model.ScheduledPostStatusPending {
		return fmt.Errorf("scheduled post %d is already %s: %w", scheduledPostID, post.Status, model.ErrScheduleConflict)
	}
	if post.JobHandle != nil && u.jobQueue != nil {
		if err := u.jobQueue.Cancel(ctx, *post.JobHandle); err != nil {
			return fmt.Errorf("cancel timed job: %w", err)
		}
	}
	msg := "cancelled by user"
	return u.scheduleRepo.MarkTerminal(ctx, post.ID, model.ScheduledPostStatusFailed, &msg)
}

func (u *scheduleUsecase) List(ctx context.Context, accountID string, limit int) ([]*model.ScheduledPost, error) {
	if limit <= 0 {
		limit = 50
	}
	return u.scheduleRepo.ListByAccount(ctx, accountID, limit)
}

// ProcessOverdue executes pending rows whose due time has passed. It backstops
// lost queue deliveries; Execute's pending check keeps the two paths from
// double-posting.
func (u *scheduleUsecase) ProcessOverdue(ctx context.Context, batchSize int) error {
	overdue, err := u.scheduleRepo.ListOverdue(ctx, u.now().UTC(), batchSize)
	if err != nil {
		return err
	}
	for _, post := range overdue {
		if err := u.Execute(ctx, post.ID); err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"error":             err,
				"scheduled_post_id": post.ID,
			}).Error("Overdue sweep execution failed")
		}
	}
	return nil
}

func normalizePlatforms(platforms []string) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ IScheduleUsecase = (*scheduleUsecase)(nil)

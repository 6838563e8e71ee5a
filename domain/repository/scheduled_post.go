package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IScheduledPost persists durable publish intents.
type IScheduledPost interface {
	Create(ctx context.Context, post *model.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.ScheduledPost, error)
	// FindReusable returns the current row for (account, content, index)
	// regardless of status, or nil. At most one pending row exists per key.
	FindReusable(ctx context.Context, accountID, contentID string, postIndex int) (*model.ScheduledPost, error)
	// ResetForReschedule moves an existing row back to pending with a new due
	// time and payload inside one transaction (retry-by-reschedule).
	ResetForReschedule(ctx context.Context, id int64, dueAt time.Time, platforms string, payload model.PostPayload) error
	SetJobHandle(ctx context.Context, id int64, handle *string) error
	// MarkTerminal records posted/failed with an optional aggregate error.
	MarkTerminal(ctx context.Context, id int64, status string, errMsg *string) error
	// ListOverdue returns pending rows whose due time has passed, for the
	// sweep that backstops the timed-job backend.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*model.ScheduledPost, error)
}

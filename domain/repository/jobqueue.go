package repository

import (
	"context"
	"time"
)

// IJobQueue is the timed-execution backend for scheduled posts. The handle
// it returns must be cancelled before the row it points at is mutated, so
// two executions of the same logical post can never run concurrently.
type IJobQueue interface {
	// Enqueue schedules delivery of the row id at dueAt and returns an
	// opaque cancellation handle.
	Enqueue(ctx context.Context, scheduledPostID int64, dueAt time.Time) (handle string, err error)
	Cancel(ctx context.Context, handle string) error
}

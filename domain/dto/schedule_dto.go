package dto

import "time"

// ScheduleRequest persists a future publish intent.
type ScheduleRequest struct {
	Platforms []string  `json:"platforms" binding:"required"`
	ContentID string    `json:"content_id" binding:"required"`
	PostIndex int       `json:"post_index"`
	DueAt     time.Time `json:"due_at" binding:"required"`
	Caption   string    `json:"caption"`
	Thread    []string  `json:"thread,omitempty"`
	MediaRefs []string  `json:"media_refs,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
}

// ScheduleResponse acknowledges a stored intent.
type ScheduleResponse struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	DueAt       time.Time `json:"due_at"`
	Rescheduled bool      `json:"rescheduled"`
	JobQueued   bool      `json:"job_queued"`
}

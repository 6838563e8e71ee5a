package model

import (
	"strings"
	"time"
)

// Scheduled post statuses. A row is terminal once posted or failed, but a
// re-schedule for the same (account, content, index) resets it to pending.
const (
	ScheduledPostStatusPending = "pending"
	ScheduledPostStatusPosted  = "posted"
	ScheduledPostStatusFailed  = "failed"
)

// PostPayload is the serialized publish intent carried by a scheduled post
// and by the interactive post-now path.
type PostPayload struct {
	Caption   string   `json:"caption"`
	Thread    []string `json:"thread,omitempty"` // additional posts chained as replies
	MediaRefs []string `json:"media_refs,omitempty"`
	MediaType string   `json:"media_type,omitempty"` // image | video
}

// ScheduledPost is a durable intent to publish content at a future time.
type ScheduledPost struct {
	ID           int64       `json:"id"`
	AccountID    string      `json:"account_id"`
	ContentID    string      `json:"content_id"`
	PostIndex    int         `json:"post_index"`
	Platforms    string      `json:"platforms"` // comma-separated
	Payload      PostPayload `json:"payload"`
	DueAt        time.Time   `json:"due_at"`
	Status       string      `json:"status"`
	ErrorMessage *string     `json:"error_message,omitempty"`
	JobHandle    *string     `json:"job_handle,omitempty"` // external timed-job reference
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// PlatformList splits the stored platform set.
func (s *ScheduledPost) PlatformList() []string {
	if s.Platforms == "" {
		return nil
	}
	parts := strings.Split(s.Platforms, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
